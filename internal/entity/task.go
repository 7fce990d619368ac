package entity

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

const (
	TitleMaxLen       = 100
	DescriptionMaxLen = 500
)

// Task is owned by exactly one user. Completed and CompletedAt are derived
// from Status by ApplyStatus and are never taken from client input.
type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ApplyStatus sets Status and re-derives the completion fields from it.
// It is called only when the status is part of a change.
func (t *Task) ApplyStatus(s Status, now time.Time) {
	t.Status = s
	t.Completed, t.CompletedAt = DeriveCompletion(s, now)
}

// DeriveCompletion returns the completion fields implied by a status change
// made at now.
func DeriveCompletion(s Status, now time.Time) (bool, *time.Time) {
	if s != StatusCompleted {
		return false, nil
	}
	at := now
	return true, &at
}

// TaskInput carries client-supplied task fields. A nil field was absent from
// the request; for DueDate, presence and nullness are tracked separately.
type TaskInput struct {
	Title       *string      `json:"title,omitempty" validate:"omitnil,min=1,max=100"`
	Description *string      `json:"description,omitempty" validate:"omitnil,max=500"`
	Status      *Status      `json:"status,omitempty" validate:"omitnil,oneof=pending in-progress completed"`
	Priority    *Priority    `json:"priority,omitempty" validate:"omitnil,oneof=low medium high"`
	DueDate     NullableTime `json:"dueDate,omitzero"`
	Tags        *[]string    `json:"tags,omitempty"`
}

// Normalize trims string fields in place.
func (in *TaskInput) Normalize() {
	if in.Title != nil {
		s := strings.TrimSpace(*in.Title)
		in.Title = &s
	}
	if in.Description != nil {
		s := strings.TrimSpace(*in.Description)
		in.Description = &s
	}
	if in.Tags != nil {
		tags := make([]string, 0, len(*in.Tags))
		for _, tag := range *in.Tags {
			tags = append(tags, strings.TrimSpace(tag))
		}
		in.Tags = &tags
	}
}

// NewTask builds a task for owner from a validated input, applying defaults.
func NewTask(id, owner string, in TaskInput, now time.Time) Task {
	t := Task{
		ID:        id,
		Owner:     owner,
		Status:    StatusPending,
		Priority:  PriorityMedium,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(&t, now)
	if in.Status == nil {
		t.ApplyStatus(t.Status, now)
	}
	return t
}

// Patch applies the present fields of in to t. Owner is never touched.
func (t *Task) Patch(in TaskInput, now time.Time) {
	in.applyTo(t, now)
	t.UpdatedAt = now
}

func (in TaskInput) applyTo(t *Task, now time.Time) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate.Set {
		t.DueDate = in.DueDate.Ptr()
	}
	if in.Tags != nil {
		t.Tags = append([]string{}, (*in.Tags)...)
	}
	if in.Status != nil {
		t.ApplyStatus(*in.Status, now)
	}
}

// Task document field names, shared by the stores.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldDueDate     = "dueDate"
	FieldTags        = "tags"
	FieldCompleted   = "completed"
	FieldCompletedAt = "completedAt"
	FieldUpdatedAt   = "updatedAt"
)

// Fields lists the task fields a patch with in writes: the present inputs,
// the completion fields when the status is present, and updatedAt.
func (in TaskInput) Fields() []string {
	var fields []string
	if in.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if in.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if in.Status != nil {
		fields = append(fields, FieldStatus, FieldCompleted, FieldCompletedAt)
	}
	if in.Priority != nil {
		fields = append(fields, FieldPriority)
	}
	if in.DueDate.Set {
		fields = append(fields, FieldDueDate)
	}
	if in.Tags != nil {
		fields = append(fields, FieldTags)
	}
	return append(fields, FieldUpdatedAt)
}
