package entity

import "time"

const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

type TaskEvent struct {
	Type       string    `json:"type"`
	TaskID     string    `json:"taskId"`
	OwnerID    string    `json:"ownerId"`
	Task       *Task     `json:"task,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PartitionKey keeps every event of one task on one partition.
func (e TaskEvent) PartitionKey() string {
	return e.TaskID
}
