// Package filter is the task list query contract: which tasks of an owner a
// List returns and in what order. The in-memory store and the client mirror
// evaluate it directly; the Mongo and Postgres stores translate it.
package filter

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/taskflow/task-service/internal/entity"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sortable task fields, by their JSON names.
const (
	SortCreatedAt   = "createdAt"
	SortUpdatedAt   = "updatedAt"
	SortDueDate     = "dueDate"
	SortCompletedAt = "completedAt"
	SortTitle       = "title"
	SortDescription = "description"
	SortStatus      = "status"
	SortPriority    = "priority"
)

const DefaultSortBy = SortCreatedAt

var sortFields = map[string]struct{}{
	SortCreatedAt: {}, SortUpdatedAt: {}, SortDueDate: {}, SortCompletedAt: {},
	SortTitle: {}, SortDescription: {}, SortStatus: {}, SortPriority: {},
}

// SortFields returns the accepted sortBy values.
func SortFields() []string {
	out := make([]string, 0, len(sortFields))
	for f := range sortFields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Filter selects and orders tasks. Empty Status, Priority and Search do not
// constrain the result.
type Filter struct {
	Status   string
	Priority string
	Search   string
	SortBy   string
	Order    Order
}

// Normalized trims the enum and sort criteria and resolves the sort defaults:
// an unknown SortBy becomes createdAt and any order other than asc becomes
// desc. Search is matched as given, surrounding spaces included.
func (f Filter) Normalized() Filter {
	f.Status = strings.TrimSpace(f.Status)
	f.Priority = strings.TrimSpace(f.Priority)
	f.SortBy = strings.TrimSpace(f.SortBy)
	if _, ok := sortFields[f.SortBy]; !ok {
		f.SortBy = DefaultSortBy
	}
	if Order(strings.ToLower(string(f.Order))) == Asc {
		f.Order = Asc
	} else {
		f.Order = Desc
	}
	return f
}

// FromQuery reads status, priority, search, sortBy and order.
func FromQuery(q url.Values) Filter {
	return Filter{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sortBy"),
		Order:    Order(q.Get("order")),
	}
}

// Query is the inverse of FromQuery; empty fields are left out.
func (f Filter) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", f.Status)
	set("priority", f.Priority)
	set("search", f.Search)
	set("sortBy", f.SortBy)
	set("order", string(f.Order))
	return q
}

// Key is a canonical string for the normalized filter.
func (f Filter) Key() string {
	n := f.Normalized()
	q := n.Query()
	q.Set("sortBy", n.SortBy)
	q.Set("order", string(n.Order))
	return q.Encode()
}

// Match reports whether t satisfies the search, status and priority criteria.
func (f Filter) Match(t entity.Task) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if f.Status != "" && string(t.Status) != f.Status {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	return true
}

// Compare orders a before b (<0), after b (>0) or equal (0) according to the
// sort field and direction. Ties on the field are broken by id.
func (f Filter) Compare(a, b entity.Task) int {
	c := compareField(f.SortBy, a, b)
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if f.Order == Asc {
		return c
	}
	return -c
}

// Apply returns the matching tasks in order. The input is not modified.
func (f Filter) Apply(tasks []entity.Task) []entity.Task {
	f = f.Normalized()
	out := make([]entity.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return f.Compare(out[i], out[j]) < 0
	})
	return out
}

func compareField(field string, a, b entity.Task) int {
	switch field {
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	case SortDescription:
		return strings.Compare(a.Description, b.Description)
	case SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortPriority:
		// lexical, like the document store
		return strings.Compare(string(a.Priority), string(b.Priority))
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortDueDate:
		return compareNullable(a.DueDate, b.DueDate)
	case SortCompletedAt:
		return compareNullable(a.CompletedAt, b.CompletedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// nil sorts before any time.
func compareNullable(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}
