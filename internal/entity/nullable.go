package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// NullableTime distinguishes an absent JSON field (Set false) from an
// explicit null (Set true, Valid false).
type NullableTime struct {
	Set   bool
	Valid bool
	Time  time.Time
}

// NewNullableTime returns a present value; a nil t means an explicit null.
func NewNullableTime(t *time.Time) NullableTime {
	if t == nil {
		return NullableTime{Set: true}
	}
	return NullableTime{Set: true, Valid: true, Time: *t}
}

func (n NullableTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// UnmarshalJSON accepts null, RFC 3339 timestamps and plain YYYY-MM-DD dates.
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		n.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("dueDate must be a date string or null: %w", err)
	}
	if s == "" {
		n.Valid = false
		n.Time = time.Time{}
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			n.Valid = true
			n.Time = t.UTC().Truncate(time.Millisecond)
			return nil
		}
	}
	return fmt.Errorf("dueDate %q is not a valid date", s)
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

// IsZero lets encoders with omitempty/omitzero skip an absent value.
func (n NullableTime) IsZero() bool {
	return !n.Set
}
