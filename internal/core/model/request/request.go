package request

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type CreateTaskRequest struct {
	Title       string   `json:"title" validate:"required,notblank,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitnil,max=500"`
	IsCompleted bool     `json:"isCompleted"`
	DueDate     *DueDate `json:"dueDate,omitempty"`
}

// UpdateTaskRequest is a partial payload: nil fields keep their stored value.
type UpdateTaskRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitnil,notblank,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitnil,max=500"`
	IsCompleted *bool    `json:"isCompleted,omitempty"`
	DueDate     *DueDate `json:"dueDate,omitempty"`
}

func (r UpdateTaskRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.IsCompleted == nil && r.DueDate == nil
}

var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// DueDate accepts a date-only value or an RFC3339 timestamp. Date-only values
// become the start of that day in UTC.
type DueDate struct {
	t time.Time
}

func NewDueDate(t time.Time) *DueDate {
	return &DueDate{t: t.UTC()}
}

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueDate: %w", err)
	}

	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = time.Time{}
		return nil
	}

	s := strings.TrimSpace(*raw)

	for _, layout := range dueDateLayouts {
		parsed, err := time.Parse(layout, s)

		if err == nil {
			d.t = parsed.UTC()
			return nil
		}
	}

	return fmt.Errorf("dueDate: use a date (YYYY-MM-DD) or an RFC3339 timestamp")
}

func (d DueDate) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(d.t.Format(time.RFC3339))
}

// Ptr returns nil for an unset date.
func (d *DueDate) Ptr() *time.Time {
	if d == nil || d.t.IsZero() {
		return nil
	}

	t := d.t
	return &t
}
