package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500

	// TimePrecision is the finest resolution every store keeps.
	TimePrecision = time.Microsecond
)

// Timestamp normalizes t to UTC at TimePrecision so a stored task reads back
// equal to the one that was written.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimePrecision)
}

func timestampPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := Timestamp(*t)
	return &ts
}

// NormalizeTimes applies Timestamp to every time field of t.
func (t *Task) NormalizeTimes() {
	t.CreatedAt = Timestamp(t.CreatedAt)
	t.DueDate = timestampPtr(t.DueDate)
}

type Task struct {
	ID          string
	Title       string
	Description string
	IsCompleted bool
	DueDate     *time.Time
	CreatedAt   time.Time
	Version     int
}

// TaskFilter composes with AND. Zero value matches every task.
type TaskFilter struct {
	Query     string
	Completed *bool
}

func (f TaskFilter) HasQuery() bool {
	return strings.TrimSpace(f.Query) != ""
}

// Matches reports whether t satisfies the filter. Stores that cannot push the
// filter down to their engine use it directly.
func (f TaskFilter) Matches(t Task) bool {
	if f.Completed != nil && t.IsCompleted != *f.Completed {
		return false
	}

	if !f.HasQuery() {
		return true
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))

	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern is the lowercased query wrapped for a LIKE ... ESCAPE '\' match,
// with wildcards in the query escaped.
func (f TaskFilter) LikePattern() string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(f.Query))) + "%"
}

func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// DueBefore orders tasks by due date ascending with undated tasks last, then
// by creation time and id.
func DueBefore(a, b Task) bool {
	switch {
	case a.DueDate == nil && b.DueDate != nil:
		return false
	case a.DueDate != nil && b.DueDate == nil:
		return true
	case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
		return a.DueDate.Before(*b.DueDate)
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return a.ID < b.ID
}

// CheckInvariants guards the store boundary against a task that skipped request validation.
func (t *Task) CheckInvariants() error {
	verr := &ValidationError{}

	title := strings.TrimSpace(t.Title)

	if title == "" {
		verr.Add("title", "title is required")
	} else if utf8.RuneCountInString(title) > MaxTitleLength {
		verr.Add("title", "title must be at most 100 characters")
	}

	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		verr.Add("description", "description must be at most 500 characters")
	}

	if verr.HasErrors() {
		return verr
	}

	return nil
}
