package factory

import (
	"time"
	"unicode/utf8"

	fab "github.com/Goldziher/fabricator"
	"github.com/google/uuid"

	"taskmanager/internal/core/domain"
)

// NewTask builds a valid task with a random title and description. The other
// fields get fixed defaults unless customData sets them.
func NewTask(customData ...map[string]any) domain.Task {
	instance := fab.New(domain.Task{})

	overrides := map[string]any{
		"ID":          uuid.NewString(),
		"CreatedAt":   time.Now().UTC(),
		"Version":     1,
		"DueDate":     (*time.Time)(nil),
		"IsCompleted": false,
	}
	for _, data := range customData {
		for k, v := range data {
			overrides[k] = v
		}
	}

	task := instance.Build(overrides)

	if utf8.RuneCountInString(task.Title) > domain.MaxTitleLength {
		task.Title = string([]rune(task.Title)[:domain.MaxTitleLength])
	}
	if utf8.RuneCountInString(task.Description) > domain.MaxDescriptionLength {
		task.Description = string([]rune(task.Description)[:domain.MaxDescriptionLength])
	}
	if task.Title == "" {
		task.Title = "task"
	}

	return task
}
