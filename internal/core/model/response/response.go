package response

import (
	"time"

	"taskmanager/internal/core/domain"
)

type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"isCompleted"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewTaskResponse(t domain.Task) TaskResponse {
	var due *time.Time

	if t.DueDate != nil {
		d := t.DueDate.UTC()
		due = &d
	}

	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		DueDate:     due,
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

func NewTaskResponses(tasks []domain.Task) []TaskResponse {
	data := make([]TaskResponse, 0, len(tasks))

	for _, t := range tasks {
		data = append(data, NewTaskResponse(t))
	}

	return data
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ResponseError struct {
	Code    string            `json:"code"`
	Errors  []ValidationError `json:"errors"`
	Details any               `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}
