package port

import (
	"context"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/model/request"
	"taskmanager/internal/core/model/response"
)

// TaskStore is the persistence boundary. Writes go through a TaskBatch and
// only become visible after Commit.
type TaskStore interface {
	Query(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	GetByID(ctx context.Context, id string) (domain.Task, error)
	Begin(ctx context.Context) (TaskBatch, error)
	Ping(ctx context.Context) error
	Close() error
}

type TaskBatch interface {
	Insert(ctx context.Context, task domain.Task) error
	// Replace requires task.Version to match the stored version and bumps it.
	Replace(ctx context.Context, task domain.Task) error
	Remove(ctx context.Context, id string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type TaskRepository interface {
	GetAll(ctx context.Context, query string, completed *bool) ([]domain.Task, error)
	GetByID(ctx context.Context, id string) (domain.Task, error)
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	Update(ctx context.Context, task domain.Task) (domain.Task, error)
	Delete(ctx context.Context, id string) error
}

type TaskService interface {
	ListTasks(ctx context.Context, query string, completed *bool) ([]response.TaskResponse, error)
	GetTask(ctx context.Context, id string) (response.TaskResponse, error)
	CreateTask(ctx context.Context, req request.CreateTaskRequest) (response.TaskResponse, error)
	UpdateTask(ctx context.Context, id string, req request.UpdateTaskRequest) (response.TaskResponse, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}
