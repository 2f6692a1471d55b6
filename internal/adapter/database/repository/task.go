package repository

import (
	"context"
	"time"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/port"
	tel "taskmanager/internal/core/telemetry"
)

const entity = "task"

type TaskRepository struct {
	store     port.TaskStore
	telemetry port.Telemetry
	system    string
}

// NewTaskRepository runs every write as its own committed batch on store.
// system names the backing engine in span attributes.
func NewTaskRepository(store port.TaskStore, system string, telemetry port.Telemetry) port.TaskRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{
		store:     store,
		telemetry: telemetry,
		system:    system,
	}
}

func (r *TaskRepository) trace(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, func(error)) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	attrs["db.system"] = r.system
	attrs["db.table"] = "tasks"

	ctx, span := r.telemetry.StartRepositorySpan(ctx, operation, entity, attrs)
	start := time.Now()

	return ctx, func(err error) {
		if err != nil && !domain.IsNotFound(err) {
			span.SetStatus("error", err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus("ok", "")
		}
		r.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(start), unexpected(err))
		span.End()
	}
}

// unexpected drops the errors that are part of normal control flow.
func unexpected(err error) error {
	if domain.IsNotFound(err) || domain.IsConflict(err) {
		return nil
	}
	return err
}

func (r *TaskRepository) GetAll(ctx context.Context, query string, completed *bool) (tasks []domain.Task, err error) {
	attrs := map[string]interface{}{"filter.query": query}
	if completed != nil {
		attrs["filter.completed"] = *completed
	}
	ctx, done := r.trace(ctx, "GetAll", attrs)
	defer func() { done(err) }()

	return r.store.Query(ctx, domain.TaskFilter{Query: query, Completed: completed})
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (task domain.Task, err error) {
	ctx, done := r.trace(ctx, "GetByID", map[string]interface{}{"task.id": id})
	defer func() { done(err) }()

	return r.store.GetByID(ctx, id)
}

func (r *TaskRepository) Create(ctx context.Context, task domain.Task) (created domain.Task, err error) {
	ctx, done := r.trace(ctx, "Create", map[string]interface{}{"task.id": task.ID})
	defer func() { done(err) }()

	if err = task.CheckInvariants(); err != nil {
		return domain.Task{}, err
	}

	err = r.inBatch(ctx, func(b port.TaskBatch) error {
		return b.Insert(ctx, task)
	})
	if err != nil {
		return domain.Task{}, err
	}

	return task, nil
}

// Update persists task if its Version still matches and returns it with the bumped version.
func (r *TaskRepository) Update(ctx context.Context, task domain.Task) (updated domain.Task, err error) {
	ctx, done := r.trace(ctx, "Update", map[string]interface{}{
		"task.id":      task.ID,
		"task.version": task.Version,
	})
	defer func() { done(err) }()

	if err = task.CheckInvariants(); err != nil {
		return domain.Task{}, err
	}

	err = r.inBatch(ctx, func(b port.TaskBatch) error {
		return b.Replace(ctx, task)
	})
	if err != nil {
		return domain.Task{}, err
	}

	task.Version++
	return task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, done := r.trace(ctx, "Delete", map[string]interface{}{"task.id": id})
	defer func() { done(err) }()

	return r.inBatch(ctx, func(b port.TaskBatch) error {
		return b.Remove(ctx, id)
	})
}

func (r *TaskRepository) inBatch(ctx context.Context, fn func(port.TaskBatch) error) error {
	b, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(b); err != nil {
		b.Rollback(ctx)
		return err
	}

	return b.Commit(ctx)
}
