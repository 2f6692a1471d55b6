package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/model/request"
	"taskmanager/internal/core/model/response"
	"taskmanager/internal/core/port"
	tel "taskmanager/internal/core/telemetry"
)

const (
	serviceName     = "task"
	listCachePrefix = "tasks:list:"
)

type TaskService struct {
	repo      port.TaskRepository
	validator port.Validator
	cache     port.CacheRepository
	telemetry port.Telemetry
	cacheTTL  time.Duration

	group      singleflight.Group
	generation atomic.Uint64
	now        func() time.Time
}

type Option func(*TaskService)

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *TaskService) { s.cacheTTL = ttl }
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func NewTaskService(repo port.TaskRepository, validator port.Validator, cache port.CacheRepository, telemetry port.Telemetry, opts ...Option) *TaskService {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	s := &TaskService{
		repo:      repo,
		validator: validator,
		cache:     cache,
		telemetry: telemetry,
		cacheTTL:  30 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) trace(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, func(error)) {
	ctx, span := s.telemetry.StartServiceSpan(ctx, serviceName, operation, attrs)
	start := time.Now()

	return ctx, func(err error) {
		s.telemetry.RecordServiceOperation(ctx, serviceName, operation, time.Since(start), err)
		span.End()
	}
}

func (s *TaskService) ListTasks(ctx context.Context, query string, completed *bool) (tasks []response.TaskResponse, err error) {
	query = strings.TrimSpace(query)

	ctx, done := s.trace(ctx, "ListTasks", map[string]interface{}{"filter.query": query})
	defer func() { done(err) }()

	key := listCacheKey(query, completed)

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	gen := s.generation.Load()
	flightKey := key + "@" + strconv.FormatUint(gen, 10)

	v, err, _ := s.group.Do(flightKey, func() (interface{}, error) {
		rows, err := s.repo.GetAll(ctx, query, completed)
		if err != nil {
			return nil, err
		}

		data := response.NewTaskResponses(rows)

		// a write since we started would make this result stale
		if s.generation.Load() == gen {
			s.toCache(ctx, key, data)

			// a write that landed during the Set may have already swept the prefix
			if s.generation.Load() != gen {
				s.dropCache(ctx, key)
			}
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]response.TaskResponse), nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (task response.TaskResponse, err error) {
	ctx, done := s.trace(ctx, "GetTask", map[string]interface{}{"task.id": id})
	defer func() { done(err) }()

	if !isTaskID(id) {
		return response.TaskResponse{}, domain.ErrNotFound
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return response.TaskResponse{}, err
	}

	return response.NewTaskResponse(t), nil
}

func (s *TaskService) CreateTask(ctx context.Context, req request.CreateTaskRequest) (task response.TaskResponse, err error) {
	ctx, done := s.trace(ctx, "CreateTask", nil)
	defer func() { done(err) }()

	if err = s.validate(req); err != nil {
		return response.TaskResponse{}, err
	}

	t := domain.Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		IsCompleted: req.IsCompleted,
		DueDate:     req.DueDate.Ptr(),
		CreatedAt:   s.now(),
		Version:     1,
	}
	t.NormalizeTimes()
	if req.Description != nil {
		t.Description = *req.Description
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		slog.ErrorContext(ctx, "Repository create failed", "error", err, "title", t.Title)
		return response.TaskResponse{}, err
	}

	s.invalidate(ctx)
	s.telemetry.RecordBusinessEvent(ctx, "task_created", "task", created.ID, map[string]interface{}{
		"has_due_date": created.DueDate != nil,
	})

	return response.NewTaskResponse(created), nil
}

// UpdateTask merges the non-nil fields of req into the stored task. A write
// that lost a version race surfaces as domain.ErrConflict.
func (s *TaskService) UpdateTask(ctx context.Context, id string, req request.UpdateTaskRequest) (task response.TaskResponse, err error) {
	ctx, done := s.trace(ctx, "UpdateTask", map[string]interface{}{"task.id": id})
	defer func() { done(err) }()

	if !isTaskID(id) {
		return response.TaskResponse{}, domain.ErrNotFound
	}

	if err = s.validate(req); err != nil {
		return response.TaskResponse{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return response.TaskResponse{}, err
	}

	if req.IsEmpty() {
		return response.NewTaskResponse(current), nil
	}

	updated, err := s.repo.Update(ctx, applyUpdate(current, req))
	if err != nil {
		return response.TaskResponse{}, err
	}

	s.invalidate(ctx)
	s.telemetry.RecordBusinessEvent(ctx, "task_updated", "task", updated.ID, map[string]interface{}{
		"version": updated.Version,
	})

	return response.NewTaskResponse(updated), nil
}

// DeleteTask reports false without error when no task has id.
func (s *TaskService) DeleteTask(ctx context.Context, id string) (deleted bool, err error) {
	ctx, done := s.trace(ctx, "DeleteTask", map[string]interface{}{"task.id": id})
	defer func() { done(err) }()

	if !isTaskID(id) {
		return false, nil
	}

	err = s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.invalidate(ctx)
	s.telemetry.RecordBusinessEvent(ctx, "task_deleted", "task", id, nil)

	return true, nil
}

// CountOverdue is used by the scheduler to refresh the overdue gauge.
func (s *TaskService) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	pending := false
	rows, err := s.repo.GetAll(ctx, "", &pending)
	if err != nil {
		return 0, err
	}

	n := 0
	for i := range rows {
		if rows[i].IsOverdue(now) {
			n++
		}
	}
	return n, nil
}

func applyUpdate(t domain.Task, req request.UpdateTaskRequest) domain.Task {
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.IsCompleted != nil {
		t.IsCompleted = *req.IsCompleted
	}
	if due := req.DueDate.Ptr(); due != nil {
		t.DueDate = due
	}
	t.NormalizeTimes()
	return t
}

func (s *TaskService) validate(req interface{}) error {
	err := s.validator.ValidateStruct(req)
	if err == nil {
		return nil
	}

	verr := &domain.ValidationError{}
	for _, fe := range s.validator.FormatValidationErrors(err) {
		verr.Add(fe.Field, fe.Message)
	}
	if !verr.HasErrors() {
		verr.Add("", err.Error())
	}
	return verr
}

func isTaskID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func listCacheKey(query string, completed *bool) string {
	state := "all"
	if completed != nil {
		state = strconv.FormatBool(*completed)
	}
	return listCachePrefix + "completed=" + state + ":q=" + strings.ToLower(query)
}

func (s *TaskService) fromCache(ctx context.Context, key string) ([]response.TaskResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	b, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Cache read failed", "key", key, "error", err)
		return nil, false
	}
	if b == nil {
		s.telemetry.RecordCacheLookup(ctx, "tasks_list", false)
		return nil, false
	}

	var data []response.TaskResponse
	if err := json.Unmarshal(b, &data); err != nil {
		slog.WarnContext(ctx, "Cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}

	s.telemetry.RecordCacheLookup(ctx, "tasks_list", true)
	return data, true
}

func (s *TaskService) toCache(ctx context.Context, key string, data []response.TaskResponse) {
	if s.cache == nil {
		return
	}

	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "Cache write failed", "key", key, "error", err)
	}
}

func (s *TaskService) dropCache(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "Cache delete failed", "key", key, "error", err)
	}
}

func (s *TaskService) invalidate(ctx context.Context) {
	s.generation.Add(1)

	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, listCachePrefix); err != nil {
		slog.WarnContext(ctx, "Cache invalidation failed", "error", err)
	}
}
