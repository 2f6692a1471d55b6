package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/port"
)

var errBatchClosed = errors.New("memory: batch already closed")

// Store keeps tasks in a map. Batches are serialized by writeMu and become
// visible to readers in one step on Commit.
type Store struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	tasks   map[string]domain.Task
}

func NewStore() *Store {
	return &Store{tasks: make(map[string]domain.Task)}
}

func (s *Store) Query(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Matches(t) {
			result = append(result, t)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return domain.DueBefore(result[i], result[j])
	})

	return result, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *Store) Begin(ctx context.Context) (port.TaskBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.writeMu.Lock()
	return &batch{store: s, staged: make(map[string]*domain.Task)}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

type batch struct {
	store  *Store
	staged map[string]*domain.Task
	order  []string
	closed bool
}

// lookup sees staged changes first, then committed state.
func (b *batch) lookup(id string) (domain.Task, bool) {
	if t, ok := b.staged[id]; ok {
		if t == nil {
			return domain.Task{}, false
		}
		return *t, true
	}
	return b.store.get(id)
}

func (b *batch) stage(id string, t *domain.Task) {
	if _, ok := b.staged[id]; !ok {
		b.order = append(b.order, id)
	}
	b.staged[id] = t
}

func (b *batch) Insert(ctx context.Context, task domain.Task) error {
	if b.closed {
		return errBatchClosed
	}
	if _, exists := b.lookup(task.ID); exists {
		return domain.ErrConflict
	}
	b.stage(task.ID, &task)
	return nil
}

func (b *batch) Replace(ctx context.Context, task domain.Task) error {
	if b.closed {
		return errBatchClosed
	}
	current, exists := b.lookup(task.ID)
	if !exists {
		return domain.ErrNotFound
	}
	if current.Version != task.Version {
		return domain.ErrConflict
	}
	task.Version++
	b.stage(task.ID, &task)
	return nil
}

func (b *batch) Remove(ctx context.Context, id string) error {
	if b.closed {
		return errBatchClosed
	}
	if _, exists := b.lookup(id); !exists {
		return domain.ErrNotFound
	}
	b.stage(id, nil)
	return nil
}

func (b *batch) Commit(ctx context.Context) error {
	if b.closed {
		return errBatchClosed
	}
	b.closed = true
	defer b.store.writeMu.Unlock()

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, id := range b.order {
		if t := b.staged[id]; t != nil {
			b.store.tasks[id] = *t
		} else {
			delete(b.store.tasks, id)
		}
	}
	return nil
}

func (b *batch) Rollback(ctx context.Context) error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.store.writeMu.Unlock()
	return nil
}

func (s *Store) get(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}
