// Package storetest holds the behaviour every port.TaskStore must share.
// Each adapter runs it from its own tests with a fresh store per test.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/port"
)

type StoreSuite struct {
	suite.Suite
	NewStore func() port.TaskStore
	Store    port.TaskStore
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Store = s.NewStore()
}

func (s *StoreSuite) TearDownTest() {
	if s.Store != nil {
		s.Store.Close()
	}
}

func newTask(title string, created time.Time) domain.Task {
	return domain.Task{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: domain.Timestamp(created),
		Version:   1,
	}
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (s *StoreSuite) insert(tasks ...domain.Task) {
	b, err := s.Store.Begin(s.ctx)
	s.Require().NoError(err)
	for _, t := range tasks {
		s.Require().NoError(b.Insert(s.ctx, t))
	}
	s.Require().NoError(b.Commit(s.ctx))
}

func (s *StoreSuite) TestQuery_Empty() {
	tasks, err := s.Store.Query(s.ctx, domain.TaskFilter{})

	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *StoreSuite) TestInsert_RoundTrip() {
	task := newTask("Buy milk", time.Now())
	task.Description = "2 liters"
	task.DueDate = date(2030, time.January, 15)
	s.insert(task)

	got, err := s.Store.GetByID(s.ctx, task.ID)

	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)
	s.Equal("Buy milk", got.Title)
	s.Equal("2 liters", got.Description)
	s.False(got.IsCompleted)
	s.Require().NotNil(got.DueDate)
	s.True(task.DueDate.Equal(*got.DueDate))
	s.True(task.CreatedAt.Equal(got.CreatedAt))
	s.Equal(1, got.Version)
}

func (s *StoreSuite) TestGetByID_Missing() {
	_, err := s.Store.GetByID(s.ctx, uuid.NewString())

	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *StoreSuite) TestQuery_OrderedByDueDateWithUndatedLast() {
	base := time.Now().Add(-time.Hour)

	a := newTask("a", base)
	a.DueDate = date(2030, time.March, 1)
	b := newTask("b", base.Add(time.Second))
	c := newTask("c", base.Add(2*time.Second))
	c.DueDate = date(2030, time.January, 1)
	d := newTask("d", base.Add(3*time.Second))

	s.insert(a, b, c, d)

	tasks, err := s.Store.Query(s.ctx, domain.TaskFilter{})
	s.Require().NoError(err)

	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	s.Equal([]string{"c", "a", "b", "d"}, titles)
}

func (s *StoreSuite) TestQuery_TextFilterIsCaseInsensitiveOverTitleAndDescription() {
	now := time.Now()
	groceries := newTask("Groceries", now)
	report := newTask("Write report", now.Add(time.Second))
	report.Description = "include GROCERY budget"
	other := newTask("Walk dog", now.Add(2*time.Second))

	s.insert(groceries, report, other)

	tasks, err := s.Store.Query(s.ctx, domain.TaskFilter{Query: "grocer"})
	s.Require().NoError(err)

	s.Len(tasks, 2)
	for _, t := range tasks {
		s.NotEqual(other.ID, t.ID)
	}
}

func (s *StoreSuite) TestQuery_TextFilterFoldsNonASCII() {
	now := time.Now()
	school := newTask("ÉCOLE Straße", now)
	notes := newTask("Notes", now.Add(time.Second))
	notes.Description = "ÜBER Café"
	other := newTask("Ecole", now.Add(2*time.Second))

	s.insert(school, notes, other)

	tasks, err := s.Store.Query(s.ctx, domain.TaskFilter{Query: "école"})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(school.ID, tasks[0].ID)

	tasks, err = s.Store.Query(s.ctx, domain.TaskFilter{Query: "über CAFÉ"})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(notes.ID, tasks[0].ID)
}

func (s *StoreSuite) TestQuery_TextFilterTreatsWildcardsLiterally() {
	now := time.Now()
	percent := newTask("100% done", now)
	plain := newTask("1000 done", now.Add(time.Second))
	s.insert(percent, plain)

	tasks, err := s.Store.Query(s.ctx, domain.TaskFilter{Query: "0%"})
	s.Require().NoError(err)

	s.Require().Len(tasks, 1)
	s.Equal(percent.ID, tasks[0].ID)

	tasks, err = s.Store.Query(s.ctx, domain.TaskFilter{Query: "1_0"})
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *StoreSuite) TestQuery_CompletedFilterComposesWithText() {
	now := time.Now()
	done := newTask("report done", now)
	done.IsCompleted = true
	open := newTask("report open", now.Add(time.Second))
	unrelated := newTask("laundry", now.Add(2*time.Second))
	unrelated.IsCompleted = true
	s.insert(done, open, unrelated)

	completed := true
	tasks, err := s.Store.Query(s.ctx, domain.TaskFilter{Query: "report", Completed: &completed})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(done.ID, tasks[0].ID)

	pending := false
	tasks, err = s.Store.Query(s.ctx, domain.TaskFilter{Completed: &pending})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(open.ID, tasks[0].ID)
}

func (s *StoreSuite) TestBatch_UncommittedWritesAreInvisible() {
	task := newTask("pending", time.Now())

	b, err := s.Store.Begin(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(b.Insert(s.ctx, task))
	s.Require().NoError(b.Rollback(s.ctx))

	_, err = s.Store.GetByID(s.ctx, task.ID)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *StoreSuite) TestReplace_BumpsVersion() {
	task := newTask("draft", time.Now())
	s.insert(task)

	task.Title = "final"
	task.IsCompleted = true
	b, err := s.Store.Begin(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(b.Replace(s.ctx, task))
	s.Require().NoError(b.Commit(s.ctx))

	got, err := s.Store.GetByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("final", got.Title)
	s.True(got.IsCompleted)
	s.Equal(2, got.Version)
}

func (s *StoreSuite) TestReplace_StaleVersionConflicts() {
	task := newTask("draft", time.Now())
	s.insert(task)

	stale := task
	stale.Version = 7
	b, err := s.Store.Begin(s.ctx)
	s.Require().NoError(err)
	err = b.Replace(s.ctx, stale)
	s.ErrorIs(err, domain.ErrConflict)
	s.Require().NoError(b.Rollback(s.ctx))
}

func (s *StoreSuite) TestReplace_MissingIsNotFound() {
	b, err := s.Store.Begin(s.ctx)
	s.Require().NoError(err)
	err = b.Replace(s.ctx, newTask("ghost", time.Now()))
	s.ErrorIs(err, domain.ErrNotFound)
	s.Require().NoError(b.Rollback(s.ctx))
}

func (s *StoreSuite) TestRemove() {
	task := newTask("bye", time.Now())
	s.insert(task)

	b, err := s.Store.Begin(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(b.Remove(s.ctx, task.ID))
	s.Require().NoError(b.Commit(s.ctx))

	_, err = s.Store.GetByID(s.ctx, task.ID)
	s.ErrorIs(err, domain.ErrNotFound)

	b, err = s.Store.Begin(s.ctx)
	s.Require().NoError(err)
	s.ErrorIs(b.Remove(s.ctx, task.ID), domain.ErrNotFound)
	s.Require().NoError(b.Rollback(s.ctx))
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.Store.Ping(s.ctx))
}

func (s *StoreSuite) TestConcurrentInserts() {
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := s.Store.Begin(s.ctx)
			if err != nil {
				errs <- err
				return
			}
			if err := b.Insert(s.ctx, newTask("parallel", time.Now())); err != nil {
				b.Rollback(s.ctx)
				errs <- err
				return
			}
			errs <- b.Commit(s.ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(s.T(), err)
	}

	tasks, err := s.Store.Query(s.ctx, domain.TaskFilter{Query: "parallel"})
	s.Require().NoError(err)
	s.Len(tasks, workers)
}
