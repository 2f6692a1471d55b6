package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"taskmanager/internal/adapter/database/memory"
	"taskmanager/internal/adapter/database/repository"
	"taskmanager/internal/adapter/http/validation"
	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/model/request"
	"taskmanager/internal/core/port"
	"taskmanager/internal/core/service"
)

type TaskServiceTestSuite struct {
	suite.Suite
	Service *service.TaskService
	Repo    port.TaskRepository
	Cache   port.CacheRepository
	ctx     context.Context
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.Repo = repository.NewTaskRepository(memory.NewStore(), "memory", nil)
	s.Cache = memory.NewCacheRepository(time.Minute)
	s.Service = service.NewTaskService(s.Repo, validation.New(), s.Cache, nil)
}

func TestTaskServiceTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TaskServiceTestSuite))
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func (s *TaskServiceTestSuite) create(title string) string {
	task, err := s.Service.CreateTask(s.ctx, request.CreateTaskRequest{Title: title})
	s.Require().NoError(err)
	return task.ID
}

func (s *TaskServiceTestSuite) TestListTasks_Empty() {
	tasks, err := s.Service.ListTasks(s.ctx, "", nil)

	Expect(err).To(BeNil())
	Expect(tasks).NotTo(BeNil())
	Expect(tasks).To(BeEmpty())
}

func (s *TaskServiceTestSuite) TestCreateTask_AssignsIdentityAndTrims() {
	before := time.Now().UTC()

	task, err := s.Service.CreateTask(s.ctx, request.CreateTaskRequest{
		Title:       "  Call mom  ",
		Description: strPtr("Sunday"),
		DueDate:     request.NewDueDate(time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)),
	})

	Expect(err).To(BeNil())
	_, parseErr := uuid.Parse(task.ID)
	Expect(parseErr).To(BeNil())
	Expect(task.Title).To(Equal("Call mom"))
	Expect(task.Description).To(Equal("Sunday"))
	Expect(task.IsCompleted).To(BeFalse())
	Expect(task.CreatedAt).To(BeTemporally(">=", before.Add(-time.Second)))
	Expect(task.DueDate).NotTo(BeNil())
}

func (s *TaskServiceTestSuite) TestCreateTask_InvalidIsNotPersisted() {
	_, err := s.Service.CreateTask(s.ctx, request.CreateTaskRequest{Title: strings.Repeat("a", 101)})

	var verr *domain.ValidationError
	Expect(errors.As(err, &verr)).To(BeTrue())
	Expect(verr.Fields[0].Field).To(Equal("title"))

	tasks, _ := s.Service.ListTasks(s.ctx, "", nil)
	Expect(tasks).To(BeEmpty())
}

func (s *TaskServiceTestSuite) TestListTasks_SeesWritesDespiteCache() {
	s.create("first")

	tasks, err := s.Service.ListTasks(s.ctx, "", nil)
	Expect(err).To(BeNil())
	Expect(tasks).To(HaveLen(1))

	id := s.create("second")
	tasks, _ = s.Service.ListTasks(s.ctx, "", nil)
	Expect(tasks).To(HaveLen(2))

	_, err = s.Service.UpdateTask(s.ctx, id, request.UpdateTaskRequest{IsCompleted: boolPtr(true)})
	Expect(err).To(BeNil())
	tasks, _ = s.Service.ListTasks(s.ctx, "", boolPtr(true))
	Expect(tasks).To(HaveLen(1))

	deleted, err := s.Service.DeleteTask(s.ctx, id)
	Expect(err).To(BeNil())
	Expect(deleted).To(BeTrue())
	tasks, _ = s.Service.ListTasks(s.ctx, "", nil)
	Expect(tasks).To(HaveLen(1))
}

// interleavingCache runs beforeSet once, ahead of the first Set it sees.
type interleavingCache struct {
	port.CacheRepository
	beforeSet func()
}

func (c *interleavingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	return c.CacheRepository.Set(ctx, key, value, ttl)
}

func (s *TaskServiceTestSuite) TestListTasks_WriteDuringCacheFillIsNotMasked() {
	cache := &interleavingCache{CacheRepository: s.Cache}
	svc := service.NewTaskService(s.Repo, validation.New(), cache, nil)
	cache.beforeSet = func() {
		_, err := svc.CreateTask(s.ctx, request.CreateTaskRequest{Title: "landed mid-fill"})
		s.Require().NoError(err)
	}

	stale, err := svc.ListTasks(s.ctx, "", nil)
	s.Require().NoError(err)
	Expect(stale).To(BeEmpty())

	tasks, err := svc.ListTasks(s.ctx, "", nil)

	Expect(err).To(BeNil())
	Expect(tasks).To(HaveLen(1))
	Expect(tasks[0].Title).To(Equal("landed mid-fill"))
}

func (s *TaskServiceTestSuite) TestListTasks_BlankQueryMeansNoFilter() {
	s.create("alpha")
	s.create("beta")

	tasks, err := s.Service.ListTasks(s.ctx, "   ", nil)

	Expect(err).To(BeNil())
	Expect(tasks).To(HaveLen(2))
}

func (s *TaskServiceTestSuite) TestGetTask() {
	id := s.create("lookup")

	task, err := s.Service.GetTask(s.ctx, id)
	Expect(err).To(BeNil())
	Expect(task.Title).To(Equal("lookup"))

	_, err = s.Service.GetTask(s.ctx, uuid.NewString())
	Expect(domain.IsNotFound(err)).To(BeTrue())

	_, err = s.Service.GetTask(s.ctx, "nope")
	Expect(domain.IsNotFound(err)).To(BeTrue())
}

func (s *TaskServiceTestSuite) TestUpdateTask_MergesOnlyGivenFields() {
	created, _ := s.Service.CreateTask(s.ctx, request.CreateTaskRequest{
		Title:       "Plan trip",
		Description: strPtr("book hotel"),
		DueDate:     request.NewDueDate(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)),
	})

	updated, err := s.Service.UpdateTask(s.ctx, created.ID, request.UpdateTaskRequest{Title: strPtr(" Plan vacation ")})

	Expect(err).To(BeNil())
	Expect(updated.Title).To(Equal("Plan vacation"))
	Expect(updated.Description).To(Equal("book hotel"))
	Expect(updated.DueDate).NotTo(BeNil())
	Expect(updated.DueDate.Equal(*created.DueDate)).To(BeTrue())
	Expect(updated.CreatedAt.Equal(created.CreatedAt)).To(BeTrue())
}

func (s *TaskServiceTestSuite) TestUpdateTask_EmptyRequestReturnsTask() {
	id := s.create("unchanged")

	task, err := s.Service.UpdateTask(s.ctx, id, request.UpdateTaskRequest{})

	Expect(err).To(BeNil())
	Expect(task.Title).To(Equal("unchanged"))
}

func (s *TaskServiceTestSuite) TestUpdateTask_Errors() {
	_, err := s.Service.UpdateTask(s.ctx, uuid.NewString(), request.UpdateTaskRequest{Title: strPtr("x")})
	Expect(domain.IsNotFound(err)).To(BeTrue())

	id := s.create("valid")
	_, err = s.Service.UpdateTask(s.ctx, id, request.UpdateTaskRequest{Title: strPtr("  ")})
	Expect(domain.IsValidation(err)).To(BeTrue())

	task, _ := s.Service.GetTask(s.ctx, id)
	Expect(task.Title).To(Equal("valid"))
}

type conflictingRepo struct {
	port.TaskRepository
	updates int
}

func (r *conflictingRepo) Update(ctx context.Context, task domain.Task) (domain.Task, error) {
	r.updates++
	return domain.Task{}, domain.ErrConflict
}

func (s *TaskServiceTestSuite) TestUpdateTask_ConflictIsNotRetried() {
	id := s.create("contested")
	repo := &conflictingRepo{TaskRepository: s.Repo}
	svc := service.NewTaskService(repo, validation.New(), s.Cache, nil)

	_, err := svc.UpdateTask(s.ctx, id, request.UpdateTaskRequest{IsCompleted: boolPtr(true)})

	Expect(errors.Is(err, domain.ErrConflict)).To(BeTrue())
	Expect(repo.updates).To(Equal(1))

	task, _ := s.Service.GetTask(s.ctx, id)
	Expect(task.IsCompleted).To(BeFalse())
}

func (s *TaskServiceTestSuite) TestUpdateTask_SequentialUpdatesMerge() {
	id := s.create("counter")

	_, err := s.Service.UpdateTask(s.ctx, id, request.UpdateTaskRequest{Description: strPtr("described")})
	assert.NoError(s.T(), err)
	_, err = s.Service.UpdateTask(s.ctx, id, request.UpdateTaskRequest{IsCompleted: boolPtr(true)})
	assert.NoError(s.T(), err)

	task, _ := s.Service.GetTask(s.ctx, id)
	Expect(task.Description).To(Equal("described"))
	Expect(task.IsCompleted).To(BeTrue())
}

func (s *TaskServiceTestSuite) TestDeleteTask_Missing() {
	deleted, err := s.Service.DeleteTask(s.ctx, uuid.NewString())
	Expect(err).To(BeNil())
	Expect(deleted).To(BeFalse())

	deleted, err = s.Service.DeleteTask(s.ctx, "garbage")
	Expect(err).To(BeNil())
	Expect(deleted).To(BeFalse())
}

func (s *TaskServiceTestSuite) TestCountOverdue() {
	now := time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)

	s.Service.CreateTask(s.ctx, request.CreateTaskRequest{Title: "late", DueDate: request.NewDueDate(now.AddDate(0, 0, -1))})
	s.Service.CreateTask(s.ctx, request.CreateTaskRequest{Title: "late but done", IsCompleted: true, DueDate: request.NewDueDate(now.AddDate(0, 0, -1))})
	s.Service.CreateTask(s.ctx, request.CreateTaskRequest{Title: "future", DueDate: request.NewDueDate(now.AddDate(0, 0, 1))})
	s.create("undated")

	n, err := s.Service.CountOverdue(s.ctx, now)

	Expect(err).To(BeNil())
	Expect(n).To(Equal(1))
}

func TestTaskService_UsesClock(t *testing.T) {
	RegisterTestingT(t)
	fixed := time.Date(2029, 12, 31, 23, 0, 0, 0, time.UTC)

	repo := repository.NewTaskRepository(memory.NewStore(), "memory", nil)
	svc := service.NewTaskService(repo, validation.New(), memory.NewNoopCache(), nil,
		service.WithClock(func() time.Time { return fixed }),
		service.WithCacheTTL(time.Second),
	)

	task, err := svc.CreateTask(context.Background(), request.CreateTaskRequest{Title: "clocked"})

	Expect(err).To(BeNil())
	Expect(task.CreatedAt).To(Equal(fixed))
}

func TestTaskService_TimestampsSurviveRoundTrip(t *testing.T) {
	RegisterTestingT(t)
	stamp := time.Date(2030, 3, 4, 5, 6, 7, 123456789, time.FixedZone("X", 3600))
	due := time.Date(2030, 4, 1, 9, 0, 0, 987654321, time.UTC)

	repo := repository.NewTaskRepository(memory.NewStore(), "memory", nil)
	svc := service.NewTaskService(repo, validation.New(), memory.NewNoopCache(), nil,
		service.WithClock(func() time.Time { return stamp }),
	)

	created, err := svc.CreateTask(context.Background(), request.CreateTaskRequest{
		Title:   "precise",
		DueDate: request.NewDueDate(due),
	})
	Expect(err).To(BeNil())
	Expect(created.CreatedAt).To(Equal(time.Date(2030, 3, 4, 4, 6, 7, 123456000, time.UTC)))
	Expect(*created.DueDate).To(Equal(time.Date(2030, 4, 1, 9, 0, 0, 987654000, time.UTC)))

	fetched, err := svc.GetTask(context.Background(), created.ID)
	Expect(err).To(BeNil())
	Expect(fetched).To(Equal(created))

	updated, err := svc.UpdateTask(context.Background(), created.ID, request.UpdateTaskRequest{
		DueDate: request.NewDueDate(due.Add(time.Hour)),
	})
	Expect(err).To(BeNil())
	Expect(updated.DueDate.Nanosecond() % 1000).To(Equal(0))
}
