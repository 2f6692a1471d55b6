package domain

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestTaskFilter_Matches(t *testing.T) {
	task := Task{Title: "Buy Milk", Description: "From the Corner store", IsCompleted: true}

	t.Run("should match everything with the zero filter", func(t *testing.T) {
		assert.True(t, TaskFilter{}.Matches(task))
	})

	t.Run("should match title case-insensitively", func(t *testing.T) {
		assert.True(t, TaskFilter{Query: "mILk"}.Matches(task))
	})

	t.Run("should match description case-insensitively", func(t *testing.T) {
		assert.True(t, TaskFilter{Query: "corner"}.Matches(task))
	})

	t.Run("should treat a blank query as absent", func(t *testing.T) {
		assert.True(t, TaskFilter{Query: "   "}.Matches(task))
	})

	t.Run("should compose query and completion with AND", func(t *testing.T) {
		assert.False(t, TaskFilter{Query: "milk", Completed: boolPtr(false)}.Matches(task))
		assert.True(t, TaskFilter{Query: "milk", Completed: boolPtr(true)}.Matches(task))
		assert.False(t, TaskFilter{Query: "bread", Completed: boolPtr(true)}.Matches(task))
	})
}

func TestDueBefore(t *testing.T) {
	RegisterTestingT(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	early := base.Add(time.Hour)
	late := base.Add(48 * time.Hour)

	tasks := []Task{
		{ID: "c", DueDate: nil, CreatedAt: base},
		{ID: "b", DueDate: &late, CreatedAt: base},
		{ID: "a", DueDate: &early, CreatedAt: base.Add(time.Minute)},
		{ID: "d", DueDate: &early, CreatedAt: base},
	}

	sort.SliceStable(tasks, func(i, j int) bool { return DueBefore(tasks[i], tasks[j]) })

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}

	Expect(ids).To(Equal([]string{"d", "a", "b", "c"}))
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Task{DueDate: &past}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &past, IsCompleted: true}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &future}).IsOverdue(now))
	assert.False(t, (&Task{}).IsOverdue(now))
}

func TestTask_CheckInvariants(t *testing.T) {
	RegisterTestingT(t)

	Expect((&Task{Title: "ok"}).CheckInvariants()).To(Succeed())

	err := (&Task{Title: "   ", Description: strings.Repeat("x", MaxDescriptionLength+1)}).CheckInvariants()
	Expect(err).To(HaveOccurred())
	Expect(errors.Is(err, ErrValidation)).To(BeTrue())

	var verr *ValidationError
	Expect(errors.As(err, &verr)).To(BeTrue())
	Expect(verr.Fields).To(HaveLen(2))

	err = (&Task{Title: strings.Repeat("é", MaxTitleLength)}).CheckInvariants()
	Expect(err).ToNot(HaveOccurred())

	err = (&Task{Title: strings.Repeat("é", MaxTitleLength+1)}).CheckInvariants()
	Expect(IsValidation(err)).To(BeTrue())
}

func TestTaskFilter_LikePattern(t *testing.T) {
	RegisterTestingT(t)

	Expect(TaskFilter{Query: "  Milk "}.LikePattern()).To(Equal("%milk%"))
	Expect(TaskFilter{Query: "50%_off"}.LikePattern()).To(Equal(`%50\%\_off%`))
	Expect(TaskFilter{Query: `a\b`}.LikePattern()).To(Equal(`%a\\b%`))
}

func TestTask_NormalizeTimes(t *testing.T) {
	zone := time.FixedZone("UTC-3", -3*3600)
	due := time.Date(2030, 6, 1, 8, 0, 0, 555555555, zone)
	task := Task{CreatedAt: time.Date(2030, 5, 1, 21, 30, 0, 123456789, zone), DueDate: &due}

	task.NormalizeTimes()

	assert.Equal(t, time.Date(2030, 5, 2, 0, 30, 0, 123456000, time.UTC), task.CreatedAt)
	assert.Equal(t, time.Date(2030, 6, 1, 11, 0, 0, 555555000, time.UTC), *task.DueDate)
	assert.Equal(t, 555555555, due.Nanosecond())

	undated := Task{CreatedAt: time.Now()}
	undated.NormalizeTimes()
	assert.Nil(t, undated.DueDate)
}
