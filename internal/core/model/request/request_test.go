package request

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueDate_UnmarshalJSON(t *testing.T) {
	RegisterTestingT(t)

	cases := map[string]time.Time{
		`"2026-03-04"`:                time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		`"2026-03-04T10:20:30Z"`:      time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC),
		`"2026-03-04T10:20:30+02:00"`: time.Date(2026, 3, 4, 8, 20, 30, 0, time.UTC),
		`"2026-03-04T10:20:30.5Z"`:    time.Date(2026, 3, 4, 10, 20, 30, 500000000, time.UTC),
		`"2026-03-04T10:20:30"`:       time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC),
	}

	for raw, want := range cases {
		var d DueDate
		Expect(d.UnmarshalJSON([]byte(raw))).To(Succeed(), raw)
		Expect(d.Ptr()).ToNot(BeNil())
		Expect(d.Ptr().Equal(want)).To(BeTrue(), raw)
	}
}

func TestDueDate_RejectsGarbage(t *testing.T) {
	var d DueDate
	assert.Error(t, d.UnmarshalJSON([]byte(`"next tuesday"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`42`)))
}

func TestDueDate_EmptyIsUnset(t *testing.T) {
	var d DueDate
	require.NoError(t, d.UnmarshalJSON([]byte(`""`)))
	assert.Nil(t, d.Ptr())

	var nilDate *DueDate
	assert.Nil(t, nilDate.Ptr())
}

func TestUpdateTaskRequest_PartialDecode(t *testing.T) {
	var req UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"isCompleted": false}`), &req))

	assert.Nil(t, req.Title)
	assert.Nil(t, req.Description)
	assert.Nil(t, req.DueDate)
	require.NotNil(t, req.IsCompleted)
	assert.False(t, *req.IsCompleted)
	assert.False(t, req.IsEmpty())

	var empty UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate": null}`), &empty))
	assert.True(t, empty.IsEmpty())
}
