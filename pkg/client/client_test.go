package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/internal/core/model/request"
	"taskmanager/internal/core/model/response"
)

func TestClient_ListTasksSendsFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/tasks", r.URL.Path)
		assert.Equal(t, "milk", r.URL.Query().Get("query"))
		assert.Equal(t, "true", r.URL.Query().Get("completed"))

		_ = json.NewEncoder(w).Encode([]response.TaskResponse{{ID: "1", Title: "Buy milk", IsCompleted: true}})
	}))
	defer srv.Close()

	completed := true
	tasks, err := New(srv.URL).ListTasks(context.Background(), "milk", &completed)

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
}

func TestClient_CreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body request.CreateTaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Write report", body.Title)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(response.TaskResponse{ID: "abc", Title: body.Title})
	}))
	defer srv.Close()

	task, err := New(srv.URL+"/").CreateTask(context.Background(), request.CreateTaskRequest{Title: "Write report"})

	require.NoError(t, err)
	assert.Equal(t, "abc", task.ID)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(response.ErrorResponse{Error: response.ResponseError{
				Code:   "NOT_FOUND",
				Errors: []response.ValidationError{{Message: "task not found"}},
			}})
		case http.MethodPut:
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(response.ErrorResponse{Error: response.ResponseError{Code: "CONFLICT"}})
		}
	}))
	defer srv.Close()

	c := New(srv.URL)

	_, err := c.GetTask(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.Contains(t, err.Error(), "task not found")

	title := "x"
	_, err = c.UpdateTask(context.Background(), "id", request.UpdateTaskRequest{Title: &title})
	assert.True(t, IsConflict(err))
}

func TestClient_DeleteTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/tasks/abc", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	assert.NoError(t, c.DeleteTask(context.Background(), "abc"))
}
