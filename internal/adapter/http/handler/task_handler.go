package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	. "taskmanager/internal/adapter/http/helper"
	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/model/request"
	"taskmanager/internal/core/port"
	"taskmanager/pkg/logger"
	. "taskmanager/pkg/tracing"
)

const BasePath = "/api/v1/tasks"

type TaskHandler struct {
	svc    port.TaskService
	Logger *logger.Logger
}

func NewTaskHandler(svc port.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		Logger: logger,
	}
}

func (h *TaskHandler) Register(r gin.IRouter) {
	r.GET("/tasks", h.ListTasks)
	r.GET("/tasks/:id", h.GetTask)
	r.POST("/tasks", h.CreateTask)
	r.PUT("/tasks/:id", h.UpdateTask)
	r.DELETE("/tasks/:id", h.DeleteTask)
}

// ListTasks handles GET /tasks?query=&completed=
func (h *TaskHandler) ListTasks(c *gin.Context) {
	ctx, span := StartSpan(c.Request.Context(), "handler.task.ListTasks",
		attribute.String("handler.operation", "ListTasks"),
		attribute.String("handler.path", c.FullPath()),
	)
	defer span.End()

	var completed *bool
	if raw := strings.TrimSpace(c.Query("completed")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			SendBadRequestError(c, "completed", "completed must be true or false")
			return
		}
		completed = &v
	}

	tasks, err := h.svc.ListTasks(ctx, c.Query("query"), completed)
	if err != nil {
		Fail(span, err)
		SendDomainError(c, h.Logger, err)
		return
	}

	span.SetAttributes(attribute.Int("response.count", len(tasks)))
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.svc.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		SendDomainError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	ctx, span := StartSpan(c.Request.Context(), "handler.task.CreateTask",
		attribute.String("handler.operation", "CreateTask"),
	)
	defer span.End()

	var req request.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequestError(c, "body", "request body must be a valid task JSON object")
		return
	}

	task, err := h.svc.CreateTask(ctx, req)
	if err != nil {
		if !domain.IsValidation(err) {
			Fail(span, err)
		}
		SendDomainError(c, h.Logger, err)
		return
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	c.Header("Location", BasePath+"/"+task.ID)
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	ctx, span := StartSpan(c.Request.Context(), "handler.task.UpdateTask",
		attribute.String("handler.operation", "UpdateTask"),
		attribute.String("task.id", c.Param("id")),
	)
	defer span.End()

	var req request.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequestError(c, "body", "request body must be a valid task JSON object")
		return
	}

	task, err := h.svc.UpdateTask(ctx, c.Param("id"), req)
	if err != nil {
		SendDomainError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	deleted, err := h.svc.DeleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		SendDomainError(c, h.Logger, err)
		return
	}

	if !deleted {
		SendNotFoundError(c, domain.ErrNotFound.Error())
		return
	}

	c.Status(http.StatusNoContent)
}
