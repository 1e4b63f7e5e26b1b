package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/credentialing/internal/application/service"
	"github.com/garyjia/credentialing/internal/domain/entity"
)

// CreateTaskRequest is the body of POST /api/providers/:provider_id/tasks
type CreateTaskRequest struct {
	PayerID       string `json:"payer_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	DueDate       *Date  `json:"due_date"`
	EstimatedDays int    `json:"estimated_days"`
	Notes         string `json:"notes"`
	AssignedTo    string `json:"assigned_to"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/:id. Absent fields are left untouched.
type UpdateTaskRequest struct {
	Status               *entity.TaskStatus `json:"status"`
	Notes                *string            `json:"notes"`
	AssignedTo           *string            `json:"assigned_to"`
	DueDate              *Date              `json:"due_date"`
	ApplicationReference *string            `json:"application_reference"`
	DocumentURL          *string            `json:"document_url"`
}

// ListTasks handles GET /api/providers/:provider_id/tasks[?payer_id=]
func (h *Handlers) ListTasks(c *gin.Context) {
	var payerID *string
	if p, present := c.GetQuery("payer_id"); present {
		payerID = &p
	}

	tasks, err := h.services.Tasks.ListTasks(c.Request.Context(), c.Param("provider_id"), payerID)
	if err != nil {
		h.respondError(c, "list tasks", err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

// CreateTask handles POST /api/providers/:provider_id/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.services.Tasks.CreateTask(c.Request.Context(), service.CreateTaskRequest{
		ProviderID:    c.Param("provider_id"),
		PayerID:       req.PayerID,
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate.timePtr(),
		EstimatedDays: req.EstimatedDays,
		Notes:         req.Notes,
		AssignedTo:    req.AssignedTo,
		Actor:         operator(c),
	})
	if err != nil {
		h.respondError(c, "create task", err)
		return
	}
	ok(c, http.StatusCreated, task)
}

// GetTask handles GET /api/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	task, err := h.services.Tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get task", err)
		return
	}
	ok(c, http.StatusOK, task)
}

// UpdateTask handles PATCH /api/tasks/:id
func (h *Handlers) UpdateTask(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.services.Tasks.UpdateTask(c.Request.Context(), id, service.TaskUpdate{
		Status:               req.Status,
		Notes:                req.Notes,
		AssignedTo:           req.AssignedTo,
		DueDate:              req.DueDate.timePtr(),
		ApplicationReference: req.ApplicationReference,
		DocumentURL:          req.DocumentURL,
		Actor:                operator(c),
	})
	if err != nil {
		h.respondError(c, "update task", err)
		return
	}
	ok(c, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *Handlers) DeleteTask(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	if err := h.services.Tasks.DeleteTask(c.Request.Context(), id, operator(c)); err != nil {
		h.respondError(c, "delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TaskHistory handles GET /api/tasks/:id/history
func (h *Handlers) TaskHistory(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	history, err := h.services.Tasks.TaskHistory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "task history", err)
		return
	}
	ok(c, http.StatusOK, history)
}
