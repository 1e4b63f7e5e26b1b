package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/credentialing/internal/application/service"
	"github.com/garyjia/credentialing/internal/domain/entity"
	domainwf "github.com/garyjia/credentialing/internal/domain/workflow"
	"github.com/garyjia/credentialing/pkg/utils"
)

// OperatorHeader identifies the operator performing a mutation
const OperatorHeader = "X-Operator"

const operatorKey = "operator"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	exporter ProgressExporter
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, exporter ProgressExporter, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		exporter: exporter,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// requireOperator rejects mutations that do not name the operator
func requireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := utils.SanitizeString(c.GetHeader(OperatorHeader))
		if operator == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   OperatorHeader + " header is required",
			})
			return
		}
		c.Set(operatorKey, operator)
		c.Next()
	}
}

// validateIdentifiers rejects malformed provider and payer path parameters
func validateIdentifiers() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range []string{"provider_id", "payer_id"} {
			value, present := c.Params.Get(name)
			if !present {
				continue
			}
			if err := utils.ValidateIdentifier(name, value); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, Response{
					Success: false,
					Error:   err.Error(),
				})
				return
			}
		}
		c.Next()
	}
}

func operator(c *gin.Context) string {
	return c.GetString(operatorKey)
}

// respondError maps service errors onto HTTP status codes
func (h *Handlers) respondError(c *gin.Context, action string, err error) {
	var transitionErr *service.TransitionError
	var preconditionErr *service.PreconditionError

	status := http.StatusInternalServerError
	resp := Response{Success: false, Error: err.Error()}

	switch {
	case errors.As(err, &transitionErr):
		status = http.StatusConflict
		resp.Details = transitionErr
	case errors.As(err, &preconditionErr):
		status = http.StatusUnprocessableEntity
		resp.Details = preconditionErr
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, entity.ErrTemplateInvalid),
		errors.Is(err, domainwf.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrDuplicateApplication):
		status = http.StatusConflict
	default:
		resp.Error = action + " failed"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "action", action, "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

func parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid task ID")
		return 0, false
	}
	return id, true
}

// Date accepts either a calendar date (2006-01-02) or an RFC 3339 timestamp
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = entity.Day(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

// timePtr converts an optional request date to the service representation
func (d *Date) timePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
