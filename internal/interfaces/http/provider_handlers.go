package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/credentialing/internal/application/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GenerateRequest is the body of POST /api/providers/:provider_id/generate
type GenerateRequest struct {
	PayerIDs  []string `json:"payer_ids"`
	StartDate *Date    `json:"start_date,omitempty"`
}

// Generate handles POST /api/providers/:provider_id/generate
func (h *Handlers) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	providerID := c.Param("provider_id")
	h.logger.Info("Generating credentialing workflows",
		"provider_id", providerID,
		"payers", len(req.PayerIDs),
		"operator", operator(c))

	result, err := h.services.Generation.Generate(c.Request.Context(), service.GenerateRequest{
		ProviderID: providerID,
		PayerIDs:   req.PayerIDs,
		Actor:      operator(c),
		StartDate:  req.StartDate.timePtr(),
	})
	if err != nil {
		h.respondError(c, "generate", err)
		return
	}

	status := http.StatusOK
	if result.ApplicationsCreated > 0 {
		status = http.StatusCreated
	}
	ok(c, status, result)
}

// Progress handles GET /api/providers/:provider_id/progress
func (h *Handlers) Progress(c *gin.Context) {
	report, err := h.services.Progress.Progress(c.Request.Context(), c.Param("provider_id"))
	if err != nil {
		h.respondError(c, "progress", err)
		return
	}
	ok(c, http.StatusOK, report)
}

// ExportProgress handles GET /api/providers/:provider_id/progress/export
func (h *Handlers) ExportProgress(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, Response{Success: false, Error: "progress export is not configured"})
		return
	}

	providerID := c.Param("provider_id")
	report, err := h.services.Progress.Progress(c.Request.Context(), providerID)
	if err != nil {
		h.respondError(c, "progress", err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(report, &buf); err != nil {
		h.respondError(c, "export progress", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="progress-%s.xlsx"`, providerID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
