package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTemplates handles GET /api/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.services.Templates.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "list templates", err)
		return
	}
	ok(c, http.StatusOK, templates)
}

// GetTemplate handles GET /api/templates/:payer_id
func (h *Handlers) GetTemplate(c *gin.Context) {
	tmpl, err := h.services.Templates.Get(c.Request.Context(), c.Param("payer_id"))
	if err != nil {
		h.respondError(c, "get template", err)
		return
	}
	ok(c, http.StatusOK, tmpl)
}
