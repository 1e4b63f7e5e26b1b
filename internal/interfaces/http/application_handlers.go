package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/credentialing/internal/application/service"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/pkg/utils"
)

// UpdateApplicationRequest is the body of PATCH /api/providers/:provider_id/applications/:payer_id
type UpdateApplicationRequest struct {
	Status                *entity.ApplicationStatus `json:"status"`
	SubmittedDate         *Date                     `json:"application_submitted_date"`
	ExpectedDecisionDate  *Date                     `json:"expected_decision_date"`
	ApprovalDate          *Date                     `json:"approval_date"`
	DenialDate            *Date                     `json:"denial_date"`
	EffectiveDate         *Date                     `json:"effective_date"`
	ExternalApplicationID *string                   `json:"external_application_id"`
	PayerProviderID       *string                   `json:"payer_provider_id"`
	DenialReason          *string                   `json:"denial_reason"`
	ReapplicationEligible *bool                     `json:"reapplication_eligible"`
	ReapplicationDate     *Date                     `json:"reapplication_date"`
	Contact               *entity.SubmissionContact `json:"contact"`
	PortalURL             *string                   `json:"portal_url"`
	Notes                 *string                   `json:"notes"`
}

func (r *UpdateApplicationRequest) toUpdate(actor string) service.ApplicationUpdate {
	return service.ApplicationUpdate{
		Status:                r.Status,
		SubmittedDate:         r.SubmittedDate.timePtr(),
		ExpectedDecisionDate:  r.ExpectedDecisionDate.timePtr(),
		ApprovalDate:          r.ApprovalDate.timePtr(),
		DenialDate:            r.DenialDate.timePtr(),
		EffectiveDate:         r.EffectiveDate.timePtr(),
		ExternalApplicationID: r.ExternalApplicationID,
		PayerProviderID:       r.PayerProviderID,
		DenialReason:          r.DenialReason,
		ReapplicationEligible: r.ReapplicationEligible,
		ReapplicationDate:     r.ReapplicationDate.timePtr(),
		Contact:               r.Contact,
		PortalURL:             r.PortalURL,
		Notes:                 r.Notes,
		Actor:                 actor,
	}
}

// ListApplications handles GET /api/providers/:provider_id/applications
func (h *Handlers) ListApplications(c *gin.Context) {
	apps, err := h.services.Applications.ListApplications(c.Request.Context(), c.Param("provider_id"))
	if err != nil {
		h.respondError(c, "list applications", err)
		return
	}
	ok(c, http.StatusOK, apps)
}

// GetApplication handles GET /api/providers/:provider_id/applications/:payer_id
func (h *Handlers) GetApplication(c *gin.Context) {
	app, err := h.services.Applications.GetApplication(c.Request.Context(), c.Param("provider_id"), c.Param("payer_id"))
	if err != nil {
		h.respondError(c, "get application", err)
		return
	}
	ok(c, http.StatusOK, app)
}

// UpdateApplication handles PATCH /api/providers/:provider_id/applications/:payer_id
func (h *Handlers) UpdateApplication(c *gin.Context) {
	var req UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Contact != nil && req.Contact.Email != "" {
		if err := utils.ValidateEmail(req.Contact.Email); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	providerID, payerID := c.Param("provider_id"), c.Param("payer_id")
	result, err := h.services.Applications.UpdateApplication(c.Request.Context(), providerID, payerID, req.toUpdate(operator(c)))
	if err != nil {
		h.respondError(c, "update application", err)
		return
	}

	if len(result.Warnings) > 0 {
		h.logger.Info("Application updated with warnings",
			"provider_id", providerID,
			"payer_id", payerID,
			"warnings", result.Warnings)
	}
	ok(c, http.StatusOK, result)
}

// ApplicationHistory handles GET /api/providers/:provider_id/applications/:payer_id/history
func (h *Handlers) ApplicationHistory(c *gin.Context) {
	history, err := h.services.Applications.ApplicationHistory(c.Request.Context(), c.Param("provider_id"), c.Param("payer_id"))
	if err != nil {
		h.respondError(c, "application history", err)
		return
	}
	ok(c, http.StatusOK, history)
}
