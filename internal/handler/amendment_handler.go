package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicef/etools-docflow/internal/service"
	"github.com/unicef/etools-docflow/pkg/response"
)

// AmendmentHandler manages shadow copy amendments.
type AmendmentHandler struct {
	amendments *service.AmendmentService
}

// NewAmendmentHandler constructs the handler.
func NewAmendmentHandler(amendments *service.AmendmentService) *AmendmentHandler {
	return &AmendmentHandler{amendments: amendments}
}

// Start godoc
// @Summary Start an amendment
// @Description Creates an editable shadow copy of the document, including its child rows, and flags the original as in amendment
// @Tags amendments
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Success 201 {object} response.Envelope{data=models.Document}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/amendments [post]
func (h *AmendmentHandler) Start(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	shadow, err := h.amendments.Start(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, shadow)
}

// Merge godoc
// @Summary Merge an amendment
// @Description Copies the shadow's tracked fields back onto the original in one journaled update and clears the amendment flag
// @Tags amendments
// @Produce json
// @Param kind path string true "Document kind"
// @Param amendmentId path string true "Amendment document ID"
// @Success 200 {object} response.Envelope{data=models.Document}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/amendments/{amendmentId}/merge [post]
func (h *AmendmentHandler) Merge(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	doc, err := h.amendments.Merge(c.Request.Context(), claimsFromContext(c), kind, c.Param("amendmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Cancel godoc
// @Summary Cancel an amendment
// @Description Discards the shadow copy and clears the amendment flag on the original
// @Tags amendments
// @Param kind path string true "Document kind"
// @Param amendmentId path string true "Amendment document ID"
// @Success 204
// @Security BearerAuth
// @Router /documents/{kind}/amendments/{amendmentId} [delete]
func (h *AmendmentHandler) Cancel(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.amendments.Cancel(c.Request.Context(), claimsFromContext(c), kind, c.Param("amendmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
