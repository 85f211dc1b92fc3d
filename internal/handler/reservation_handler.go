package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicef/etools-docflow/internal/dto"
	"github.com/unicef/etools-docflow/internal/service"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
	"github.com/unicef/etools-docflow/pkg/response"
)

// ReservationHandler links fund reservations to documents.
type ReservationHandler struct {
	reservations *service.ReservationService
}

// NewReservationHandler constructs the handler.
func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Link godoc
// @Summary Link a fund reservation
// @Description Claims a fund reservation for the document; a reservation already claimed elsewhere is rejected
// @Tags reservations
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param request body dto.LinkReservationRequest true "FR number"
// @Success 200 {object} response.Envelope{data=models.Document}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/reservations [post]
func (h *ReservationHandler) Link(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.LinkReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	doc, err := h.reservations.Link(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"), req.FRNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Unlink godoc
// @Summary Unlink a fund reservation
// @Description Releases a reservation currently claimed by the document and refreshes the financial rollup
// @Tags reservations
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param frNumber path string true "FR number"
// @Success 200 {object} response.Envelope{data=models.Document}
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/reservations/{frNumber} [delete]
func (h *ReservationHandler) Unlink(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	doc, err := h.reservations.Unlink(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"), c.Param("frNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
