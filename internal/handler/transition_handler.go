package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicef/etools-docflow/internal/dto"
	"github.com/unicef/etools-docflow/internal/service"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
	"github.com/unicef/etools-docflow/pkg/response"
)

// TransitionHandler triggers status transitions.
type TransitionHandler struct {
	transitions *service.TransitionService
	metrics     *service.MetricsService
}

// NewTransitionHandler constructs the handler.
func NewTransitionHandler(transitions *service.TransitionService, metrics *service.MetricsService) *TransitionHandler {
	return &TransitionHandler{transitions: transitions, metrics: metrics}
}

// Execute godoc
// @Summary Execute a named transition
// @Description Runs the transition's guards under a row lock and flips the status atomically; an optional field patch is applied first
// @Tags transitions
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param name path string true "Transition name"
// @Param request body dto.TransitionRequest false "Comment and field patch"
// @Success 200 {object} response.Envelope{data=models.Document}
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/transitions/{name} [post]
func (h *TransitionHandler) Execute(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
			return
		}
	}

	name := c.Param("name")
	doc, err := h.transitions.Execute(c.Request.Context(), claimsFromContext(c), service.TransitionRequest{
		Kind:    kind,
		ID:      c.Param("id"),
		Name:    name,
		Comment: req.Comment,
		Patch:   req.Data,
	})
	if err != nil {
		h.metrics.ObserveTransition(string(kind), name, apperrors.FromError(err).Code)
		response.Error(c, err)
		return
	}
	h.metrics.ObserveTransition(string(kind), name, "ok")
	response.JSON(c, http.StatusOK, doc, nil)
}
