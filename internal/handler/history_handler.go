package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicef/etools-docflow/internal/dto"
	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/service"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
	"github.com/unicef/etools-docflow/pkg/response"
)

// HistoryHandler serves the change journal.
type HistoryHandler struct {
	journal *service.JournalService
	roles   *service.RoleService
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(journal *service.JournalService, roles *service.RoleService) *HistoryHandler {
	return &HistoryHandler{journal: journal, roles: roles}
}

// List godoc
// @Summary List journal entries
// @Description Returns the append-only change history of a document, newest first; meaningful_only hides entries touching only noise fields
// @Tags history
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param meaningful_only query bool false "Hide noise-only updates"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.JournalEntry}
// @Security BearerAuth
// @Router /documents/{kind}/{id}/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	if _, err := kindFromPath(c); err != nil {
		response.Error(c, err)
		return
	}

	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	entries, err := h.journal.History(c.Request.Context(), c.Param("id"), query.PageSize, (query.Page-1)*query.PageSize, query.MeaningfulOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, &models.Pagination{
		Page:     query.Page,
		PageSize: query.PageSize,
	})
}

// Revert godoc
// @Summary Revert a journal entry
// @Description Restores the old values recorded by one entry; soft deleted child rows are reinstated. Administrator only
// @Tags history
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param entryId path string true "Journal entry ID"
// @Success 200 {object} response.Envelope{data=models.Document}
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/history/{entryId}/revert [post]
func (h *HistoryHandler) Revert(c *gin.Context) {
	if _, err := kindFromPath(c); err != nil {
		response.Error(c, err)
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}
	roles := h.roles.RolesFor(claims, nil, nil)

	doc, err := h.journal.Revert(c.Request.Context(), claims.Tenant, c.Param("entryId"), claims.UserID, roles)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
