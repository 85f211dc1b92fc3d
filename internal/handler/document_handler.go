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

// DocumentHandler serves document CRUD, nested writes, participants and bulk
// closure.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Create godoc
// @Summary Create a document
// @Description Opens a new document of the given kind in its initial status and mints its reference number
// @Tags documents
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param request body dto.CreateDocumentRequest true "Initial field values"
// @Success 201 {object} response.Envelope{data=models.Document}
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind} [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), claimsFromContext(c), kind, req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Get godoc
// @Summary Get a document
// @Description Returns the document together with the caller's resolved field and transition permissions
// @Tags documents
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope{data=dto.DocumentResponse}
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	doc, perms, err := h.documents.Get(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DocumentResponse{
		Document:    doc,
		Permissions: dto.NewPermissionsView(perms),
	}, nil)
}

// List godoc
// @Summary List documents
// @Description Lists documents of one kind within the caller's tenant
// @Tags documents
// @Produce json
// @Param kind path string true "Document kind"
// @Param status query []string false "Status filter"
// @Param author_id query string false "Author filter"
// @Param search query string false "Reference number or title search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Document}
// @Security BearerAuth
// @Router /documents/{kind} [get]
func (h *DocumentHandler) List(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var query dto.ListDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	statuses := make([]models.Status, 0, len(query.Status))
	for _, s := range query.Status {
		statuses = append(statuses, models.Status(s))
	}

	filter := models.DocumentFilter{
		Kind:     kind,
		Status:   statuses,
		AuthorID: query.AuthorID,
		Search:   query.Search,
		Limit:    query.PageSize,
		Offset:   (query.Page - 1) * query.PageSize,
	}
	docs, err := h.documents.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, &models.Pagination{
		Page:     query.Page,
		PageSize: query.PageSize,
	})
}

// Update godoc
// @Summary Update document fields
// @Description Applies a field patch; each key is checked against the caller's writable set
// @Tags documents
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param request body dto.UpdateDocumentRequest true "Field patch"
// @Success 200 {object} response.Envelope{data=models.Document}
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id} [patch]
func (h *DocumentHandler) Update(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	doc, err := h.documents.Update(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"), req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete a document
// @Description Deletes a document still in its initial status; author or administrator only
// @Tags documents
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.documents.Delete(c.Request.Context(), claimsFromContext(c), kind, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ApplyChildOps godoc
// @Summary Apply nested child operations
// @Description Validates then applies a batch of create/update/delete operations on child rows in one transaction
// @Tags documents
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param request body dto.ChildOpsRequest true "Operation batch"
// @Success 200 {object} response.Envelope{data=models.Document}
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/children [post]
func (h *DocumentHandler) ApplyChildOps(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ChildOpsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	doc, err := h.documents.ApplyChildOps(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"), req.Ops)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// SetParticipants godoc
// @Summary Replace participants under a role
// @Description Replaces the actor list bound to one document scoped role
// @Tags documents
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param request body dto.SetParticipantsRequest true "Role and actors"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/participants [put]
func (h *DocumentHandler) SetParticipants(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.SetParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	err = h.documents.SetParticipants(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"), models.RoleTag(req.Role), req.ActorIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkClose godoc
// @Summary Close a batch of documents
// @Description Attempts the close transition on each listed document; failures are reported per id without aborting the batch
// @Tags documents
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param request body dto.BulkCloseRequest true "Document IDs"
// @Success 200 {object} response.Envelope{data=service.BulkCloseResult}
// @Security BearerAuth
// @Router /documents/{kind}/bulk-close [post]
func (h *DocumentHandler) BulkClose(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.BulkCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.documents.BulkClose(c.Request.Context(), claimsFromContext(c), kind, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
