package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicef/etools-docflow/internal/dto"
	"github.com/unicef/etools-docflow/internal/service"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
	"github.com/unicef/etools-docflow/pkg/response"
)

// AttachmentHandler serves blob uploads, code bindings and signed downloads.
type AttachmentHandler struct {
	attachments *service.AttachmentService
}

// NewAttachmentHandler constructs the handler.
func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Upload godoc
// @Summary Upload an attachment
// @Description Stores the file content addressed; identical bytes share one blob
// @Tags attachments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 201 {object} response.Envelope{data=models.Attachment}
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "missing file field"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "unreadable upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	att, err := h.attachments.Upload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}

// Bind godoc
// @Summary Bind an attachment to a document
// @Description Stamps an uploaded attachment onto the document under a known code; guards read the binding's code, not the file
// @Tags attachments
// @Accept json
// @Produce json
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param request body dto.BindAttachmentRequest true "Attachment and code"
// @Success 201 {object} response.Envelope{data=models.AttachmentBinding}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{kind}/{id}/attachments [post]
func (h *AttachmentHandler) Bind(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.BindAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	binding, err := h.attachments.Bind(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"), req.AttachmentID, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, binding)
}

// Unbind godoc
// @Summary Remove an attachment binding
// @Description Deletes the binding; the underlying blob is untouched
// @Tags attachments
// @Param kind path string true "Document kind"
// @Param id path string true "Document ID"
// @Param bindingId path string true "Binding ID"
// @Success 204
// @Security BearerAuth
// @Router /documents/{kind}/{id}/attachments/{bindingId} [delete]
func (h *AttachmentHandler) Unbind(c *gin.Context) {
	kind, err := kindFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.attachments.Unbind(c.Request.Context(), claimsFromContext(c), kind, c.Param("id"), c.Param("bindingId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadToken godoc
// @Summary Issue a download token
// @Description Returns a signed, expiring token for fetching the attachment bytes without credentials
// @Tags attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope{data=dto.DownloadTokenResponse}
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/{id}/download-token [get]
func (h *AttachmentHandler) DownloadToken(c *gin.Context) {
	token, expiresAt, err := h.attachments.DownloadToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DownloadTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download an attachment
// @Description Streams the blob bytes for a valid, unexpired token
// @Tags attachments
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "missing token"))
		return
	}

	fileName, data, err := h.attachments.Resolve(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/octet-stream", data)
}
