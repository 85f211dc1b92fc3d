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

// VisionHandler receives ERP feed batches. The feed authenticates as a
// system actor; tenancy rules do not apply to it.
type VisionHandler struct {
	vision *service.VisionService
}

// NewVisionHandler constructs the handler.
func NewVisionHandler(vision *service.VisionService) *VisionHandler {
	return &VisionHandler{vision: vision}
}

// IngestReservations godoc
// @Summary Ingest a fund reservation feed batch
// @Description Upserts ERP fund reservations; a currency change on a claimed reservation force-releases the link with a journaled override reason
// @Tags vision
// @Accept json
// @Produce json
// @Param request body dto.FundReservationFeedRequest true "Feed batch"
// @Success 200 {object} response.Envelope{data=service.FeedResult}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /vision/fund-reservations [post]
func (h *VisionHandler) IngestReservations(c *gin.Context) {
	var req dto.FundReservationFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	records := make([]models.FundReservationRecord, 0, len(req.Records))
	for _, item := range req.Records {
		records = append(records, item.ToModel())
	}

	result, err := h.vision.IngestReservations(c.Request.Context(), records)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpsertResultNodes godoc
// @Summary Ingest a result hierarchy feed batch
// @Description Upserts country programme result nodes by WBS; a changed result type reclassifies the existing node
// @Tags vision
// @Accept json
// @Produce json
// @Param request body dto.ResultNodeFeedRequest true "Feed batch"
// @Success 200 {object} response.Envelope{data=service.FeedResult}
// @Security BearerAuth
// @Router /vision/result-structure [post]
func (h *VisionHandler) UpsertResultNodes(c *gin.Context) {
	var req dto.ResultNodeFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid request body"))
		return
	}

	nodes := make([]models.ResultNode, 0, len(req.Nodes))
	for _, item := range req.Nodes {
		nodes = append(nodes, item.ToModel())
	}

	result, err := h.vision.UpsertResultNodes(c.Request.Context(), nodes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
