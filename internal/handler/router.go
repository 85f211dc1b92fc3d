package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Documents    *DocumentHandler
	Transitions  *TransitionHandler
	History      *HistoryHandler
	Reservations *ReservationHandler
	Amendments   *AmendmentHandler
	Attachments  *AttachmentHandler
	Vision       *VisionHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts the API under the given prefix. The auth middleware
// is applied by the caller; signed downloads stay outside it because the
// token itself is the credential.
func RegisterRoutes(r *gin.RouterGroup, h Handlers) {
	docs := r.Group("/documents/:kind")
	{
		docs.POST("", h.Documents.Create)
		docs.GET("", h.Documents.List)
		docs.POST("/bulk-close", h.Documents.BulkClose)
		docs.GET("/:id", h.Documents.Get)
		docs.PATCH("/:id", h.Documents.Update)
		docs.DELETE("/:id", h.Documents.Delete)
		docs.POST("/:id/children", h.Documents.ApplyChildOps)
		docs.PUT("/:id/participants", h.Documents.SetParticipants)

		docs.POST("/:id/transitions/:name", h.Transitions.Execute)

		docs.GET("/:id/history", h.History.List)
		docs.POST("/:id/history/:entryId/revert", h.History.Revert)

		docs.POST("/:id/reservations", h.Reservations.Link)
		docs.DELETE("/:id/reservations/:frNumber", h.Reservations.Unlink)

		docs.POST("/:id/amendments", h.Amendments.Start)
		docs.POST("/amendments/:amendmentId/merge", h.Amendments.Merge)
		docs.DELETE("/amendments/:amendmentId", h.Amendments.Cancel)

		docs.POST("/:id/attachments", h.Attachments.Bind)
		docs.DELETE("/:id/attachments/:bindingId", h.Attachments.Unbind)
	}

	r.POST("/attachments", h.Attachments.Upload)
	r.GET("/attachments/:id/download-token", h.Attachments.DownloadToken)

	vision := r.Group("/vision")
	{
		vision.POST("/fund-reservations", h.Vision.IngestReservations)
		vision.POST("/result-structure", h.Vision.UpsertResultNodes)
	}
}

// RegisterPublicRoutes mounts endpoints that carry their own credential or
// none at all.
func RegisterPublicRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/attachments/download", h.Attachments.Download)
}
