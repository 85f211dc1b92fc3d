package dto

import (
	"time"

	"github.com/unicef/etools-docflow/internal/models"
)

// CreateDocumentRequest opens a new document in its kind's initial status.
type CreateDocumentRequest struct {
	Data models.Fields `json:"data"`
}

// UpdateDocumentRequest patches kind specific fields. Keys absent from the
// patch stay untouched; writability is checked per key.
type UpdateDocumentRequest struct {
	Data models.Fields `json:"data" binding:"required"`
}

// DocumentResponse pairs a document with the caller's resolved permissions.
type DocumentResponse struct {
	Document    *models.Document `json:"document"`
	Permissions PermissionsView  `json:"permissions"`
}

// PermissionsView is the wire shape of a resolved permission set.
type PermissionsView struct {
	Readable    []string `json:"readable"`
	Writable    []string `json:"writable"`
	Transitions []string `json:"transitions"`
}

// NewPermissionsView flattens the resolved sets into slices for the wire.
func NewPermissionsView(p models.Permissions) PermissionsView {
	view := PermissionsView{
		Readable:    make([]string, 0, len(p.Readable)),
		Writable:    make([]string, 0, len(p.Writable)),
		Transitions: make([]string, 0, len(p.Transitions)),
	}
	for f := range p.Readable {
		view.Readable = append(view.Readable, f)
	}
	for f := range p.Writable {
		view.Writable = append(view.Writable, f)
	}
	for t := range p.Transitions {
		view.Transitions = append(view.Transitions, t)
	}
	return view
}

// ListDocumentsQuery is bound from query parameters.
type ListDocumentsQuery struct {
	Status   []string `form:"status"`
	AuthorID string   `form:"author_id"`
	Search   string   `form:"search"`
	Page     int      `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int      `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// TransitionRequest triggers a named transition, optionally with a comment
// and an atomic field patch applied before the guards run.
type TransitionRequest struct {
	Comment string        `json:"comment"`
	Data    models.Fields `json:"data"`
}

// ChildOpsRequest is a batch of tagged nested writes applied atomically.
type ChildOpsRequest struct {
	Ops []models.ChildOp `json:"ops" binding:"required,min=1,dive"`
}

// SetParticipantsRequest replaces the actor list under one document scoped role.
type SetParticipantsRequest struct {
	Role     string   `json:"role" binding:"required"`
	ActorIDs []string `json:"actor_ids"`
}

// BulkCloseRequest closes a batch of documents with partial success.
type BulkCloseRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// LinkReservationRequest claims a fund reservation by number.
type LinkReservationRequest struct {
	FRNumber string `json:"fr_number" binding:"required"`
}

// HistoryQuery filters the journal listing.
type HistoryQuery struct {
	MeaningfulOnly bool `form:"meaningful_only"`
	Page           int  `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize       int  `form:"page_size,default=50" binding:"omitempty,min=1,max=200"`
}

// BindAttachmentRequest stamps an uploaded attachment onto a document.
type BindAttachmentRequest struct {
	AttachmentID string `json:"attachment_id" binding:"required,uuid"`
	Code         string `json:"code" binding:"required"`
}

// DownloadTokenResponse carries a signed expiring download token.
type DownloadTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
