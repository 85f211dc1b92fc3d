package models

import "time"

// Attachment codes are authoritative: queries fetch bindings by code, never
// by a field name on the document.
const (
	AttachmentCodeSignedPD               = "signed_pd"
	AttachmentCodeReport                 = "report_attachment"
	AttachmentCodeActivity               = "activity_attachment"
	AttachmentCodeFinalPartnershipReview = "final_partnership_review"
	AttachmentCodeDataProcessing         = "data_processing_agreement"
	AttachmentCodeSpecialConditionsPCA   = "special_conditions_pca"
	AttachmentCodeTravelCertificate      = "travel_certificate"
)

// Attachment is a content addressed blob record.
type Attachment struct {
	ID        string    `db:"id" json:"id"`
	BlobHash  string    `db:"blob_hash" json:"blobHash"`
	FileName  string    `db:"file_name" json:"fileName"`
	SizeBytes int64     `db:"size_bytes" json:"sizeBytes"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AttachmentBinding links a blob to a document under a code tag. A binding
// without an underlying blob is invalid and rejected at write time.
type AttachmentBinding struct {
	ID           string    `db:"id" json:"id"`
	AttachmentID string    `db:"attachment_id" json:"attachmentId"`
	DocumentID   string    `db:"document_id" json:"documentId"`
	Code         string    `db:"code" json:"code"`
	Type         string    `db:"type" json:"type"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
