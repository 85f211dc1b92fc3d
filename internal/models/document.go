package models

import "time"

// Kind identifies a document family with its own status machine.
type Kind string

const (
	KindIntervention       Kind = "intervention"
	KindTPMVisit           Kind = "tpm_visit"
	KindEngagement         Kind = "engagement"
	KindTravel             Kind = "travel"
	KindMonitoringActivity Kind = "monitoring_activity"
)

// Status is a kind scoped workflow state.
type Status string

// Intervention statuses.
const (
	InterventionDraft      Status = "draft"
	InterventionReview     Status = "review"
	InterventionSignature  Status = "signature"
	InterventionSigned     Status = "signed"
	InterventionActive     Status = "active"
	InterventionEnded      Status = "ended"
	InterventionClosed     Status = "closed"
	InterventionSuspended  Status = "suspended"
	InterventionTerminated Status = "terminated"
	InterventionCancelled  Status = "cancelled"
)

// TPM visit statuses.
const (
	TPMVisitDraft          Status = "draft"
	TPMVisitAssigned       Status = "assigned"
	TPMVisitAccepted       Status = "tpm_accepted"
	TPMVisitRejected       Status = "tpm_rejected"
	TPMVisitReported       Status = "tpm_reported"
	TPMVisitReportRejected Status = "tpm_report_rejected"
	TPMVisitApproved       Status = "unicef_approved"
	TPMVisitCancelled      Status = "cancelled"
)

// Engagement statuses.
const (
	EngagementPartnerContacted Status = "partner_contacted"
	EngagementReportSubmitted  Status = "report_submitted"
	EngagementFinal            Status = "final"
	EngagementCancelled        Status = "cancelled"
)

// Travel statuses.
const (
	TravelPlanned                Status = "planned"
	TravelSubmitted              Status = "submitted"
	TravelApproved               Status = "approved"
	TravelRejected               Status = "rejected"
	TravelCancelled              Status = "cancelled"
	TravelSentForPayment         Status = "sent_for_payment"
	TravelCertificationSubmitted Status = "certification_submitted"
	TravelCertificationApproved  Status = "certification_approved"
	TravelCertificationRejected  Status = "certification_rejected"
	TravelCertified              Status = "certified"
	TravelCompleted              Status = "completed"
)

// Monitoring activity statuses.
const (
	ActivityDraft              Status = "draft"
	ActivityChecklist          Status = "checklist"
	ActivityReview             Status = "review"
	ActivityAssigned           Status = "assigned"
	ActivityDataCollection     Status = "data_collection"
	ActivityReportFinalization Status = "report_finalization"
	ActivitySubmitted          Status = "submitted"
	ActivityCompleted          Status = "completed"
	ActivityCancelled          Status = "cancelled"
)

// Action enumerates journal entry actions.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionTransition Action = "transition"
	ActionSoftDelete Action = "soft_delete"
	ActionDelete     Action = "delete"
)

// Document is the status bearing entity shared by all kinds. The common
// columns live on the struct; kind specific fields live in Data and are
// addressed by the dotted paths the permission matrix declares.
type Document struct {
	ID              string    `db:"id" json:"id"`
	Kind            Kind      `db:"kind" json:"kind"`
	Tenant          string    `db:"tenant" json:"tenant"`
	ReferenceNumber string    `db:"reference_number" json:"referenceNumber"`
	Status          Status    `db:"status" json:"status"`
	StatusDate      time.Time `db:"status_date" json:"statusDate"`
	AuthorID        string    `db:"author_id" json:"authorId"`
	AmendmentOf     *string   `db:"amendment_of" json:"amendmentOf,omitempty"`
	RollupPending   bool      `db:"rollup_pending" json:"rollupPending"`
	Data            Fields    `db:"data" json:"data"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether the document sits in a terminal status.
func (d *Document) IsTerminal() bool {
	spec, ok := KindSpecs[d.Kind]
	if !ok {
		return false
	}
	_, terminal := spec.Terminal[d.Status]
	return terminal
}

// DocumentFilter constrains listing queries.
type DocumentFilter struct {
	Tenant   string
	Kind     Kind
	Status   []Status
	AuthorID string
	Search   string
	Limit    int
	Offset   int
}

// KindSpec declares the data driven portion of a document kind: its status
// vocabulary, tracked and noise fields, and reference number prefix. A single
// generic engine consumes these declarations; there are no per kind forks.
type KindSpec struct {
	Kind          Kind
	Initial       Status
	Statuses      map[Status]struct{}
	Terminal      map[Status]struct{}
	RefPrefix     string
	TrackedFields []string
	NoiseFields   []string
}

func statusSet(statuses ...Status) map[Status]struct{} {
	out := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		out[s] = struct{}{}
	}
	return out
}

// KindSpecs is the registry of all document kinds. Loaded once; immutable at
// runtime.
var KindSpecs = map[Kind]KindSpec{
	KindIntervention: {
		Kind:    KindIntervention,
		Initial: InterventionDraft,
		Statuses: statusSet(
			InterventionDraft, InterventionReview, InterventionSignature,
			InterventionSigned, InterventionActive, InterventionEnded,
			InterventionClosed, InterventionSuspended, InterventionTerminated,
			InterventionCancelled,
		),
		Terminal: statusSet(
			InterventionEnded, InterventionClosed, InterventionTerminated,
			InterventionCancelled,
		),
		RefPrefix: "PD",
		TrackedFields: []string{
			"title", "start", "end", "currency", "unicef_court",
			"partner_accepted", "unicef_accepted", "date_sent_to_partner",
			"signed_by_unicef_date", "signed_by_partner_date",
			"unicef_signatory", "partner_authorized_officer_signatory",
			"contingency_pd", "in_amendment", "in_kind_amount", "supply_total",
			"has_data_processing_agreement", "has_special_conditions_pca",
			"override_reason", "cancel_justification", "partner",
		},
		NoiseFields: []string{"modified_reason", "internal_note"},
	},
	KindTPMVisit: {
		Kind:    KindTPMVisit,
		Initial: TPMVisitDraft,
		Statuses: statusSet(
			TPMVisitDraft, TPMVisitAssigned, TPMVisitAccepted, TPMVisitRejected,
			TPMVisitReported, TPMVisitReportRejected, TPMVisitApproved,
			TPMVisitCancelled,
		),
		Terminal:  statusSet(TPMVisitApproved, TPMVisitCancelled),
		RefPrefix: "TPM",
		TrackedFields: []string{
			"start", "end", "tpm_partner", "visit_information",
			"reject_comment", "report_reject_comment", "cancel_comment",
			"approval_comment", "date_of_assigned", "date_of_unicef_approved",
		},
		NoiseFields: []string{"visit_information"},
	},
	KindEngagement: {
		Kind:    KindEngagement,
		Initial: EngagementPartnerContacted,
		Statuses: statusSet(
			EngagementPartnerContacted, EngagementReportSubmitted,
			EngagementFinal, EngagementCancelled,
		),
		Terminal:  statusSet(EngagementFinal, EngagementCancelled),
		RefPrefix: "AUD",
		TrackedFields: []string{
			"partner", "engagement_type", "start", "end",
			"total_value", "date_of_field_visit", "date_of_draft_report_to_ip",
			"date_of_comments_by_ip", "date_of_report_submit",
			"send_back_comment", "cancel_comment",
		},
		NoiseFields: []string{"joint_audit_note"},
	},
	KindTravel: {
		Kind:    KindTravel,
		Initial: TravelPlanned,
		Statuses: statusSet(
			TravelPlanned, TravelSubmitted, TravelApproved, TravelRejected,
			TravelCancelled, TravelSentForPayment, TravelCertificationSubmitted,
			TravelCertificationApproved, TravelCertificationRejected,
			TravelCertified, TravelCompleted,
		),
		Terminal:  statusSet(TravelCompleted, TravelCancelled),
		RefPrefix: "T2F",
		TrackedFields: []string{
			"purpose", "start", "end", "traveler", "supervisor",
			"international_travel", "ta_required", "estimated_travel_cost",
			"currency", "rejection_note", "cancellation_note",
			"certification_note", "completed_at",
		},
		NoiseFields: []string{"misc_expenses_note"},
	},
	KindMonitoringActivity: {
		Kind:    KindMonitoringActivity,
		Initial: ActivityDraft,
		Statuses: statusSet(
			ActivityDraft, ActivityChecklist, ActivityReview, ActivityAssigned,
			ActivityDataCollection, ActivityReportFinalization,
			ActivitySubmitted, ActivityCompleted, ActivityCancelled,
		),
		Terminal:  statusSet(ActivityCompleted, ActivityCancelled),
		RefPrefix: "FMA",
		TrackedFields: []string{
			"activity_type", "monitor_type", "start", "end", "partner",
			"location", "reject_reason", "report_reject_reason",
			"cancel_reason", "end_date",
		},
		NoiseFields: []string{"field_office_note"},
	},
}
