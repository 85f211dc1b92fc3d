package service

import (
	"github.com/unicef/etools-docflow/internal/models"
)

// BuildCatalog assembles the transition tables for every kind. The tables are
// declarative; the runtime walks them without per kind branches.
func BuildCatalog() Catalog {
	return Catalog{
		models.KindIntervention:       interventionTransitions(),
		models.KindTPMVisit:           tpmVisitTransitions(),
		models.KindEngagement:         engagementTransitions(),
		models.KindTravel:             travelTransitions(),
		models.KindMonitoringActivity: activityTransitions(),
	}
}

func stampToday(field string) func(gc *GuardContext) {
	return func(gc *GuardContext) {
		gc.Doc.Data[field] = gc.Today.Format(dateLayout)
	}
}

func interventionTransitions() map[string]Transition {
	return map[string]Transition{
		// send_to_partner keeps the document in draft; it only flips the
		// editing court to the partner side and stamps the handover date.
		"send_to_partner": {
			Name: "send_to_partner",
			From: []models.Status{models.InterventionDraft},
			To:   models.InterventionDraft,
			Guards: []Guard{
				requireFields("title", "partner", "currency"),
			},
			Apply: func(gc *GuardContext) {
				gc.Doc.Data["unicef_court"] = false
				gc.Doc.Data["date_sent_to_partner"] = gc.Today.Format(dateLayout)
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_sent_to_partner",
				Recipients: []models.RoleTag{models.RolePartnerFocalPoint},
			}},
		},
		// send_to_unicef hands the editing court back from the partner side.
		"send_to_unicef": {
			Name: "send_to_unicef",
			From: []models.Status{models.InterventionDraft},
			To:   models.InterventionDraft,
			Apply: func(gc *GuardContext) {
				gc.Doc.Data["unicef_court"] = true
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_sent_to_unicef",
				Recipients: []models.RoleTag{models.RoleFocalPoint},
			}},
		},
		// accept stamps the acceptance of whichever side holds the editing
		// court. Review stays blocked until both flags are set.
		"accept": {
			Name: "accept",
			From: []models.Status{models.InterventionDraft},
			To:   models.InterventionDraft,
			Apply: func(gc *GuardContext) {
				if gc.Doc.Data.Bool("unicef_court") {
					gc.Doc.Data["unicef_accepted"] = true
				} else {
					gc.Doc.Data["partner_accepted"] = true
				}
			},
		},
		// unlock reopens negotiation: both acceptances clear and the
		// exchange starts over.
		"unlock": {
			Name: "unlock",
			From: []models.Status{models.InterventionDraft},
			To:   models.InterventionDraft,
			Apply: func(gc *GuardContext) {
				gc.Doc.Data["partner_accepted"] = false
				gc.Doc.Data["unicef_accepted"] = false
			},
		},
		"submit_for_review": {
			Name: "submit_for_review",
			From: []models.Status{models.InterventionDraft},
			To:   models.InterventionReview,
			Guards: []Guard{
				requireFields("title", "partner", "currency", "start", "end"),
				requireDateOrder("start", "end"),
				requireParticipant(models.RoleFocalPoint, "A UNICEF focal point must be assigned before leaving draft"),
				requireMutualAcceptance(),
				requireAttachmentForFlag("has_data_processing_agreement",
					models.AttachmentCodeDataProcessing,
					"Data processing agreement attachment is required"),
				requireAttachmentForFlag("has_special_conditions_pca",
					models.AttachmentCodeSpecialConditionsPCA,
					"Special conditions PCA attachment is required"),
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_submitted_for_review",
				Recipients: []models.RoleTag{models.RolePRCSecretary},
			}},
		},
		"reject_review": {
			Name:            "reject_review",
			From:            []models.Status{models.InterventionReview},
			To:              models.InterventionDraft,
			RequiresComment: "review_reject_comment",
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_review_rejected",
				Recipients: []models.RoleTag{models.RoleFocalPoint},
			}},
		},
		"submit_to_signature": {
			Name: "submit_to_signature",
			From: []models.Status{models.InterventionReview},
			To:   models.InterventionSignature,
		},
		"sign": {
			Name: "sign",
			From: []models.Status{models.InterventionSignature},
			To:   models.InterventionSigned,
			Guards: []Guard{
				requireSignatures(),
				requireDatesNotFuture("signed_by_unicef_date", "signed_by_partner_date"),
				requireAttachment(models.AttachmentCodeSignedPD,
					"Signed document attachment is required"),
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_signed",
				Recipients: []models.RoleTag{models.RoleFocalPoint, models.RoleBudgetOwner},
			}},
		},
		"activate": {
			Name: "activate",
			From: []models.Status{models.InterventionSigned},
			To:   models.InterventionActive,
			Guards: []Guard{
				requireStartReached("start"),
				requireLinkedReservation(),
				requireCurrenciesMatch(),
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_activated",
				Recipients: []models.RoleTag{models.RoleFocalPoint, models.RolePartnerFocalPoint},
			}},
		},
		"suspend": {
			Name:            "suspend",
			From:            []models.Status{models.InterventionActive},
			To:              models.InterventionSuspended,
			RequiresComment: "suspension_reason",
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_suspended",
				Recipients: []models.RoleTag{models.RoleFocalPoint, models.RolePartnerFocalPoint},
			}},
		},
		"unsuspend": {
			Name: "unsuspend",
			From: []models.Status{models.InterventionSuspended},
			To:   models.InterventionActive,
		},
		"terminate": {
			Name:            "terminate",
			From:            []models.Status{models.InterventionActive, models.InterventionSuspended},
			To:              models.InterventionTerminated,
			RequiresComment: "termination_reason",
			Guards: []Guard{
				requireNoOpenAmendment(),
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_terminated",
				Recipients: []models.RoleTag{models.RoleFocalPoint, models.RolePartnerFocalPoint, models.RoleBudgetOwner},
			}},
		},
		"end": {
			Name: "end",
			From: []models.Status{models.InterventionActive},
			To:   models.InterventionEnded,
			Guards: []Guard{
				requireEndPassed("end"),
				requireNoOpenAmendment(),
			},
		},
		"close": {
			Name: "close",
			From: []models.Status{models.InterventionEnded},
			To:   models.InterventionClosed,
			Guards: []Guard{
				requireNoOpenAmendment(),
				requireFRBalance(),
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "document_closed",
				Recipients: []models.RoleTag{models.RoleFocalPoint, models.RoleBudgetOwner},
			}},
		},
		"cancel": {
			Name: "cancel",
			From: []models.Status{
				models.InterventionDraft, models.InterventionReview,
				models.InterventionSignature,
			},
			To:              models.InterventionCancelled,
			RequiresComment: "cancel_justification",
		},
	}
}

func tpmVisitTransitions() map[string]Transition {
	return map[string]Transition{
		"assign": {
			Name: "assign",
			From: []models.Status{models.TPMVisitDraft, models.TPMVisitRejected},
			To:   models.TPMVisitAssigned,
			Guards: []Guard{
				requireFields("tpm_partner", "start", "end"),
				requireDateOrder("start", "end"),
			},
			Apply: stampToday("date_of_assigned"),
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "visit_assigned",
				Recipients: []models.RoleTag{models.RoleTPMFocalPoint},
			}},
		},
		"accept": {
			Name: "accept",
			From: []models.Status{models.TPMVisitAssigned},
			To:   models.TPMVisitAccepted,
		},
		"reject": {
			Name:            "reject",
			From:            []models.Status{models.TPMVisitAssigned},
			To:              models.TPMVisitRejected,
			RequiresComment: "reject_comment",
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "visit_rejected",
				Recipients: []models.RoleTag{models.RoleFocalPoint},
			}},
		},
		"send_report": {
			Name: "send_report",
			From: []models.Status{models.TPMVisitAccepted, models.TPMVisitReportRejected},
			To:   models.TPMVisitReported,
			Guards: []Guard{
				requireAttachment(models.AttachmentCodeReport,
					"A report attachment is required before sending the report"),
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "visit_report_submitted",
				Recipients: []models.RoleTag{models.RoleFocalPoint, models.RolePME},
			}},
		},
		"reject_report": {
			Name:            "reject_report",
			From:            []models.Status{models.TPMVisitReported},
			To:              models.TPMVisitReportRejected,
			RequiresComment: "report_reject_comment",
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "visit_report_rejected",
				Recipients: []models.RoleTag{models.RoleTPMFocalPoint},
			}},
		},
		"approve": {
			Name:  "approve",
			From:  []models.Status{models.TPMVisitReported},
			To:    models.TPMVisitApproved,
			Apply: stampToday("date_of_unicef_approved"),
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "visit_approved",
				Recipients: []models.RoleTag{models.RoleTPMFocalPoint},
			}},
		},
		"cancel": {
			Name: "cancel",
			From: []models.Status{
				models.TPMVisitDraft, models.TPMVisitAssigned, models.TPMVisitRejected,
			},
			To:              models.TPMVisitCancelled,
			RequiresComment: "cancel_comment",
		},
	}
}

func engagementTransitions() map[string]Transition {
	return map[string]Transition{
		"submit": {
			Name: "submit",
			From: []models.Status{models.EngagementPartnerContacted},
			To:   models.EngagementReportSubmitted,
			Guards: []Guard{
				requireFields("partner", "engagement_type", "start", "end"),
				requireDateOrder("start", "end"),
				requireDatesNotFuture("date_of_field_visit"),
			},
			Apply: stampToday("date_of_report_submit"),
		},
		"send_back": {
			Name:            "send_back",
			From:            []models.Status{models.EngagementReportSubmitted},
			To:              models.EngagementPartnerContacted,
			RequiresComment: "send_back_comment",
		},
		"finalize": {
			Name: "finalize",
			From: []models.Status{models.EngagementReportSubmitted},
			To:   models.EngagementFinal,
			Guards: []Guard{
				requireAttachment(models.AttachmentCodeReport,
					"A final report attachment is required"),
			},
		},
		"cancel": {
			Name: "cancel",
			From: []models.Status{
				models.EngagementPartnerContacted, models.EngagementReportSubmitted,
			},
			To:              models.EngagementCancelled,
			RequiresComment: "cancel_comment",
		},
	}
}

func travelTransitions() map[string]Transition {
	return map[string]Transition{
		"submit_for_approval": {
			Name: "submit_for_approval",
			From: []models.Status{models.TravelPlanned, models.TravelRejected},
			To:   models.TravelSubmitted,
			Guards: []Guard{
				requireFields("purpose", "traveler", "supervisor", "start", "end"),
				requireDateOrder("start", "end"),
			},
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "travel_submitted",
				Recipients: []models.RoleTag{models.RoleOverallApprover},
			}},
		},
		"approve": {
			Name: "approve",
			From: []models.Status{models.TravelSubmitted},
			To:   models.TravelApproved,
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "travel_approved",
				Recipients: []models.RoleTag{models.RoleAuthor},
			}},
		},
		"reject": {
			Name:            "reject",
			From:            []models.Status{models.TravelSubmitted},
			To:              models.TravelRejected,
			RequiresComment: "rejection_note",
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "travel_rejected",
				Recipients: []models.RoleTag{models.RoleAuthor},
			}},
		},
		"send_for_payment": {
			Name: "send_for_payment",
			From: []models.Status{models.TravelApproved},
			To:   models.TravelSentForPayment,
			Guards: []Guard{
				requireFields("estimated_travel_cost", "currency"),
			},
		},
		"submit_certificate": {
			Name: "submit_certificate",
			From: []models.Status{models.TravelSentForPayment, models.TravelCertificationRejected},
			To:   models.TravelCertificationSubmitted,
			Guards: []Guard{
				requireAttachment(models.AttachmentCodeTravelCertificate,
					"A travel certificate attachment is required"),
			},
		},
		"approve_certificate": {
			Name: "approve_certificate",
			From: []models.Status{models.TravelCertificationSubmitted},
			To:   models.TravelCertificationApproved,
		},
		"reject_certificate": {
			Name:            "reject_certificate",
			From:            []models.Status{models.TravelCertificationSubmitted},
			To:              models.TravelCertificationRejected,
			RequiresComment: "certification_note",
		},
		// Certification approval rolls straight through to completion; the
		// intermediate statuses stay visible in the journal.
		"mark_as_certified": {
			Name:       "mark_as_certified",
			From:       []models.Status{models.TravelCertificationApproved},
			To:         models.TravelCertified,
			AutoFollow: "mark_as_completed",
		},
		"mark_as_completed": {
			Name:  "mark_as_completed",
			From:  []models.Status{models.TravelCertified},
			To:    models.TravelCompleted,
			Apply: stampToday("completed_at"),
		},
		"cancel": {
			Name: "cancel",
			From: []models.Status{
				models.TravelPlanned, models.TravelSubmitted, models.TravelRejected,
				models.TravelApproved,
			},
			To:              models.TravelCancelled,
			RequiresComment: "cancellation_note",
		},
	}
}

func activityTransitions() map[string]Transition {
	return map[string]Transition{
		"mark_details_configured": {
			Name: "mark_details_configured",
			From: []models.Status{models.ActivityDraft},
			To:   models.ActivityChecklist,
			Guards: []Guard{
				requireFields("activity_type", "monitor_type", "start", "end", "partner"),
				requireDateOrder("start", "end"),
			},
		},
		"mark_checklist_configured": {
			Name: "mark_checklist_configured",
			From: []models.Status{models.ActivityChecklist},
			To:   models.ActivityReview,
		},
		"assign": {
			Name: "assign",
			From: []models.Status{models.ActivityReview},
			To:   models.ActivityAssigned,
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "activity_assigned",
				Recipients: []models.RoleTag{models.RoleTPMFocalPoint, models.RoleFocalPoint},
			}},
		},
		"reject": {
			Name:            "reject",
			From:            []models.Status{models.ActivityReview},
			To:              models.ActivityDraft,
			RequiresComment: "reject_reason",
		},
		"accept": {
			Name: "accept",
			From: []models.Status{models.ActivityAssigned},
			To:   models.ActivityDataCollection,
		},
		"mark_data_collected": {
			Name: "mark_data_collected",
			From: []models.Status{models.ActivityDataCollection},
			To:   models.ActivityReportFinalization,
			Guards: []Guard{
				requireEndPassed("end"),
			},
			Apply: func(gc *GuardContext) {
				if gc.Doc.Data.String("end_date") == "" {
					gc.Doc.Data["end_date"] = gc.Doc.Data.String("end")
				}
			},
		},
		"submit_report": {
			Name: "submit_report",
			From: []models.Status{models.ActivityReportFinalization},
			To:   models.ActivitySubmitted,
			Effects: []EffectSpec{{
				Kind:       EffectNotify,
				Template:   "activity_report_submitted",
				Recipients: []models.RoleTag{models.RolePME},
			}},
		},
		"reject_report": {
			Name:            "reject_report",
			From:            []models.Status{models.ActivitySubmitted},
			To:              models.ActivityReportFinalization,
			RequiresComment: "report_reject_reason",
		},
		"complete": {
			Name: "complete",
			From: []models.Status{models.ActivitySubmitted},
			To:   models.ActivityCompleted,
			Effects: []EffectSpec{
				{Kind: EffectHACTRecount},
				{
					Kind:       EffectNotify,
					Template:   "activity_completed",
					Recipients: []models.RoleTag{models.RoleFocalPoint},
				},
			},
		},
		"cancel": {
			Name: "cancel",
			From: []models.Status{
				models.ActivityDraft, models.ActivityChecklist, models.ActivityReview,
				models.ActivityAssigned,
			},
			To:              models.ActivityCancelled,
			RequiresComment: "cancel_reason",
		},
	}
}
