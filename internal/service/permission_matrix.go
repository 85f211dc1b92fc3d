package service

import (
	"github.com/unicef/etools-docflow/internal/models"
)

// The matrix tables. Grants are additive across role tags; denies subtract
// after the union. Statuses absent from the tables resolve to empty sets.

var interventionCoreFields = []string{
	"title", "start", "end", "currency", "partner", "agreement",
	"country_programme", "document_type", "context", "implementation_strategy",
	"capacity_development", "other_partners_involved", "gender_rating",
	"equity_rating", "sustainability_rating", "budget_owner",
	"in_kind_amount", "supply_total", "contingency_pd",
	"has_data_processing_agreement", "has_special_conditions_pca",
	"activation_protocol", "cash_transfer_modalities",
}

var interventionSignatureFields = []string{
	"signed_by_unicef_date", "signed_by_partner_date", "unicef_signatory",
	"partner_authorized_officer_signatory",
}

var interventionPartnerFields = []string{
	"partner_accepted", "implementation_strategy", "capacity_development",
	"other_partners_involved", "context",
}

var interventionReadable = append(append(append([]string{
	"reference_number", "status", "unicef_court", "unicef_accepted",
	"partner_accepted", "date_sent_to_partner", "in_amendment",
	"override_reason", "cancel_justification", "total_budget",
	"fr_total_amt_local", "fr_total_actual_amt_local",
	"fr_total_outstanding_amt_local", "fr_total_amt_usd",
	"fr_total_actual_amt_usd", "fr_currencies_match",
}, interventionCoreFields...), interventionSignatureFields...), "frs", "time_frames")

var tpmVisitFields = []string{
	"start", "end", "tpm_partner", "visit_information", "sections", "offices",
	"interventions", "locations",
}

var tpmVisitReadable = append([]string{
	"reference_number", "status", "reject_comment", "report_reject_comment",
	"cancel_comment", "approval_comment", "date_of_assigned",
	"date_of_unicef_approved",
}, tpmVisitFields...)

var engagementFields = []string{
	"partner", "engagement_type", "start", "end", "total_value",
	"date_of_field_visit", "date_of_draft_report_to_ip",
	"date_of_comments_by_ip", "date_of_report_submit", "joint_audit",
	"shared_ip_with", "findings",
}

var engagementReadable = append([]string{
	"reference_number", "status", "send_back_comment", "cancel_comment",
}, engagementFields...)

var travelFields = []string{
	"purpose", "start", "end", "traveler", "supervisor",
	"international_travel", "ta_required", "estimated_travel_cost", "currency",
	"mode_of_travel", "additional_note",
}

var travelReadable = append([]string{
	"reference_number", "status", "rejection_note", "cancellation_note",
	"certification_note", "completed_at", "expenses", "itinerary",
}, travelFields...)

var activityFields = []string{
	"activity_type", "monitor_type", "start", "end", "partner", "location",
	"sections", "offices", "interventions", "team_members",
}

var activityReadable = append([]string{
	"reference_number", "status", "reject_reason", "report_reject_reason",
	"cancel_reason", "end_date", "checklists", "overall_findings",
}, activityFields...)

func (s *PermissionService) load() {
	s.loadIntervention()
	s.loadTPMVisit()
	s.loadEngagement()
	s.loadTravel()
	s.loadMonitoringActivity()
	s.loadAdmin()
}

func (s *PermissionService) loadIntervention() {
	kind := models.KindIntervention
	editors := []models.RoleTag{models.RoleAuthor, models.RoleFocalPoint}
	unicefReaders := []models.RoleTag{
		models.RoleUnicefUser, models.RolePME, models.RolePRCSecretary,
		models.RoleBudgetOwner, models.RoleSeniorManagement,
	}
	partnerSide := []models.RoleTag{
		models.RolePartnerFocalPoint, models.RoleAuthorizedOfficer,
		models.RolePartnerOfficer,
	}
	allStatuses := []models.Status{
		models.InterventionDraft, models.InterventionReview,
		models.InterventionSignature, models.InterventionSigned,
		models.InterventionActive, models.InterventionEnded,
		models.InterventionClosed, models.InterventionSuspended,
		models.InterventionTerminated, models.InterventionCancelled,
	}

	s.grant(kind, allStatuses, append(append([]models.RoleTag{}, editors...), unicefReaders...),
		models.MatrixEntry{Readable: interventionReadable})
	s.grant(kind, allStatuses, partnerSide,
		models.MatrixEntry{Readable: interventionReadable})

	s.grant(kind, []models.Status{models.InterventionDraft}, editors, models.MatrixEntry{
		Writable:    append(append([]string{}, interventionCoreFields...), "unicef_accepted"),
		Transitions: []string{"send_to_partner", "accept", "unlock", "submit_for_review", "cancel"},
	})
	s.grant(kind, []models.Status{models.InterventionDraft},
		[]models.RoleTag{models.RolePartnerFocalPoint, models.RoleAuthorizedOfficer},
		models.MatrixEntry{
			Writable:    interventionPartnerFields,
			Transitions: []string{"accept", "send_to_unicef", "unlock"},
		})

	s.grant(kind, []models.Status{models.InterventionReview},
		[]models.RoleTag{models.RolePRCSecretary}, models.MatrixEntry{
			Writable:    []string{"review_date_prc", "prc_review_attachment"},
			Transitions: []string{"submit_to_signature", "reject_review"},
		})
	s.grant(kind, []models.Status{models.InterventionReview}, editors, models.MatrixEntry{
		Transitions: []string{"cancel"},
	})

	s.grant(kind, []models.Status{models.InterventionSignature}, editors, models.MatrixEntry{
		Writable:    interventionSignatureFields,
		Transitions: []string{"sign", "cancel"},
	})
	s.grant(kind, []models.Status{models.InterventionSignature},
		[]models.RoleTag{models.RoleAuthorizedOfficer}, models.MatrixEntry{
			Writable:    []string{"signed_by_partner_date", "partner_authorized_officer_signatory"},
			Transitions: []string{"sign"},
		})

	s.grant(kind, []models.Status{models.InterventionSigned}, editors, models.MatrixEntry{
		Writable:    []string{"budget_owner", "in_kind_amount", "supply_total"},
		Transitions: []string{"activate"},
	})
	s.grant(kind, []models.Status{models.InterventionSigned},
		[]models.RoleTag{models.RolePME}, models.MatrixEntry{Transitions: []string{"activate"}})

	s.grant(kind, []models.Status{models.InterventionActive}, editors, models.MatrixEntry{
		Writable:    []string{"budget_owner", "in_kind_amount", "supply_total", "override_reason"},
		Transitions: []string{"end"},
	})
	s.grant(kind, []models.Status{models.InterventionActive},
		[]models.RoleTag{models.RolePME, models.RoleSeniorManagement}, models.MatrixEntry{
			Transitions: []string{"suspend", "terminate", "end"},
		})
	s.grant(kind, []models.Status{models.InterventionSuspended},
		[]models.RoleTag{models.RolePME, models.RoleSeniorManagement}, models.MatrixEntry{
			Transitions: []string{"unsuspend", "terminate"},
		})

	s.grant(kind, []models.Status{models.InterventionEnded},
		append([]models.RoleTag{models.RoleBudgetOwner, models.RolePME}, editors...),
		models.MatrixEntry{
			Writable:    []string{"override_reason"},
			Transitions: []string{"close"},
		})

	// Dates and currency freeze once both sides have signed.
	s.deny(kind, []models.Status{models.InterventionSigned, models.InterventionActive},
		editors, models.FieldDeny{Fields: []string{"start", "currency", "title"}})
}

func (s *PermissionService) loadTPMVisit() {
	kind := models.KindTPMVisit
	staff := []models.RoleTag{models.RoleAuthor, models.RolePME, models.RoleUnicefUser}
	monitors := []models.RoleTag{models.RoleThirdPartyMonitor, models.RoleTPMFocalPoint}
	allStatuses := []models.Status{
		models.TPMVisitDraft, models.TPMVisitAssigned, models.TPMVisitAccepted,
		models.TPMVisitRejected, models.TPMVisitReported,
		models.TPMVisitReportRejected, models.TPMVisitApproved,
		models.TPMVisitCancelled,
	}

	s.grant(kind, allStatuses, staff, models.MatrixEntry{Readable: tpmVisitReadable})
	// Monitors see visits only once assignment reaches them.
	s.grant(kind, []models.Status{
		models.TPMVisitAssigned, models.TPMVisitAccepted, models.TPMVisitRejected,
		models.TPMVisitReported, models.TPMVisitReportRejected,
		models.TPMVisitApproved,
	}, monitors, models.MatrixEntry{Readable: tpmVisitReadable})

	s.grant(kind, []models.Status{models.TPMVisitDraft},
		[]models.RoleTag{models.RoleAuthor, models.RolePME}, models.MatrixEntry{
			Writable:    tpmVisitFields,
			Transitions: []string{"assign", "cancel"},
		})
	s.grant(kind, []models.Status{models.TPMVisitAssigned}, monitors, models.MatrixEntry{
		Transitions: []string{"accept", "reject"},
	})
	s.grant(kind, []models.Status{models.TPMVisitAssigned, models.TPMVisitRejected},
		[]models.RoleTag{models.RolePME}, models.MatrixEntry{Transitions: []string{"cancel"}})
	s.grant(kind, []models.Status{models.TPMVisitRejected},
		[]models.RoleTag{models.RoleAuthor, models.RolePME}, models.MatrixEntry{
			Writable:    tpmVisitFields,
			Transitions: []string{"assign"},
		})
	s.grant(kind, []models.Status{models.TPMVisitAccepted, models.TPMVisitReportRejected},
		monitors, models.MatrixEntry{
			Writable:    []string{"visit_information"},
			Transitions: []string{"send_report"},
		})
	s.grant(kind, []models.Status{models.TPMVisitReported},
		[]models.RoleTag{models.RolePME}, models.MatrixEntry{
			Writable:    []string{"approval_comment"},
			Transitions: []string{"approve", "reject_report"},
		})
}

func (s *PermissionService) loadEngagement() {
	kind := models.KindEngagement
	auditors := []models.RoleTag{models.RoleAuditStaff, models.RoleAuthor}
	readers := []models.RoleTag{models.RoleUnicefUser, models.RolePME}
	allStatuses := []models.Status{
		models.EngagementPartnerContacted, models.EngagementReportSubmitted,
		models.EngagementFinal, models.EngagementCancelled,
	}

	s.grant(kind, allStatuses, append(append([]models.RoleTag{}, auditors...), readers...),
		models.MatrixEntry{Readable: engagementReadable})

	s.grant(kind, []models.Status{models.EngagementPartnerContacted}, auditors,
		models.MatrixEntry{
			Writable:    engagementFields,
			Transitions: []string{"submit", "cancel"},
		})
	s.grant(kind, []models.Status{models.EngagementReportSubmitted}, auditors,
		models.MatrixEntry{
			Writable:    []string{"findings", "date_of_report_submit"},
			Transitions: []string{"finalize", "send_back", "cancel"},
		})
}

func (s *PermissionService) loadTravel() {
	kind := models.KindTravel
	traveler := []models.RoleTag{models.RoleAuthor}
	approvers := []models.RoleTag{models.RoleOverallApprover}
	allStatuses := []models.Status{
		models.TravelPlanned, models.TravelSubmitted, models.TravelApproved,
		models.TravelRejected, models.TravelCancelled,
		models.TravelSentForPayment, models.TravelCertificationSubmitted,
		models.TravelCertificationApproved, models.TravelCertificationRejected,
		models.TravelCertified, models.TravelCompleted,
	}

	s.grant(kind, allStatuses,
		append(append([]models.RoleTag{models.RoleUnicefUser}, traveler...), approvers...),
		models.MatrixEntry{Readable: travelReadable})

	s.grant(kind, []models.Status{models.TravelPlanned, models.TravelRejected},
		traveler, models.MatrixEntry{
			Writable:    travelFields,
			Transitions: []string{"submit_for_approval", "cancel"},
		})
	s.grant(kind, []models.Status{models.TravelSubmitted}, approvers, models.MatrixEntry{
		Transitions: []string{"approve", "reject"},
	})
	s.grant(kind, []models.Status{models.TravelSubmitted, models.TravelApproved},
		append(append([]models.RoleTag{}, traveler...), approvers...),
		models.MatrixEntry{Transitions: []string{"cancel"}})
	s.grant(kind, []models.Status{models.TravelApproved}, traveler, models.MatrixEntry{
		Writable:    []string{"itinerary", "expenses"},
		Transitions: []string{"send_for_payment"},
	})
	s.grant(kind, []models.Status{models.TravelSentForPayment, models.TravelCertificationRejected},
		traveler, models.MatrixEntry{
			Writable:    []string{"expenses", "certification_note"},
			Transitions: []string{"submit_certificate"},
		})
	s.grant(kind, []models.Status{models.TravelCertificationSubmitted}, approvers,
		models.MatrixEntry{Transitions: []string{"approve_certificate", "reject_certificate"}})
	s.grant(kind, []models.Status{models.TravelCertificationApproved}, approvers,
		models.MatrixEntry{Transitions: []string{"mark_as_certified"}})
	s.grant(kind, []models.Status{models.TravelCertified},
		append(append([]models.RoleTag{}, traveler...), approvers...),
		models.MatrixEntry{Transitions: []string{"mark_as_completed"}})

	// Cost estimates are frozen once approved; corrections go through expenses.
	s.deny(kind, []models.Status{models.TravelApproved}, traveler,
		models.FieldDeny{Fields: []string{"estimated_travel_cost"}})
}

func (s *PermissionService) loadMonitoringActivity() {
	kind := models.KindMonitoringActivity
	staff := []models.RoleTag{models.RoleAuthor, models.RoleFocalPoint}
	monitors := []models.RoleTag{models.RoleThirdPartyMonitor, models.RoleTPMFocalPoint}
	allStatuses := []models.Status{
		models.ActivityDraft, models.ActivityChecklist, models.ActivityReview,
		models.ActivityAssigned, models.ActivityDataCollection,
		models.ActivityReportFinalization, models.ActivitySubmitted,
		models.ActivityCompleted, models.ActivityCancelled,
	}

	s.grant(kind, allStatuses,
		append([]models.RoleTag{models.RoleUnicefUser, models.RolePME}, staff...),
		models.MatrixEntry{Readable: activityReadable})
	s.grant(kind, []models.Status{
		models.ActivityAssigned, models.ActivityDataCollection,
		models.ActivityReportFinalization, models.ActivitySubmitted,
		models.ActivityCompleted,
	}, monitors, models.MatrixEntry{Readable: activityReadable})

	s.grant(kind, []models.Status{models.ActivityDraft}, staff, models.MatrixEntry{
		Writable:    activityFields,
		Transitions: []string{"mark_details_configured", "cancel"},
	})
	s.grant(kind, []models.Status{models.ActivityChecklist}, staff, models.MatrixEntry{
		Writable:    []string{"checklists"},
		Transitions: []string{"mark_checklist_configured", "cancel"},
	})
	s.grant(kind, []models.Status{models.ActivityReview},
		[]models.RoleTag{models.RolePME}, models.MatrixEntry{
			Transitions: []string{"assign", "reject", "cancel"},
		})
	s.grant(kind, []models.Status{models.ActivityAssigned},
		append(append([]models.RoleTag{}, staff...), monitors...), models.MatrixEntry{
			Transitions: []string{"accept"},
		})
	s.grant(kind, []models.Status{models.ActivityAssigned},
		[]models.RoleTag{models.RolePME}, models.MatrixEntry{Transitions: []string{"cancel"}})
	s.grant(kind, []models.Status{models.ActivityDataCollection},
		append(append([]models.RoleTag{}, staff...), monitors...), models.MatrixEntry{
			Writable:    []string{"overall_findings", "end_date"},
			Transitions: []string{"mark_data_collected"},
		})
	s.grant(kind, []models.Status{models.ActivityReportFinalization},
		append(append([]models.RoleTag{}, staff...), monitors...), models.MatrixEntry{
			Writable:    []string{"overall_findings"},
			Transitions: []string{"submit_report"},
		})
	s.grant(kind, []models.Status{models.ActivitySubmitted},
		[]models.RoleTag{models.RolePME}, models.MatrixEntry{
			Transitions: []string{"complete", "reject_report"},
		})
}

// Admin can read and write everything in every status and fire any transition
// that any role may fire from that status; terminal statuses stay writable for
// admin through the carve-out in Resolve.
func (s *PermissionService) loadAdmin() {
	admin := []models.RoleTag{models.RoleAdmin}

	type slot struct {
		kind   models.Kind
		status models.Status
	}
	transitions := make(map[slot]map[string]struct{})
	for key, entry := range s.entries {
		sl := slot{kind: key.kind, status: key.status}
		set := transitions[sl]
		if set == nil {
			set = make(map[string]struct{})
			transitions[sl] = set
		}
		for _, t := range entry.Transitions {
			set[t] = struct{}{}
		}
	}

	for kind, spec := range models.KindSpecs {
		var readable, writable []string
		switch kind {
		case models.KindIntervention:
			readable = interventionReadable
			writable = append(append([]string{}, interventionCoreFields...), interventionSignatureFields...)
		case models.KindTPMVisit:
			readable = tpmVisitReadable
			writable = tpmVisitFields
		case models.KindEngagement:
			readable = engagementReadable
			writable = engagementFields
		case models.KindTravel:
			readable = travelReadable
			writable = travelFields
		case models.KindMonitoringActivity:
			readable = activityReadable
			writable = activityFields
		}
		for status := range spec.Statuses {
			names := make([]string, 0)
			for t := range transitions[slot{kind: kind, status: status}] {
				names = append(names, t)
			}
			s.grant(kind, []models.Status{status}, admin, models.MatrixEntry{
				Readable:    readable,
				Writable:    writable,
				Transitions: names,
			})
		}
	}
}
