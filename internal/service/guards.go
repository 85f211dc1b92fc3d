package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/unicef/etools-docflow/internal/models"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

const dateLayout = "2006-01-02"

// amountsEqual compares monetary values with a half-cent tolerance; amounts
// arrive as float64 from JSON and the ERP feed.
func amountsEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// requireFields fails when any named field is absent or empty.
func requireFields(fields ...string) Guard {
	return Guard{
		Name: "required_fields",
		Check: func(gc *GuardContext) error {
			missing := make([]string, 0)
			for _, field := range fields {
				v, ok := gc.Doc.Data[field]
				if !ok || v == nil {
					missing = append(missing, field)
					continue
				}
				if s, isStr := v.(string); isStr && s == "" {
					missing = append(missing, field)
				}
			}
			if len(missing) > 0 {
				return apperrors.Transition(fmt.Sprintf("Required fields missing: %s", strings.Join(missing, ", ")))
			}
			return nil
		},
	}
}

// requireDateOrder fails when the start field is after the end field. Absent
// dates pass; presence is the business of requireFields.
func requireDateOrder(startField, endField string) Guard {
	return Guard{
		Name: "date_order",
		Check: func(gc *GuardContext) error {
			start, okStart := parseDate(gc.Doc.Data.String(startField))
			end, okEnd := parseDate(gc.Doc.Data.String(endField))
			if !okStart || !okEnd {
				return nil
			}
			if start.After(end) {
				return apperrors.Transition("Start date must precede end date")
			}
			return nil
		},
	}
}

// requireDatesNotFuture fails when any named date lies after today.
func requireDatesNotFuture(fields ...string) Guard {
	return Guard{
		Name: "dates_not_future",
		Check: func(gc *GuardContext) error {
			for _, field := range fields {
				d, ok := parseDate(gc.Doc.Data.String(field))
				if !ok {
					continue
				}
				if d.After(gc.Today) {
					return apperrors.Transition(fmt.Sprintf("Date %s cannot be in the future", field))
				}
			}
			return nil
		},
	}
}

// requireStartReached fails while the start date lies in the future.
func requireStartReached(field string) Guard {
	return Guard{
		Name: "start_reached",
		Check: func(gc *GuardContext) error {
			start, ok := parseDate(gc.Doc.Data.String(field))
			if !ok {
				return apperrors.Transition("Start date is required")
			}
			if start.After(gc.Today) {
				return apperrors.Transition("Start date has not been reached")
			}
			return nil
		},
	}
}

// requireEndPassed fails until the end date has passed.
func requireEndPassed(field string) Guard {
	return Guard{
		Name: "end_passed",
		Check: func(gc *GuardContext) error {
			end, ok := parseDate(gc.Doc.Data.String(field))
			if !ok {
				return apperrors.Transition("End date is required")
			}
			if end.After(gc.Today) {
				return apperrors.Transition("End date has not passed")
			}
			return nil
		},
	}
}

// requireAttachment fails unless a binding with the code exists.
func requireAttachment(code, message string) Guard {
	return Guard{
		Name: "attachment_" + code,
		Check: func(gc *GuardContext) error {
			if !gc.HasBinding(code) {
				return apperrors.Transition(message)
			}
			return nil
		},
	}
}

// requireAttachmentForFlag requires a binding only when the boolean field is
// set; unset flags pass.
func requireAttachmentForFlag(flag, code, message string) Guard {
	return Guard{
		Name: "attachment_for_" + flag,
		Check: func(gc *GuardContext) error {
			if !gc.Doc.Data.Bool(flag) {
				return nil
			}
			if !gc.HasBinding(code) {
				return apperrors.Transition(message)
			}
			return nil
		},
	}
}

// requireParticipant fails unless at least one participant link carries the
// role. Documents cannot leave draft without an assigned focal point.
func requireParticipant(role models.RoleTag, message string) Guard {
	return Guard{
		Name: "participant_" + string(role),
		Check: func(gc *GuardContext) error {
			if !gc.HasParticipant(role) {
				return apperrors.Transition(message)
			}
			return nil
		},
	}
}

// requireNoOpenAmendment blocks transitions while an amendment is in flight.
func requireNoOpenAmendment() Guard {
	return Guard{
		Name: "no_open_amendment",
		Check: func(gc *GuardContext) error {
			if gc.Doc.Data.Bool("in_amendment") {
				return apperrors.Transition("Cannot complete until the open amendment is merged or cancelled")
			}
			return nil
		},
	}
}

// requireMutualAcceptance fails until both sides have accepted the document.
func requireMutualAcceptance() Guard {
	return Guard{
		Name: "mutual_acceptance",
		Check: func(gc *GuardContext) error {
			if !gc.Doc.Data.Bool("partner_accepted") || !gc.Doc.Data.Bool("unicef_accepted") {
				return apperrors.Transition("Both UNICEF and the partner must accept the document")
			}
			return nil
		},
	}
}

// requireSignatures fails until both signature dates and signatories are set.
func requireSignatures() Guard {
	return Guard{
		Name: "signatures",
		Check: func(gc *GuardContext) error {
			if gc.Doc.Data.String("signed_by_unicef_date") == "" ||
				gc.Doc.Data.String("signed_by_partner_date") == "" {
				return apperrors.Transition("Both signature dates are required")
			}
			if gc.Doc.Data.String("unicef_signatory") == "" ||
				gc.Doc.Data.String("partner_authorized_officer_signatory") == "" {
				return apperrors.Transition("Both signatories are required")
			}
			return nil
		},
	}
}

// requireFRBalance enforces the closure balance rule: FR total equals actual
// and outstanding DCTs are zero. Over the review threshold the rule is
// replaced by a final review attachment requirement; an override reason
// bypasses the balance check and lands in the journal like any tracked field.
func requireFRBalance() Guard {
	return Guard{
		Name: "fr_balance",
		Check: func(gc *GuardContext) error {
			if gc.ReviewThresholdUSD > 0 && gc.Totals.TotalAmtUSD > gc.ReviewThresholdUSD {
				if !gc.HasBinding(models.AttachmentCodeFinalPartnershipReview) {
					return apperrors.Transition("Final partnership review attachment is required for high value documents")
				}
				return nil
			}
			if gc.Doc.Data.String("override_reason") != "" {
				return nil
			}
			if !amountsEqual(gc.Totals.TotalAmtLocal, gc.Totals.ActualAmtLocal) ||
				!amountsEqual(gc.Totals.OutstandingAmtLocal, 0) {
				return apperrors.Transition("Total FR amount needs to equal total actual amount, and Total Outstanding DCTs need to equal to 0")
			}
			return nil
		},
	}
}

// requireCurrenciesMatch blocks activation while the linked reservations
// disagree on currency among themselves.
func requireCurrenciesMatch() Guard {
	return Guard{
		Name: "currencies_match",
		Check: func(gc *GuardContext) error {
			if !gc.Totals.CurrenciesMatch {
				return apperrors.Transition("All linked fund reservations must share one currency")
			}
			return nil
		},
	}
}

// requireLinkedReservation fails when no reservation is linked.
func requireLinkedReservation() Guard {
	return Guard{
		Name: "linked_reservation",
		Check: func(gc *GuardContext) error {
			if len(gc.Reservations) == 0 {
				return apperrors.Transition("At least one fund reservation must be linked")
			}
			return nil
		},
	}
}
