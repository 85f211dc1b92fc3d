package service

import (
	"fmt"
	"time"

	"github.com/unicef/etools-docflow/internal/models"
)

// GuardContext is the read snapshot a transition evaluates against. It is
// assembled once per attempt, inside the document row lock, so every guard
// sees the same state.
type GuardContext struct {
	Doc          *models.Document
	Children     []models.ChildRow
	Reservations []models.Reservation
	Bindings     []models.AttachmentBinding
	Participants []models.ParticipantLink
	Totals       models.FRTotals
	Today        time.Time

	// ReviewThresholdUSD is the amount above which close requires a final
	// review attachment instead of plain balance equality.
	ReviewThresholdUSD float64

	// Comment is the caller supplied comment, already validated as present
	// for transitions that require one.
	Comment string
}

// HasBinding reports whether an attachment binding with the code exists.
func (gc *GuardContext) HasBinding(code string) bool {
	for _, b := range gc.Bindings {
		if b.Code == code {
			return true
		}
	}
	return false
}

// HasParticipant reports whether any participant link carries the role.
func (gc *GuardContext) HasParticipant(role models.RoleTag) bool {
	for _, p := range gc.Participants {
		if p.Role == role {
			return true
		}
	}
	return false
}

// Guard is a named precondition. Check returns nil to pass or a domain error
// whose message names the first failing condition.
type Guard struct {
	Name  string
	Check func(gc *GuardContext) error
}

// EffectKind tags a deferred side effect of a committed transition.
type EffectKind string

const (
	EffectNotify      EffectKind = "notify"
	EffectHACTRecount EffectKind = "hact_recount"
)

// EffectSpec declares one post-commit effect. Effects run after the
// transaction commits; a failing effect is logged, never rolled back.
type EffectSpec struct {
	Kind     EffectKind
	Template string
	// Recipients names the role tags resolved against participant links when
	// the effect fires.
	Recipients []models.RoleTag
}

// Transition is one named edge of a kind's status machine.
type Transition struct {
	Name string
	From []models.Status
	To   models.Status

	// RequiresComment names the data field the caller's comment is stored
	// under; empty means no comment is required.
	RequiresComment string

	// Apply mutates document data beyond the status flip, inside the same
	// transaction. Optional.
	Apply func(gc *GuardContext)

	// Guards run in declaration order; the first failure aborts the attempt.
	Guards []Guard

	Effects []EffectSpec

	// AutoFollow names a transition attempted immediately after this one
	// commits, best effort, at most one hop.
	AutoFollow string
}

// AllowsFrom reports whether the transition may fire from the status.
func (t Transition) AllowsFrom(status models.Status) bool {
	for _, s := range t.From {
		if s == status {
			return true
		}
	}
	return false
}

// Catalog holds every transition of every kind, keyed by name within a kind.
type Catalog map[models.Kind]map[string]Transition

// validate rejects malformed catalogs at construction: unknown statuses,
// dangling auto-follow targets, and auto-follow chains longer than one hop.
func (c Catalog) validate() error {
	for kind, transitions := range c {
		spec, ok := models.KindSpecs[kind]
		if !ok {
			return fmt.Errorf("transition catalog: unknown kind %q", kind)
		}
		for name, t := range transitions {
			if _, ok := spec.Statuses[t.To]; !ok {
				return fmt.Errorf("transition catalog: %s.%s targets unknown status %q", kind, name, t.To)
			}
			for _, from := range t.From {
				if _, ok := spec.Statuses[from]; !ok {
					return fmt.Errorf("transition catalog: %s.%s lists unknown source status %q", kind, name, from)
				}
			}
			if t.AutoFollow == "" {
				continue
			}
			follow, ok := transitions[t.AutoFollow]
			if !ok {
				return fmt.Errorf("transition catalog: %s.%s auto-follows missing transition %q", kind, name, t.AutoFollow)
			}
			if !follow.AllowsFrom(t.To) {
				return fmt.Errorf("transition catalog: %s.%s auto-follow %q cannot fire from %q", kind, name, t.AutoFollow, t.To)
			}
			if follow.AutoFollow != "" {
				return fmt.Errorf("transition catalog: %s.%s auto-follow chain exceeds one hop", kind, name)
			}
		}
	}
	return nil
}
