package service

import (
	"github.com/unicef/etools-docflow/internal/models"
)

// PermissionService answers, for a (kind, status, role set) triple, which
// field paths are readable and writable and which transitions may fire. The
// matrix is data, loaded once at construction and immutable afterwards.
type PermissionService struct {
	entries map[matrixKey]models.MatrixEntry
	denies  map[matrixKey]models.FieldDeny
}

type matrixKey struct {
	kind   models.Kind
	status models.Status
	role   models.RoleTag
}

// NewPermissionService loads the static matrix tables.
func NewPermissionService() *PermissionService {
	s := &PermissionService{
		entries: make(map[matrixKey]models.MatrixEntry),
		denies:  make(map[matrixKey]models.FieldDeny),
	}
	s.load()
	return s
}

// Resolve unions entries across the held role tags, then applies explicit
// denies; denies win. Unknown (kind, status) pairs yield empty sets, which
// callers treat as a full denial. Terminal statuses never yield writable
// fields for non-admin tags.
func (s *PermissionService) Resolve(kind models.Kind, status models.Status, roles models.RoleSet) models.Permissions {
	perms := models.Permissions{
		Readable:    make(map[string]struct{}),
		Writable:    make(map[string]struct{}),
		Transitions: make(map[string]struct{}),
	}

	for role := range roles {
		entry, ok := s.entries[matrixKey{kind: kind, status: status, role: role}]
		if !ok {
			continue
		}
		for _, f := range entry.Readable {
			perms.Readable[f] = struct{}{}
		}
		for _, f := range entry.Writable {
			perms.Writable[f] = struct{}{}
		}
		for _, t := range entry.Transitions {
			perms.Transitions[t] = struct{}{}
		}
	}

	for role := range roles {
		deny, ok := s.denies[matrixKey{kind: kind, status: status, role: role}]
		if !ok {
			continue
		}
		for _, f := range deny.Fields {
			delete(perms.Writable, f)
		}
		for _, t := range deny.Transitions {
			delete(perms.Transitions, t)
		}
	}

	if spec, ok := models.KindSpecs[kind]; ok {
		if _, terminal := spec.Terminal[status]; terminal && !roles.Has(models.RoleAdmin) {
			perms.Writable = make(map[string]struct{})
		}
	}

	return perms
}

func (s *PermissionService) grant(kind models.Kind, statuses []models.Status, roles []models.RoleTag, entry models.MatrixEntry) {
	for _, status := range statuses {
		for _, role := range roles {
			key := matrixKey{kind: kind, status: status, role: role}
			existing := s.entries[key]
			existing.Readable = append(existing.Readable, entry.Readable...)
			existing.Writable = append(existing.Writable, entry.Writable...)
			existing.Transitions = append(existing.Transitions, entry.Transitions...)
			s.entries[key] = existing
		}
	}
}

func (s *PermissionService) deny(kind models.Kind, statuses []models.Status, roles []models.RoleTag, deny models.FieldDeny) {
	for _, status := range statuses {
		for _, role := range roles {
			key := matrixKey{kind: kind, status: status, role: role}
			existing := s.denies[key]
			existing.Fields = append(existing.Fields, deny.Fields...)
			existing.Transitions = append(existing.Transitions, deny.Transitions...)
			s.denies[key] = existing
		}
	}
}
