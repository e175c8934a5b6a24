package tenant

import (
	"strings"

	"github.com/google/uuid"
)

// Tenant is the identity slice of a tenant record the matcher needs
type Tenant struct {
	ID         uuid.UUID  `json:"id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
}

// FullName returns "first last" with surrounding whitespace removed
func (t *Tenant) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(t.FirstName) + " " + strings.TrimSpace(t.LastName))
}

// Snapshot is a point-in-time list of non-deleted tenants, read once per matching pass
type Snapshot []*Tenant

// ByID finds a tenant in the snapshot
func (s Snapshot) ByID(id uuid.UUID) *Tenant {
	for _, t := range s {
		if t.ID == id {
			return t
		}
	}
	return nil
}
