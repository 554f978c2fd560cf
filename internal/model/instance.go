package model

import "time"

// Instance is one occurrence of a form, bound to at most one event. A
// shared_pool form has exactly one instance with no event. The timing
// columns are derived by the provisioner and are nullable on purpose:
// a nil OpensAt means the window opens immediately, a nil ClosesAt
// means it never closes on its own, and a nil EditCutoffAt means no
// cutoff is configured. Absence carries meaning here; it is not a
// sentinel for "unknown".
//
// Fields:
//  ID           – primary key identifier.
//  FormID       – form this instance belongs to.
//  EventID      – bound event (nil for shared_pool instances).
//  OpensAt      – computed opening time (nil = immediate).
//  ClosesAt     – computed closing time (nil = never).
//  EditCutoffAt – computed edit cutoff (nil = no cutoff).
//  Status       – raw persisted status tag.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Instance struct {
	ID           uint64         // instances.id
	FormID       uint64         // instances.form_id
	EventID      *uint64        // instances.event_id (nullable)
	OpensAt      *time.Time     // instances.opens_at (nullable)
	ClosesAt     *time.Time     // instances.closes_at (nullable)
	EditCutoffAt *time.Time     // instances.edit_cutoff_at (nullable)
	Status       InstanceStatus // instances.status
	CreatedAt    time.Time      // instances.created_at
	UpdatedAt    time.Time      // instances.updated_at
}
