package model

import "time"

// Slot is one claimable inventory unit within an instance. Positions
// are 1-based and stable: a resize never renumbers surviving slots, it
// only appends past the old count or removes the trailing excess. The
// pair (instance_id, position) is unique in the database.
//
// Fields:
//  ID         – primary key identifier.
//  InstanceID – instance this slot belongs to.
//  Position   – 1-based stable ordering key.
//  Name       – optional display name (nil for unnamed slots).
//  Capacity   – number of confirmed registrations the slot accepts (>=1).
//  IsHeld     – true when a holdout rule reserved this slot.
//  HeldReason – why the slot is held (nil unless IsHeld).
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Slot struct {
	ID         uint64    // slots.id
	InstanceID uint64    // slots.instance_id
	Position   uint32    // slots.position
	Name       *string   // slots.name (nullable)
	Capacity   uint32    // slots.capacity
	IsHeld     bool      // slots.is_held
	HeldReason *string   // slots.held_reason (nullable)
	CreatedAt  time.Time // slots.created_at
	UpdatedAt  time.Time // slots.updated_at
}
