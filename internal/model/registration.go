package model

import "time"

// Registration is a person's or guest's claim on a slot. The
// authoritative create path lives in the claim handler; the engine
// itself only mutates registrations as a side effect of reconciliation
// (cancel-on-removal, reassign-on-shrink). This struct corresponds to
// a row in the `registrations` table.
//
// Fields:
//  ID            – primary key identifier.
//  SlotID        – slot being claimed.
//  UserID        – registered user (nil for guest claims).
//  GuestName     – display name for guest claims (nil otherwise).
//  Status        – CONFIRMED, QUEUED or CANCELLED.
//  QueuePosition – ordering key among QUEUED registrations on a slot.
//  CancelReason  – why a cancellation happened (nil unless cancelled).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Registration struct {
	ID            uint64             // registrations.id
	SlotID        uint64             // registrations.slot_id
	UserID        *uint64            // registrations.user_id (nullable)
	GuestName     *string            // registrations.guest_name (nullable)
	Status        RegistrationStatus // registrations.status
	QueuePosition uint32             // registrations.queue_position
	CancelReason  *string            // registrations.cancel_reason (nullable)
	CreatedAt     time.Time          // registrations.created_at
	UpdatedAt     time.Time          // registrations.updated_at
}

// IsActive reports whether the registration still occupies a slot.
func (r Registration) IsActive() bool {
	return r.Status == RegistrationConfirmed || r.Status == RegistrationQueued
}
