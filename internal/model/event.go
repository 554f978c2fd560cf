package model

import "time"

// Event represents a scheduled occurrence of a production (a show date,
// an audition day, a rehearsal). The event data is owned by the event
// collaborator; this engine only reads it to decide which events a form
// targets and to compute instance timing.
//
// Fields:
//  ID           – primary key identifier.
//  ProductionID – production this event belongs to.
//  Name         – display name of the occurrence.
//  EventType    – free-form type tag used by event_types matching
//                 (e.g. "performance", "audition").
//  StartsAt     – when the event begins (UTC).
//  Status       – SCHEDULED, CANCELED or FINISHED.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Event struct {
	ID           uint64      // events.id
	ProductionID uint64      // events.production_id
	Name         string      // events.name
	EventType    string      // events.event_type
	StartsAt     time.Time   // events.starts_at
	Status       EventStatus // events.status
	CreatedAt    time.Time   // events.created_at
	UpdatedAt    time.Time   // events.updated_at
}

// IsUpcoming reports whether the event is still a valid provisioning
// target: not canceled and starting after the given time.
func (e Event) IsUpcoming(now time.Time) bool {
	return e.Status != EventCanceled && e.StartsAt.After(now)
}
