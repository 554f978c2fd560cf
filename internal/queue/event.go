// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationsCancelledEvent is published when a reconcile or resize
// cancels one or more registrations. It carries enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type RegistrationsCancelledEvent struct {
	FormID          uint64   `json:"form_id"`
	FormName        string   `json:"form_name"`
	InstanceID      uint64   `json:"instance_id"`
	EventName       string   `json:"event_name,omitempty"`
	Reason          string   `json:"reason"`
	RegistrationIDs []uint64 `json:"registration_ids"`
	Names           []string `json:"names"`
	CancelledAt     string   `json:"cancelled_at"`
}
