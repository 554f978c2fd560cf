package model

import "fmt"

// This file defines the closed enumerations used across the signup engine.
// Every axis that the database stores as a string (form scope, slot
// generation mode, schedule mode, closing rule, event matching rule and
// the various status columns) gets its own named type so that decision
// points can switch exhaustively instead of comparing open-ended strings.

// FormScope determines how many instances a form produces and how they
// bind to events.
type FormScope string

const (
	// ScopeRepeated provisions one instance per matching event.
	ScopeRepeated FormScope = "repeated"
	// ScopeSingleEvent binds exactly one instance to one configured event.
	ScopeSingleEvent FormScope = "single_event"
	// ScopeSharedPool keeps one instance with no bound event; all
	// claimants share the same slot set.
	ScopeSharedPool FormScope = "shared_pool"
)

// ParseFormScope validates a raw scope string.
func ParseFormScope(s string) (FormScope, error) {
	switch FormScope(s) {
	case ScopeRepeated, ScopeSingleEvent, ScopeSharedPool:
		return FormScope(s), nil
	}
	return "", fmt.Errorf("unknown form scope %q", s)
}

// GenerationMode selects how a form's slot template is built.
type GenerationMode string

const (
	// GenNumbered produces N slots named by ordinal.
	GenNumbered GenerationMode = "numbered"
	// GenTimeBased produces N slots at a start time plus a constant interval.
	GenTimeBased GenerationMode = "time_based"
	// GenNamed produces one slot per explicit name.
	GenNamed GenerationMode = "named"
	// GenSimpleCapacity produces a single slot carrying the whole capacity.
	GenSimpleCapacity GenerationMode = "simple_capacity"
	// GenOpenList produces individually trackable capacity-1 slots until
	// the count crosses the unlimited ceiling.
	GenOpenList GenerationMode = "open_list"
)

// ParseGenerationMode validates a raw generation mode string.
func ParseGenerationMode(s string) (GenerationMode, error) {
	switch GenerationMode(s) {
	case GenNumbered, GenTimeBased, GenNamed, GenSimpleCapacity, GenOpenList:
		return GenerationMode(s), nil
	}
	return "", fmt.Errorf("unknown generation mode %q", s)
}

// ScheduleMode determines whether instance timing is computed relative to
// the bound event or taken verbatim from the form.
type ScheduleMode string

const (
	ScheduleRelative ScheduleMode = "relative"
	ScheduleFixed    ScheduleMode = "fixed"
)

// ClosesMode selects how an instance's closing time is derived.
type ClosesMode string

const (
	// CloseAtEventStart closes registration when the event starts.
	CloseAtEventStart ClosesMode = "event_start"
	// CloseAtEventEnd closes registration at the event's assumed end.
	CloseAtEventEnd ClosesMode = "event_end"
	// CloseCustom closes at a signed offset before (or, when negative,
	// after) the event starts.
	CloseCustom ClosesMode = "custom"
)

// CloseOffsetUnit is the unit of a custom closing offset. Only hours and
// days are supported; anything else is a configuration error rather than
// a silent fallback.
type CloseOffsetUnit string

const (
	OffsetHours CloseOffsetUnit = "hours"
	OffsetDays  CloseOffsetUnit = "days"
)

// ParseCloseOffsetUnit validates a raw offset unit string.
func ParseCloseOffsetUnit(s string) (CloseOffsetUnit, error) {
	switch CloseOffsetUnit(s) {
	case OffsetHours, OffsetDays:
		return CloseOffsetUnit(s), nil
	}
	return "", fmt.Errorf("unsupported close offset unit %q", s)
}

// EventMatching selects which events a repeated form targets.
type EventMatching string

const (
	// MatchAll targets every non-canceled future event of the production.
	MatchAll EventMatching = "all"
	// MatchEventTypes targets events whose type is in the form's filter set.
	MatchEventTypes EventMatching = "event_types"
	// MatchManual targets an explicit list of event IDs.
	MatchManual EventMatching = "manual"
)

// InstanceStatus is the raw persisted status of an instance. The status
// resolver combines it with timing and occupancy to derive the
// user-facing state.
type InstanceStatus string

const (
	// InstanceInitializing is the status every new instance starts in,
	// regardless of computed timing; the sweep promotes it once slot
	// generation has completed.
	InstanceInitializing InstanceStatus = "INITIALIZING"
	// InstanceUpdating marks an instance whose form settings changed and
	// whose slots are being recomputed.
	InstanceUpdating InstanceStatus = "UPDATING"
	// InstanceScheduled means timing is computed and the open window has
	// not started yet.
	InstanceScheduled InstanceStatus = "SCHEDULED"
	// InstanceOpen means the instance is inside its registration window.
	InstanceOpen InstanceStatus = "OPEN"
	// InstanceClosed means the window has passed.
	InstanceClosed InstanceStatus = "CLOSED"
	// InstanceCanceled marks instances kept for history after their event
	// stopped matching.
	InstanceCanceled InstanceStatus = "CANCELED"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationQueued    RegistrationStatus = "QUEUED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
)

// EventStatus is the lifecycle state of an event as owned by the
// event collaborator. This engine only reads it.
type EventStatus string

const (
	EventScheduled EventStatus = "SCHEDULED"
	EventCanceled  EventStatus = "CANCELED"
	EventFinished  EventStatus = "FINISHED"
)
