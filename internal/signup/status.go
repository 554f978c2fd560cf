package signup

import (
	"fmt"
	"math"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// StatusTag is the derived lifecycle state of a form or instance.
type StatusTag string

const (
	StatusPaused       StatusTag = "paused"
	StatusInitializing StatusTag = "initializing"
	StatusUpdating     StatusTag = "updating"
	StatusScheduled    StatusTag = "scheduled"
	StatusAccepting    StatusTag = "accepting"
	StatusFull         StatusTag = "full"
	StatusClosed       StatusTag = "closed"
	StatusNoEvents     StatusTag = "no_events"
	// StatusUnknown is returned for raw instance statuses this
	// resolver does not recognize.
	StatusUnknown StatusTag = "unknown"
)

// Occupancy is the registration load of one instance: the number of
// active registrations against the total capacity of its non-held
// slots.
type Occupancy struct {
	Registrations uint32
	Capacity      uint32
}

// Full reports whether every spot is taken. An instance with zero
// capacity (template not yet configured) is never considered full.
func (o Occupancy) Full() bool {
	return o.Capacity > 0 && o.Registrations >= o.Capacity
}

// StatusReport is the resolved state of a form or instance plus the
// metadata UI consumers render. It is built once, bottom-up, and never
// mutated by the resolver after return.
type StatusReport struct {
	Tag            StatusTag
	Label          string
	Accepting      bool
	Registrations  uint32
	Capacity       uint32
	SpotsRemaining uint32
	// NextInstanceID is the instance whose state the report represents,
	// when the form aggregates several.
	NextInstanceID *uint64
}

// ResolveInstanceStatus derives the state of a single instance from
// its form, its raw status, its occupancy and the clock. It is a pure
// function with no side effects and is safe to call at any read
// frequency.
func ResolveInstanceStatus(f model.Form, inst model.Instance, occ Occupancy, now time.Time) StatusReport {
	if !f.IsActive {
		return report(StatusPaused, "Paused", occ, &inst.ID)
	}
	switch inst.Status {
	case model.InstanceInitializing:
		return report(StatusInitializing, "Setting up", occ, &inst.ID)
	case model.InstanceUpdating:
		return report(StatusUpdating, "Updating", occ, &inst.ID)
	case model.InstanceCanceled, model.InstanceClosed:
		return report(StatusClosed, "Closed", occ, &inst.ID)
	case model.InstanceScheduled, model.InstanceOpen:
		return resolveWindow(inst.OpensAt, inst.ClosesAt, occ, now, &inst.ID)
	}
	return report(StatusUnknown, "Unknown", occ, &inst.ID)
}

// ResolveFormStatus derives the state of a form. For repeated forms the
// instances must be ordered by event start ascending; the report
// represents the first open instance with spots remaining, falling back
// to the first scheduled one, then to any still initializing or
// updating, and finally to no_events. Totals are summed across all
// currently open instances, full ones included.
func ResolveFormStatus(f model.Form, instances []model.Instance, occ map[uint64]Occupancy, now time.Time) StatusReport {
	if !f.IsActive {
		return report(StatusPaused, "Paused", Occupancy{}, nil)
	}

	switch f.Scope {
	case model.ScopeSharedPool:
		return resolvePool(f, instances, occ, now)
	case model.ScopeSingleEvent:
		if len(instances) == 0 {
			return report(StatusInitializing, "Setting up", Occupancy{}, nil)
		}
		inst := instances[0]
		return ResolveInstanceStatus(f, inst, occ[inst.ID], now)
	case model.ScopeRepeated:
		return resolveRepeated(f, instances, occ, now)
	}
	return report(StatusUnknown, "Unknown", Occupancy{}, nil)
}

func resolvePool(f model.Form, instances []model.Instance, occ map[uint64]Occupancy, now time.Time) StatusReport {
	// A shared pool has at most one instance; if it is still being
	// provisioned, say so, otherwise the window comes straight from the
	// form's own fixed columns.
	var o Occupancy
	var instID *uint64
	if len(instances) > 0 {
		inst := instances[0]
		instID = &inst.ID
		o = occ[inst.ID]
		switch inst.Status {
		case model.InstanceInitializing:
			return report(StatusInitializing, "Setting up", o, instID)
		case model.InstanceUpdating:
			return report(StatusUpdating, "Updating", o, instID)
		}
	}
	return resolveWindow(f.OpensAt, f.ClosesAt, o, now, instID)
}

func resolveRepeated(f model.Form, instances []model.Instance, occ map[uint64]Occupancy, now time.Time) StatusReport {
	var (
		firstOpen      *model.Instance
		firstScheduled *model.Instance
		pending        *model.Instance // initializing or updating
		pendingTag     StatusTag
		totals         Occupancy
	)

	for i := range instances {
		inst := &instances[i]
		if inst.Status == model.InstanceCanceled {
			continue
		}
		if inst.ClosesAt != nil && !inst.ClosesAt.After(now) {
			continue
		}
		o := occ[inst.ID]
		switch inst.Status {
		case model.InstanceInitializing:
			if pending == nil {
				pending, pendingTag = inst, StatusInitializing
			}
		case model.InstanceUpdating:
			if pending == nil {
				pending, pendingTag = inst, StatusUpdating
			}
		case model.InstanceScheduled, model.InstanceOpen:
			if inst.OpensAt != nil && inst.OpensAt.After(now) {
				if firstScheduled == nil {
					firstScheduled = inst
				}
				continue
			}
			// Currently open: totals span every open instance, not just
			// the representative one.
			totals.Registrations += o.Registrations
			totals.Capacity += o.Capacity
			if firstOpen == nil && !o.Full() {
				firstOpen = inst
			}
		}
	}

	if firstOpen != nil {
		return report(StatusAccepting, "Open now", totals, &firstOpen.ID)
	}
	// Open-but-full instances do not preempt the fallback chain: a
	// later scheduled or still-provisioning instance is the
	// representative state, full only when nothing else qualifies.
	if firstScheduled != nil {
		r := report(StatusScheduled, opensLabel(*firstScheduled.OpensAt, now), occ[firstScheduled.ID], &firstScheduled.ID)
		return r
	}
	if pending != nil {
		label := "Setting up"
		if pendingTag == StatusUpdating {
			label = "Updating"
		}
		return report(pendingTag, label, occ[pending.ID], &pending.ID)
	}
	if totals.Capacity > 0 {
		return report(StatusFull, "Full", totals, nil)
	}
	return report(StatusNoEvents, "No upcoming events", Occupancy{}, nil)
}

// resolveWindow derives the state purely from an open/close window and
// occupancy.
func resolveWindow(opensAt, closesAt *time.Time, o Occupancy, now time.Time, instID *uint64) StatusReport {
	if opensAt != nil && opensAt.After(now) {
		return report(StatusScheduled, opensLabel(*opensAt, now), o, instID)
	}
	if closesAt != nil && !closesAt.After(now) {
		return report(StatusClosed, "Closed", o, instID)
	}
	if o.Full() {
		return report(StatusFull, "Full", o, instID)
	}
	return report(StatusAccepting, "Open now", o, instID)
}

// opensLabel renders the time until opening. The boundaries are part of
// the UI contract: under one day renders ceiling-hours, one to two days
// renders "tomorrow", further out renders floor-days, and a window that
// already opened renders "Open now".
func opensLabel(opensAt, now time.Time) string {
	delta := opensAt.Sub(now)
	if delta <= 0 {
		return "Open now"
	}
	days := delta.Hours() / 24
	switch {
	case days < 1:
		hours := int(math.Ceil(delta.Hours()))
		if hours == 1 {
			return "Opens in 1 hour"
		}
		return fmt.Sprintf("Opens in %d hours", hours)
	case days < 2:
		return "Opens tomorrow"
	default:
		return fmt.Sprintf("Opens in %d days", int(days))
	}
}

func report(tag StatusTag, label string, o Occupancy, instID *uint64) StatusReport {
	r := StatusReport{
		Tag:           tag,
		Label:         label,
		Accepting:     tag == StatusAccepting,
		Registrations: o.Registrations,
		Capacity:      o.Capacity,
	}
	if o.Capacity > o.Registrations {
		r.SpotsRemaining = o.Capacity - o.Registrations
	}
	r.NextInstanceID = instID
	return r
}
