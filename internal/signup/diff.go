package signup

import (
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// MatchEvents filters a production's events down to the ones the form
// currently targets: always restricted to non-canceled events starting
// after now, then narrowed by the form's matching rule. The input order
// is preserved; callers pass events ordered by start time.
func MatchEvents(f model.Form, events []model.Event, now time.Time) []model.Event {
	var typeSet map[string]bool
	var idSet map[uint64]bool
	switch f.EventMatching {
	case model.MatchEventTypes:
		typeSet = make(map[string]bool)
		for _, t := range f.EventTypeList() {
			typeSet[t] = true
		}
	case model.MatchManual:
		idSet = make(map[uint64]bool)
		for _, id := range f.ManualEventIDList() {
			idSet[id] = true
		}
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if !ev.IsUpcoming(now) {
			continue
		}
		switch f.EventMatching {
		case model.MatchAll:
			out = append(out, ev)
		case model.MatchEventTypes:
			if typeSet[ev.EventType] {
				out = append(out, ev)
			}
		case model.MatchManual:
			if idSet[ev.ID] {
				out = append(out, ev)
			}
		}
	}
	return out
}

// EventDiff is the difference between the events a form currently
// targets and the instances already provisioned for it.
type EventDiff struct {
	// ToAdd are matching events with no instance yet.
	ToAdd []model.Event
	// ToRemove are instances whose event no longer matches.
	ToRemove []model.Instance
}

// HasChanges reports whether applying the diff would do anything.
func (d EventDiff) HasChanges() bool {
	return len(d.ToAdd) > 0 || len(d.ToRemove) > 0
}

// DiffEvents computes the add/remove sets between matching events and
// provisioned instances. Instances without a bound event (shared-pool
// instances) and already-canceled instances are left alone.
func DiffEvents(matching []model.Event, provisioned []model.Instance) EventDiff {
	backed := make(map[uint64]bool, len(provisioned))
	for _, inst := range provisioned {
		if inst.EventID != nil && inst.Status != model.InstanceCanceled {
			backed[*inst.EventID] = true
		}
	}
	wanted := make(map[uint64]bool, len(matching))
	for _, ev := range matching {
		wanted[ev.ID] = true
	}

	var diff EventDiff
	for _, ev := range matching {
		if !backed[ev.ID] {
			diff.ToAdd = append(diff.ToAdd, ev)
		}
	}
	for _, inst := range provisioned {
		if inst.EventID == nil || inst.Status == model.InstanceCanceled {
			continue
		}
		if !wanted[*inst.EventID] {
			diff.ToRemove = append(diff.ToRemove, inst)
		}
	}
	return diff
}
