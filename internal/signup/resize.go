package signup

import (
	"sort"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// ResizePolicy selects what happens to active registrations whose slot
// is removed by a shrink.
type ResizePolicy string

const (
	// ResizeReassign moves displaced registrations to the first
	// remaining slot with room, cancelling only when nothing has room.
	ResizeReassign ResizePolicy = "reassign"
	// ResizeCancel cancels displaced registrations unconditionally.
	ResizeCancel ResizePolicy = "cancel"
)

// SlotUpdate pairs a kept slot with the descriptor it must match after
// the resize.
type SlotUpdate struct {
	Slot model.Slot
	Desc SlotDescriptor
}

// ResizePlan is the diff between the persisted slot set and a freshly
// built template. Positions are stable: kept positions are updated in
// place, new positions are appended past the old count, and a shrink
// removes only the trailing excess.
type ResizePlan struct {
	Updates  []SlotUpdate
	Creates  []SlotDescriptor
	Removals []model.Slot
}

// Changed reports whether applying the plan would touch anything.
func (p ResizePlan) Changed() bool {
	return len(p.Updates) > 0 || len(p.Creates) > 0 || len(p.Removals) > 0
}

// PlanResize diffs the currently persisted slots of an instance against
// the slot descriptors a template build produced. The current slice may
// arrive in any order; descriptors are expected in template order with
// positions 1..N, which is what BuildTemplate guarantees.
func PlanResize(current []model.Slot, want []SlotDescriptor) ResizePlan {
	slots := make([]model.Slot, len(current))
	copy(slots, current)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Position < slots[j].Position })

	var plan ResizePlan
	for i, s := range slots {
		if i < len(want) {
			if !slotMatches(s, want[i]) {
				plan.Updates = append(plan.Updates, SlotUpdate{Slot: s, Desc: want[i]})
			}
			continue
		}
		plan.Removals = append(plan.Removals, s)
	}
	if len(want) > len(slots) {
		plan.Creates = append(plan.Creates, want[len(slots):]...)
	}
	return plan
}

func slotMatches(s model.Slot, d SlotDescriptor) bool {
	if s.Position != d.Position || s.Capacity != d.Capacity || s.IsHeld != d.Held {
		return false
	}
	if !strPtrEqual(s.Name, d.Name) {
		return false
	}
	return strPtrEqual(s.HeldReason, d.HeldReason)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SlotState is a remaining slot together with its active registration
// count, used when placing displaced registrations.
type SlotState struct {
	Slot   model.Slot
	Active uint32
}

// RegistrationMove is one planned mutation of a displaced registration:
// either a move to ToSlotID or, when ToSlotID is nil, a cancellation.
type RegistrationMove struct {
	Registration model.Registration
	ToSlotID     *uint64
}

// PlanReassignments decides the fate of every registration displaced by
// a shrink. Under the reassign policy each registration goes to the
// first remaining non-held slot with room, in position order, counting
// the placements already planned; when no slot has room it is
// cancelled. Under the cancel policy everything is cancelled. The
// remaining slice may arrive in any order.
func PlanReassignments(displaced []model.Registration, remaining []SlotState, policy ResizePolicy) []RegistrationMove {
	moves := make([]RegistrationMove, 0, len(displaced))
	if policy == ResizeCancel {
		for _, r := range displaced {
			moves = append(moves, RegistrationMove{Registration: r})
		}
		return moves
	}

	states := make([]SlotState, len(remaining))
	copy(states, remaining)
	sort.Slice(states, func(i, j int) bool { return states[i].Slot.Position < states[j].Slot.Position })

	for _, r := range displaced {
		var placed bool
		for i := range states {
			st := &states[i]
			if st.Slot.IsHeld || st.Active >= st.Slot.Capacity {
				continue
			}
			id := st.Slot.ID
			moves = append(moves, RegistrationMove{Registration: r, ToSlotID: &id})
			st.Active++
			placed = true
			break
		}
		if !placed {
			moves = append(moves, RegistrationMove{Registration: r})
		}
	}
	return moves
}
