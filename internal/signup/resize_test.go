package signup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

func strPtr(s string) *string { return &s }

func persisted(pos uint32, name string, capacity uint32) model.Slot {
	s := model.Slot{ID: uint64(pos) + 100, InstanceID: 1, Position: pos, Capacity: capacity}
	if name != "" {
		s.Name = strPtr(name)
	}
	return s
}

func TestPlanResize_NoChanges(t *testing.T) {
	current := []model.Slot{persisted(1, "Slot 1", 2), persisted(2, "Slot 2", 2)}
	want := []SlotDescriptor{
		{Position: 1, Name: strPtr("Slot 1"), Capacity: 2},
		{Position: 2, Name: strPtr("Slot 2"), Capacity: 2},
	}

	plan := PlanResize(current, want)
	assert.False(t, plan.Changed())
}

func TestPlanResize_Grow(t *testing.T) {
	current := []model.Slot{persisted(1, "Slot 1", 1)}
	want := []SlotDescriptor{
		{Position: 1, Name: strPtr("Slot 1"), Capacity: 1},
		{Position: 2, Name: strPtr("Slot 2"), Capacity: 1},
		{Position: 3, Name: strPtr("Slot 3"), Capacity: 1},
	}

	plan := PlanResize(current, want)
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Removals)
	require.Len(t, plan.Creates, 2)
	assert.Equal(t, uint32(2), plan.Creates[0].Position)
	assert.Equal(t, uint32(3), plan.Creates[1].Position)
}

func TestPlanResize_ShrinkRemovesTrailing(t *testing.T) {
	current := []model.Slot{persisted(1, "Slot 1", 1), persisted(2, "Slot 2", 1), persisted(3, "Slot 3", 1)}
	want := []SlotDescriptor{{Position: 1, Name: strPtr("Slot 1"), Capacity: 1}}

	plan := PlanResize(current, want)
	require.Len(t, plan.Removals, 2)
	assert.Equal(t, uint32(2), plan.Removals[0].Position)
	assert.Equal(t, uint32(3), plan.Removals[1].Position)
}

func TestPlanResize_CapacityChangeIsUpdate(t *testing.T) {
	current := []model.Slot{persisted(1, "Slot 1", 1)}
	want := []SlotDescriptor{{Position: 1, Name: strPtr("Slot 1"), Capacity: 4}}

	plan := PlanResize(current, want)
	require.Len(t, plan.Updates, 1)
	assert.Equal(t, uint32(4), plan.Updates[0].Desc.Capacity)
	assert.Empty(t, plan.Creates)
	assert.Empty(t, plan.Removals)
}

func TestPlanResize_HoldChangeIsUpdate(t *testing.T) {
	current := []model.Slot{persisted(1, "Slot 1", 1), persisted(2, "Slot 2", 1)}
	want := []SlotDescriptor{
		{Position: 1, Name: strPtr("Slot 1"), Capacity: 1},
		{Position: 2, Name: strPtr("Slot 2"), Capacity: 1, Held: true, HeldReason: strPtr("walk-ins")},
	}

	plan := PlanResize(current, want)
	require.Len(t, plan.Updates, 1)
	assert.True(t, plan.Updates[0].Desc.Held)
}

func TestPlanResize_UnsortedInputHandled(t *testing.T) {
	current := []model.Slot{persisted(3, "Slot 3", 1), persisted(1, "Slot 1", 1), persisted(2, "Slot 2", 1)}
	want := []SlotDescriptor{
		{Position: 1, Name: strPtr("Slot 1"), Capacity: 1},
		{Position: 2, Name: strPtr("Slot 2"), Capacity: 1},
	}

	plan := PlanResize(current, want)
	require.Len(t, plan.Removals, 1)
	assert.Equal(t, uint32(3), plan.Removals[0].Position)
}

func slotState(id uint64, pos, capacity, active uint32, held bool) SlotState {
	return SlotState{
		Slot:   model.Slot{ID: id, Position: pos, Capacity: capacity, IsHeld: held},
		Active: active,
	}
}

func displacedRegs(n int) []model.Registration {
	out := make([]model.Registration, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Registration{ID: uint64(i), Status: model.RegistrationConfirmed})
	}
	return out
}

func TestPlanReassignments_FirstSlotWithRoom(t *testing.T) {
	remaining := []SlotState{
		slotState(10, 1, 1, 1, false), // full
		slotState(11, 2, 2, 0, false), // two spots
	}
	moves := PlanReassignments(displacedRegs(2), remaining, ResizeReassign)
	require.Len(t, moves, 2)

	require.NotNil(t, moves[0].ToSlotID)
	assert.Equal(t, uint64(11), *moves[0].ToSlotID)
	require.NotNil(t, moves[1].ToSlotID)
	assert.Equal(t, uint64(11), *moves[1].ToSlotID)
}

func TestPlanReassignments_CountsPlannedPlacements(t *testing.T) {
	remaining := []SlotState{slotState(10, 1, 1, 0, false)}
	moves := PlanReassignments(displacedRegs(2), remaining, ResizeReassign)
	require.Len(t, moves, 2)

	require.NotNil(t, moves[0].ToSlotID)
	// Second displaced registration finds the slot already claimed by
	// the first planned move and falls through to cancellation.
	assert.Nil(t, moves[1].ToSlotID)
}

func TestPlanReassignments_SkipsHeldSlots(t *testing.T) {
	remaining := []SlotState{
		slotState(10, 1, 5, 0, true),
		slotState(11, 2, 1, 0, false),
	}
	moves := PlanReassignments(displacedRegs(1), remaining, ResizeReassign)
	require.Len(t, moves, 1)
	require.NotNil(t, moves[0].ToSlotID)
	assert.Equal(t, uint64(11), *moves[0].ToSlotID)
}

func TestPlanReassignments_PositionOrderRegardlessOfInputOrder(t *testing.T) {
	remaining := []SlotState{
		slotState(12, 3, 1, 0, false),
		slotState(10, 1, 1, 0, false),
	}
	moves := PlanReassignments(displacedRegs(1), remaining, ResizeReassign)
	require.Len(t, moves, 1)
	require.NotNil(t, moves[0].ToSlotID)
	assert.Equal(t, uint64(10), *moves[0].ToSlotID)
}

func TestPlanReassignments_CancelPolicy(t *testing.T) {
	remaining := []SlotState{slotState(10, 1, 5, 0, false)}
	moves := PlanReassignments(displacedRegs(3), remaining, ResizeCancel)
	require.Len(t, moves, 3)
	for _, m := range moves {
		assert.Nil(t, m.ToSlotID)
	}
}

func TestPlanReassignments_NoRemainingSlots(t *testing.T) {
	moves := PlanReassignments(displacedRegs(2), nil, ResizeReassign)
	require.Len(t, moves, 2)
	for _, m := range moves {
		assert.Nil(t, m.ToSlotID)
	}
}
