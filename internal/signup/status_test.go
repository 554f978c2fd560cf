package signup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func activeForm(scope model.FormScope) model.Form {
	return model.Form{ID: 1, Scope: scope, IsActive: true}
}

func openInstance(id uint64, opensIn, closesIn time.Duration) model.Instance {
	inst := model.Instance{ID: id, FormID: 1, Status: model.InstanceOpen}
	if opensIn != 0 {
		opens := now.Add(opensIn)
		inst.OpensAt = &opens
	}
	if closesIn != 0 {
		closes := now.Add(closesIn)
		inst.ClosesAt = &closes
	}
	return inst
}

func TestResolveInstanceStatus_PausedWinsOverEverything(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)
	f.IsActive = false
	inst := openInstance(1, -time.Hour, time.Hour)

	r := ResolveInstanceStatus(f, inst, Occupancy{}, now)
	assert.Equal(t, StatusPaused, r.Tag)
	assert.False(t, r.Accepting)
}

func TestResolveInstanceStatus_Lifecycle(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)

	cases := []struct {
		status model.InstanceStatus
		want   StatusTag
		label  string
	}{
		{model.InstanceInitializing, StatusInitializing, "Setting up"},
		{model.InstanceUpdating, StatusUpdating, "Updating"},
		{model.InstanceCanceled, StatusClosed, "Closed"},
		{model.InstanceClosed, StatusClosed, "Closed"},
	}
	for _, tc := range cases {
		inst := model.Instance{ID: 1, Status: tc.status}
		r := ResolveInstanceStatus(f, inst, Occupancy{}, now)
		assert.Equal(t, tc.want, r.Tag, "status %s", tc.status)
		assert.Equal(t, tc.label, r.Label, "status %s", tc.status)
	}
}

func TestResolveInstanceStatus_OpenWindow(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)
	inst := openInstance(1, -time.Hour, 2*time.Hour)

	r := ResolveInstanceStatus(f, inst, Occupancy{Registrations: 3, Capacity: 10}, now)
	assert.Equal(t, StatusAccepting, r.Tag)
	assert.Equal(t, "Open now", r.Label)
	assert.True(t, r.Accepting)
	assert.Equal(t, uint32(7), r.SpotsRemaining)
}

func TestResolveInstanceStatus_Full(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)
	inst := openInstance(1, -time.Hour, 2*time.Hour)

	r := ResolveInstanceStatus(f, inst, Occupancy{Registrations: 10, Capacity: 10}, now)
	assert.Equal(t, StatusFull, r.Tag)
	assert.False(t, r.Accepting)
	assert.Equal(t, uint32(0), r.SpotsRemaining)
}

func TestResolveInstanceStatus_ZeroCapacityNeverFull(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)
	inst := openInstance(1, -time.Hour, 2*time.Hour)

	r := ResolveInstanceStatus(f, inst, Occupancy{}, now)
	assert.Equal(t, StatusAccepting, r.Tag)
}

func TestResolveInstanceStatus_ClosedWindow(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)
	inst := openInstance(1, -3*time.Hour, -time.Hour)

	r := ResolveInstanceStatus(f, inst, Occupancy{}, now)
	assert.Equal(t, StatusClosed, r.Tag)
}

func TestResolveInstanceStatus_ClosesExactlyNowIsClosed(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)
	inst := model.Instance{ID: 1, Status: model.InstanceOpen}
	closes := now
	inst.ClosesAt = &closes

	r := ResolveInstanceStatus(f, inst, Occupancy{}, now)
	assert.Equal(t, StatusClosed, r.Tag)
}

func TestOpensLabel_Boundaries(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{-time.Minute, "Open now"},
		{0, "Open now"},
		{30 * time.Minute, "Opens in 1 hour"},
		{time.Hour, "Opens in 1 hour"},
		{61 * time.Minute, "Opens in 2 hours"},
		{5 * time.Hour, "Opens in 5 hours"},
		{23*time.Hour + 30*time.Minute, "Opens in 24 hours"},
		{24 * time.Hour, "Opens tomorrow"},
		{36 * time.Hour, "Opens tomorrow"},
		{48 * time.Hour, "Opens in 2 days"},
		{5 * 24 * time.Hour, "Opens in 5 days"},
		{5*24*time.Hour + 23*time.Hour, "Opens in 5 days"},
	}
	for _, tc := range cases {
		got := opensLabel(now.Add(tc.in), now)
		assert.Equal(t, tc.want, got, "delta %s", tc.in)
	}
}

func TestResolveFormStatus_RepeatedFirstOpenWins(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	a := openInstance(1, -time.Hour, time.Hour)
	b := openInstance(2, 24*time.Hour, 48*time.Hour)
	occ := map[uint64]Occupancy{
		1: {Registrations: 2, Capacity: 5},
		2: {Registrations: 0, Capacity: 5},
	}

	r := ResolveFormStatus(f, []model.Instance{a, b}, occ, now)
	assert.Equal(t, StatusAccepting, r.Tag)
	require.NotNil(t, r.NextInstanceID)
	assert.Equal(t, uint64(1), *r.NextInstanceID)
	// Totals only cover currently open instances.
	assert.Equal(t, uint32(2), r.Registrations)
	assert.Equal(t, uint32(5), r.Capacity)
}

func TestResolveFormStatus_RepeatedSkipsFullOpenInstance(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	full := openInstance(1, -time.Hour, time.Hour)
	free := openInstance(2, -time.Hour, 2*time.Hour)
	occ := map[uint64]Occupancy{
		1: {Registrations: 5, Capacity: 5},
		2: {Registrations: 1, Capacity: 5},
	}

	r := ResolveFormStatus(f, []model.Instance{full, free}, occ, now)
	assert.Equal(t, StatusAccepting, r.Tag)
	require.NotNil(t, r.NextInstanceID)
	assert.Equal(t, uint64(2), *r.NextInstanceID)
	// Totals still include the full sibling.
	assert.Equal(t, uint32(6), r.Registrations)
	assert.Equal(t, uint32(10), r.Capacity)
}

func TestResolveFormStatus_RepeatedAllOpenFull(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	a := openInstance(1, -time.Hour, time.Hour)
	occ := map[uint64]Occupancy{1: {Registrations: 5, Capacity: 5}}

	r := ResolveFormStatus(f, []model.Instance{a}, occ, now)
	assert.Equal(t, StatusFull, r.Tag)
}

func TestResolveFormStatus_RepeatedFullOpenYieldsToScheduled(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	full := openInstance(1, -time.Hour, time.Hour)
	future := openInstance(2, 72*time.Hour, 96*time.Hour)
	occ := map[uint64]Occupancy{1: {Registrations: 5, Capacity: 5}}

	r := ResolveFormStatus(f, []model.Instance{full, future}, occ, now)
	assert.Equal(t, StatusScheduled, r.Tag)
	assert.Equal(t, "Opens in 3 days", r.Label)
	require.NotNil(t, r.NextInstanceID)
	assert.Equal(t, uint64(2), *r.NextInstanceID)
}

func TestResolveFormStatus_RepeatedFullOpenYieldsToPending(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	full := openInstance(1, -time.Hour, time.Hour)
	pending := model.Instance{ID: 2, FormID: 1, Status: model.InstanceInitializing}
	occ := map[uint64]Occupancy{1: {Registrations: 5, Capacity: 5}}

	r := ResolveFormStatus(f, []model.Instance{full, pending}, occ, now)
	assert.Equal(t, StatusInitializing, r.Tag)
	assert.Equal(t, "Setting up", r.Label)
}

func TestResolveFormStatus_RepeatedFallsBackToScheduled(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	future := openInstance(1, 3*24*time.Hour, 4*24*time.Hour)

	r := ResolveFormStatus(f, []model.Instance{future}, map[uint64]Occupancy{}, now)
	assert.Equal(t, StatusScheduled, r.Tag)
	assert.Equal(t, "Opens in 3 days", r.Label)
}

func TestResolveFormStatus_RepeatedIgnoresCanceledAndPastClose(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	canceled := model.Instance{ID: 1, Status: model.InstanceCanceled}
	past := openInstance(2, -48*time.Hour, -24*time.Hour)

	r := ResolveFormStatus(f, []model.Instance{canceled, past}, map[uint64]Occupancy{}, now)
	assert.Equal(t, StatusNoEvents, r.Tag)
	assert.Equal(t, "No upcoming events", r.Label)
}

func TestResolveFormStatus_RepeatedPendingInstance(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	pending := model.Instance{ID: 1, Status: model.InstanceInitializing}

	r := ResolveFormStatus(f, []model.Instance{pending}, map[uint64]Occupancy{}, now)
	assert.Equal(t, StatusInitializing, r.Tag)
	assert.Equal(t, "Setting up", r.Label)
}

func TestResolveFormStatus_SharedPoolUsesFormWindow(t *testing.T) {
	f := activeForm(model.ScopeSharedPool)
	opens := now.Add(-time.Hour)
	f.OpensAt = &opens
	inst := model.Instance{ID: 1, Status: model.InstanceOpen}
	occ := map[uint64]Occupancy{1: {Registrations: 1, Capacity: 4}}

	r := ResolveFormStatus(f, []model.Instance{inst}, occ, now)
	assert.Equal(t, StatusAccepting, r.Tag)
	assert.Equal(t, uint32(3), r.SpotsRemaining)
}

func TestResolveFormStatus_SingleEventWithoutInstance(t *testing.T) {
	f := activeForm(model.ScopeSingleEvent)

	r := ResolveFormStatus(f, nil, map[uint64]Occupancy{}, now)
	assert.Equal(t, StatusInitializing, r.Tag)
}

func TestResolveFormStatus_InactiveFormIsPaused(t *testing.T) {
	f := activeForm(model.ScopeRepeated)
	f.IsActive = false

	r := ResolveFormStatus(f, []model.Instance{openInstance(1, -time.Hour, time.Hour)}, map[uint64]Occupancy{}, now)
	assert.Equal(t, StatusPaused, r.Tag)
}
