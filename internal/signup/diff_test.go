package signup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

func upcomingEvent(id uint64, evType string, startsIn time.Duration) model.Event {
	return model.Event{
		ID:        id,
		EventType: evType,
		StartsAt:  now.Add(startsIn),
		Status:    model.EventScheduled,
	}
}

func TestMatchEvents_All(t *testing.T) {
	f := model.Form{EventMatching: model.MatchAll}
	events := []model.Event{
		upcomingEvent(1, "performance", 24*time.Hour),
		upcomingEvent(2, "audition", 48*time.Hour),
	}

	got := MatchEvents(f, events, now)
	assert.Len(t, got, 2)
}

func TestMatchEvents_SkipsPastAndCanceled(t *testing.T) {
	f := model.Form{EventMatching: model.MatchAll}
	past := upcomingEvent(1, "performance", -time.Hour)
	canceled := upcomingEvent(2, "performance", 24*time.Hour)
	canceled.Status = model.EventCanceled
	ok := upcomingEvent(3, "performance", 24*time.Hour)

	got := MatchEvents(f, []model.Event{past, canceled, ok}, now)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].ID)
}

func TestMatchEvents_ByType(t *testing.T) {
	f := model.Form{EventMatching: model.MatchEventTypes, EventTypeFilter: "audition, rehearsal"}
	events := []model.Event{
		upcomingEvent(1, "performance", 24*time.Hour),
		upcomingEvent(2, "audition", 48*time.Hour),
		upcomingEvent(3, "rehearsal", 72*time.Hour),
	}

	got := MatchEvents(f, events, now)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].ID)
	assert.Equal(t, uint64(3), got[1].ID)
}

func TestMatchEvents_Manual(t *testing.T) {
	f := model.Form{EventMatching: model.MatchManual, ManualEventIDs: "1,3"}
	events := []model.Event{
		upcomingEvent(1, "performance", 24*time.Hour),
		upcomingEvent(2, "performance", 48*time.Hour),
		upcomingEvent(3, "performance", 72*time.Hour),
	}

	got := MatchEvents(f, events, now)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].ID)
	assert.Equal(t, uint64(3), got[1].ID)
}

func instanceFor(id, eventID uint64) model.Instance {
	ev := eventID
	return model.Instance{ID: id, FormID: 1, EventID: &ev, Status: model.InstanceOpen}
}

func TestDiffEvents_AddsUnbackedEvents(t *testing.T) {
	matching := []model.Event{upcomingEvent(1, "x", time.Hour), upcomingEvent(2, "x", 2*time.Hour)}
	provisioned := []model.Instance{instanceFor(10, 1)}

	d := DiffEvents(matching, provisioned)
	require.Len(t, d.ToAdd, 1)
	assert.Equal(t, uint64(2), d.ToAdd[0].ID)
	assert.Empty(t, d.ToRemove)
	assert.True(t, d.HasChanges())
}

func TestDiffEvents_RemovesUnmatchedInstances(t *testing.T) {
	matching := []model.Event{upcomingEvent(1, "x", time.Hour)}
	provisioned := []model.Instance{instanceFor(10, 1), instanceFor(11, 2)}

	d := DiffEvents(matching, provisioned)
	assert.Empty(t, d.ToAdd)
	require.Len(t, d.ToRemove, 1)
	assert.Equal(t, uint64(11), d.ToRemove[0].ID)
}

func TestDiffEvents_IgnoresPoolAndCanceledInstances(t *testing.T) {
	pool := model.Instance{ID: 10, Status: model.InstanceOpen} // no event
	canceled := instanceFor(11, 2)
	canceled.Status = model.InstanceCanceled

	d := DiffEvents(nil, []model.Instance{pool, canceled})
	assert.False(t, d.HasChanges())
}

func TestDiffEvents_CanceledInstanceDoesNotBackItsEvent(t *testing.T) {
	// A canceled instance for event 2 must not stop 2 from re-adding.
	canceled := instanceFor(11, 2)
	canceled.Status = model.InstanceCanceled
	matching := []model.Event{upcomingEvent(2, "x", time.Hour)}

	d := DiffEvents(matching, []model.Instance{canceled})
	require.Len(t, d.ToAdd, 1)
	assert.Equal(t, uint64(2), d.ToAdd[0].ID)
}

func TestDiffEvents_InSync(t *testing.T) {
	matching := []model.Event{upcomingEvent(1, "x", time.Hour)}
	provisioned := []model.Instance{instanceFor(10, 1)}

	d := DiffEvents(matching, provisioned)
	assert.False(t, d.HasChanges())
}
