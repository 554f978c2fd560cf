package signup

import (
	"fmt"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

const (
	// defaultEventDuration stands in for the event's end time, which is
	// not separately modeled: event_end closing means "event start plus
	// this duration".
	defaultEventDuration = 2 * time.Hour

	// customCloseAdjustment is subtracted on top of a custom closing
	// offset so the window shuts slightly before the offset target.
	customCloseAdjustment = 30 * time.Minute
)

// Timing is the computed registration window of an instance. All three
// fields are optional with explicit semantics: a nil OpensAt means the
// window opens immediately, a nil ClosesAt means it never closes on its
// own, and a nil EditCutoffAt means edits are allowed until closing.
type Timing struct {
	OpensAt      *time.Time
	ClosesAt     *time.Time
	EditCutoffAt *time.Time
}

// ComputeTiming derives the registration window for an instance of the
// given form. eventStart is the bound event's start time, nil for
// shared-pool instances. Fixed-schedule forms and instances without an
// event take the form's own opens/closes columns verbatim; relative
// scheduling computes offsets from the event start:
//
//   opens_at  = event − days − hours − minutes (nil when all offsets are 0)
//   closes_at = event                    for event_start
//               event + 2h               for event_end
//               event − offset − 30m     for custom (nil when no offset
//                                        is configured; a negative
//                                        offset closes after the event)
//
// The custom offset unit must be hours or days; anything else is a
// configuration error.
func ComputeTiming(f model.Form, eventStart *time.Time) (Timing, error) {
	if f.ScheduleMode == model.ScheduleFixed || eventStart == nil {
		return fixedTiming(f), nil
	}

	var t Timing
	event := eventStart.UTC()

	offset := time.Duration(f.OpensDaysBefore)*24*time.Hour +
		time.Duration(f.OpensHoursBefore)*time.Hour +
		time.Duration(f.OpensMinsBefore)*time.Minute
	if offset > 0 {
		opens := event.Add(-offset)
		t.OpensAt = &opens
	}

	switch f.ClosesMode {
	case model.CloseAtEventStart:
		closes := event
		t.ClosesAt = &closes
	case model.CloseAtEventEnd:
		closes := event.Add(defaultEventDuration)
		t.ClosesAt = &closes
	case model.CloseCustom:
		if f.CloseOffsetValue != nil {
			unit, err := model.ParseCloseOffsetUnit(string(f.CloseOffsetUnit))
			if err != nil {
				return Timing{}, fmt.Errorf("%w: %v", ErrBadConfig, err)
			}
			per := time.Hour
			if unit == model.OffsetDays {
				per = 24 * time.Hour
			}
			closes := event.Add(-time.Duration(*f.CloseOffsetValue) * per).Add(-customCloseAdjustment)
			t.ClosesAt = &closes
		}
	default:
		return Timing{}, fmt.Errorf("%w: unknown closes mode %q", ErrBadConfig, f.ClosesMode)
	}

	t.EditCutoffAt = editCutoff(t.ClosesAt, f.EditCutoffHours)
	return t, nil
}

func fixedTiming(f model.Form) Timing {
	t := Timing{}
	if f.OpensAt != nil {
		opens := f.OpensAt.UTC()
		t.OpensAt = &opens
	}
	if f.ClosesAt != nil {
		closes := f.ClosesAt.UTC()
		t.ClosesAt = &closes
	}
	t.EditCutoffAt = editCutoff(t.ClosesAt, f.EditCutoffHours)
	return t
}

func editCutoff(closesAt *time.Time, hours *uint32) *time.Time {
	if closesAt == nil || hours == nil {
		return nil
	}
	cutoff := closesAt.Add(-time.Duration(*hours) * time.Hour)
	return &cutoff
}
