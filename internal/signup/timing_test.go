package signup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

var eventStart = time.Date(2026, 6, 15, 19, 0, 0, 0, time.UTC)

func relativeForm() model.Form {
	return model.Form{
		ScheduleMode: model.ScheduleRelative,
		ClosesMode:   model.CloseAtEventStart,
	}
}

func TestComputeTiming_RelativeOpens(t *testing.T) {
	f := relativeForm()
	f.OpensDaysBefore = 7
	f.OpensHoursBefore = 2
	f.OpensMinsBefore = 30

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.OpensAt)
	assert.Equal(t, eventStart.Add(-7*24*time.Hour-2*time.Hour-30*time.Minute), *tm.OpensAt)
}

func TestComputeTiming_ZeroOffsetsOpenImmediately(t *testing.T) {
	tm, err := ComputeTiming(relativeForm(), &eventStart)
	require.NoError(t, err)
	assert.Nil(t, tm.OpensAt, "no offsets means open immediately")
}

func TestComputeTiming_ClosesAtEventStart(t *testing.T) {
	tm, err := ComputeTiming(relativeForm(), &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.ClosesAt)
	assert.Equal(t, eventStart, *tm.ClosesAt)
}

func TestComputeTiming_ClosesAtEventEnd(t *testing.T) {
	f := relativeForm()
	f.ClosesMode = model.CloseAtEventEnd

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.ClosesAt)
	assert.Equal(t, eventStart.Add(2*time.Hour), *tm.ClosesAt)
}

func TestComputeTiming_CustomCloseHours(t *testing.T) {
	f := relativeForm()
	f.ClosesMode = model.CloseCustom
	v := int32(3)
	f.CloseOffsetValue = &v
	f.CloseOffsetUnit = model.OffsetHours

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.ClosesAt)
	// 3 hours before the event, pulled in a further 30 minutes.
	assert.Equal(t, eventStart.Add(-3*time.Hour).Add(-30*time.Minute), *tm.ClosesAt)
}

func TestComputeTiming_CustomCloseDays(t *testing.T) {
	f := relativeForm()
	f.ClosesMode = model.CloseCustom
	v := int32(1)
	f.CloseOffsetValue = &v
	f.CloseOffsetUnit = model.OffsetDays

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.ClosesAt)
	assert.Equal(t, eventStart.Add(-24*time.Hour).Add(-30*time.Minute), *tm.ClosesAt)
}

func TestComputeTiming_CustomNegativeOffsetClosesAfterEvent(t *testing.T) {
	f := relativeForm()
	f.ClosesMode = model.CloseCustom
	v := int32(-2)
	f.CloseOffsetValue = &v
	f.CloseOffsetUnit = model.OffsetHours

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.ClosesAt)
	assert.Equal(t, eventStart.Add(2*time.Hour).Add(-30*time.Minute), *tm.ClosesAt)
}

func TestComputeTiming_CustomWithoutOffsetNeverCloses(t *testing.T) {
	f := relativeForm()
	f.ClosesMode = model.CloseCustom

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	assert.Nil(t, tm.ClosesAt)
	assert.Nil(t, tm.EditCutoffAt)
}

func TestComputeTiming_CustomBadUnitIsConfigError(t *testing.T) {
	f := relativeForm()
	f.ClosesMode = model.CloseCustom
	v := int32(90)
	f.CloseOffsetValue = &v
	f.CloseOffsetUnit = "minutes"

	_, err := ComputeTiming(f, &eventStart)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadConfig)
}

func TestComputeTiming_EditCutoff(t *testing.T) {
	f := relativeForm()
	hours := uint32(4)
	f.EditCutoffHours = &hours

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.EditCutoffAt)
	assert.Equal(t, eventStart.Add(-4*time.Hour), *tm.EditCutoffAt)
}

func TestComputeTiming_FixedModeUsesFormWindow(t *testing.T) {
	opens := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	closes := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	f := model.Form{ScheduleMode: model.ScheduleFixed, OpensAt: &opens, ClosesAt: &closes}

	tm, err := ComputeTiming(f, &eventStart)
	require.NoError(t, err)
	require.NotNil(t, tm.OpensAt)
	require.NotNil(t, tm.ClosesAt)
	assert.Equal(t, opens, *tm.OpensAt)
	assert.Equal(t, closes, *tm.ClosesAt)
}

func TestComputeTiming_NilEventFallsBackToFixed(t *testing.T) {
	opens := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f := relativeForm()
	f.OpensAt = &opens

	tm, err := ComputeTiming(f, nil)
	require.NoError(t, err)
	require.NotNil(t, tm.OpensAt)
	assert.Equal(t, opens, *tm.OpensAt)
	assert.Nil(t, tm.ClosesAt)
}
