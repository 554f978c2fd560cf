package signup

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
)

func numberedForm() model.Form {
	return model.Form{
		ID:             1,
		Scope:          model.ScopeRepeated,
		IsActive:       true,
		GenerationMode: model.GenNumbered,
		SlotCount:      2,
		SlotCapacity:   1,
		ScheduleMode:   model.ScheduleRelative,
		ClosesMode:     model.CloseAtEventStart,
		EventMatching:  model.MatchAll,
	}
}

func testProvisioner(t *testing.T) (*Provisioner, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	prov := NewProvisioner(db,
		repository.NewEventRepo(db),
		repository.NewInstanceRepo(db),
		repository.NewSlotRepo(db),
		repository.NewRegistrationRepo(db),
		repository.NewHoldoutRepo(db))
	return prov, db, mock
}

const instanceSelectByFormAndEvent = `SELECT id, form_id, event_id, opens_at, closes_at, edit_cutoff_at, status, created_at, updated_at FROM instances WHERE form_id = ? AND event_id = ?`

func instanceRow(id, formID, eventID uint64, status model.InstanceStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "form_id", "event_id", "opens_at", "closes_at", "edit_cutoff_at", "status", "created_at", "updated_at",
	}).AddRow(id, formID, eventID, nil, nil, nil, string(status), now, now)
}

func TestProvisionTx_LiveInstanceIsIdempotent(t *testing.T) {
	prov, db, mock := testProvisioner(t)
	f := numberedForm()
	ev := model.Event{ID: 9, StartsAt: now.Add(72 * time.Hour), Status: model.EventScheduled}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(instanceSelectByFormAndEvent)).
		WithArgs(f.ID, ev.ID).
		WillReturnRows(instanceRow(42, f.ID, ev.ID, model.InstanceOpen))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	inst, created, err := prov.ProvisionTx(ctx, tx, f, &ev)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.False(t, created)
	assert.Equal(t, uint64(42), inst.ID)
	assert.Equal(t, model.InstanceOpen, inst.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionTx_RevivesCanceledInstance(t *testing.T) {
	// A keep-policy removal leaves the instance CANCELED. When its
	// event matches again the provisioner must bring the row back to
	// life instead of no-opping, otherwise the event diff never empties.
	prov, db, mock := testProvisioner(t)
	f := numberedForm()
	ev := model.Event{ID: 9, StartsAt: now.Add(72 * time.Hour), Status: model.EventScheduled}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(instanceSelectByFormAndEvent)).
		WithArgs(f.ID, ev.ID).
		WillReturnRows(instanceRow(42, f.ID, ev.ID, model.InstanceCanceled))
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE instances SET opens_at = ?, closes_at = ?, edit_cutoff_at = ?, status = ? WHERE id = ?`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), string(model.InstanceInitializing), 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, form_id, interval_n, reason, created_at FROM holdouts WHERE form_id = ?`)).
		WithArgs(f.ID).
		WillReturnError(sql.ErrNoRows)
	// Slots from the keep-policy removal survived and already match the
	// template, so the resync plans no changes.
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, instance_id, position, name, capacity, is_held, held_reason, created_at, updated_at FROM slots WHERE instance_id = ? ORDER BY position ASC`)).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "instance_id", "position", "name", "capacity", "is_held", "held_reason", "created_at", "updated_at",
		}).
			AddRow(501, 42, 1, "Slot 1", 1, false, nil, now, now).
			AddRow(502, 42, 2, "Slot 2", 1, false, nil, now, now))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	inst, created, err := prov.ProvisionTx(ctx, tx, f, &ev)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.True(t, created, "a revival counts as a provision")
	assert.Equal(t, uint64(42), inst.ID)
	assert.Equal(t, model.InstanceInitializing, inst.Status)
	require.NotNil(t, inst.ClosesAt)
	assert.True(t, inst.ClosesAt.Equal(ev.StartsAt), "window recomputed from the event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteStatuses_TouchesStuckInstance(t *testing.T) {
	// An INITIALIZING instance with no slots yet cannot promote. The
	// sweep still bumps updated_at so the row shows when it was last
	// examined.
	prov, _, mock := testProvisioner(t)
	f := numberedForm()

	mock.ExpectQuery(`FROM instances i`).
		WithArgs(f.ID).
		WillReturnRows(instanceRow(7, f.ID, 9, model.InstanceInitializing))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, instance_id, position, name, capacity, is_held, held_reason, created_at, updated_at FROM slots WHERE instance_id = ? ORDER BY position ASC`)).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "instance_id", "position", "name", "capacity", "is_held", "held_reason", "created_at", "updated_at",
		}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE instances SET updated_at = ? WHERE id = ?`)).
		WithArgs(sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := prov.PromoteStatuses(context.Background(), f, now)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
