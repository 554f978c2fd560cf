package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// InstanceRepo provides data access to the instances table. Mutations
// that participate in provisioning or reconciliation come as Tx
// variants taking an open *sql.Tx: the caller owns commit and rollback.
type InstanceRepo struct {
	db *sql.DB
}

// NewInstanceRepo returns an InstanceRepo bound to the given database.
func NewInstanceRepo(db *sql.DB) *InstanceRepo { return &InstanceRepo{db: db} }

const instanceColumns = `id, form_id, event_id, opens_at, closes_at, edit_cutoff_at, status, created_at, updated_at`

func scanInstance(row interface{ Scan(...any) error }) (model.Instance, error) {
	var (
		inst       model.Instance
		eventID    sql.NullInt64
		opensAt    sql.NullTime
		closesAt   sql.NullTime
		editCutoff sql.NullTime
	)
	err := row.Scan(&inst.ID, &inst.FormID, &eventID, &opensAt, &closesAt, &editCutoff,
		&inst.Status, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return inst, err
	}
	if eventID.Valid {
		id := uint64(eventID.Int64)
		inst.EventID = &id
	}
	if opensAt.Valid {
		t := opensAt.Time
		inst.OpensAt = &t
	}
	if closesAt.Valid {
		t := closesAt.Time
		inst.ClosesAt = &t
	}
	if editCutoff.Valid {
		t := editCutoff.Time
		inst.EditCutoffAt = &t
	}
	return inst, nil
}

// GetByID loads one instance. Returns ErrNotFound when no row exists.
func (r *InstanceRepo) GetByID(ctx context.Context, id uint64) (*model.Instance, error) {
	inst, err := scanInstance(r.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// ListByForm returns the form's instances ordered by their bound
// event's start time ascending, event-less instances last. The status
// resolver relies on this ordering when picking the representative
// instance of a repeated form.
func (r *InstanceRepo) ListByForm(ctx context.Context, formID uint64) ([]model.Instance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.form_id, i.event_id, i.opens_at, i.closes_at, i.edit_cutoff_at, i.status, i.created_at, i.updated_at
		 FROM instances i
		 LEFT JOIN events e ON e.id = i.event_id
		 WHERE i.form_id = ?
		 ORDER BY e.starts_at IS NULL, e.starts_at ASC, i.id ASC`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// GetByFormAndEventTx looks up the instance bound to a specific event
// (or the event-less pool instance when eventID is nil) inside an open
// transaction. Returns ErrNotFound when none exists; this is how the
// provisioner stays idempotent.
func (r *InstanceRepo) GetByFormAndEventTx(ctx context.Context, tx *sql.Tx, formID uint64, eventID *uint64) (*model.Instance, error) {
	var row *sql.Row
	if eventID == nil {
		row = tx.QueryRowContext(ctx,
			`SELECT `+instanceColumns+` FROM instances WHERE form_id = ? AND event_id IS NULL`, formID)
	} else {
		row = tx.QueryRowContext(ctx,
			`SELECT `+instanceColumns+` FROM instances WHERE form_id = ? AND event_id = ?`, formID, *eventID)
	}
	inst, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// CreateTx inserts an instance within the provided transaction and
// populates the generated ID. The (form_id, event_id) uniqueness
// constraint backs up the idempotence check done by the caller.
func (r *InstanceRepo) CreateTx(ctx context.Context, tx *sql.Tx, inst *model.Instance) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO instances (form_id, event_id, opens_at, closes_at, edit_cutoff_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inst.FormID, nullableID(inst.EventID),
		nullableTime(inst.OpensAt), nullableTime(inst.ClosesAt), nullableTime(inst.EditCutoffAt),
		inst.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inst.ID = uint64(id)
	return nil
}

// UpdateTimingTx rewrites an instance's computed window and sets its
// status within the provided transaction. Used when a settings change
// forces a recompute.
func (r *InstanceRepo) UpdateTimingTx(ctx context.Context, tx *sql.Tx, id uint64, opensAt, closesAt, editCutoffAt *time.Time, status model.InstanceStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE instances SET opens_at = ?, closes_at = ?, edit_cutoff_at = ?, status = ? WHERE id = ?`,
		nullableTime(opensAt), nullableTime(closesAt), nullableTime(editCutoffAt), status, id)
	return err
}

// UpdateStatus sets the raw status of one instance.
func (r *InstanceRepo) UpdateStatus(ctx context.Context, id uint64, status model.InstanceStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE instances SET status = ? WHERE id = ?`, status, id)
	return err
}

// MarkStatusTx sets the raw status of one instance inside an open
// transaction.
func (r *InstanceRepo) MarkStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.InstanceStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE instances SET status = ? WHERE id = ?`, status, id)
	return err
}

// DeleteTx removes an instance row within the provided transaction.
// Slots must be removed first (see SlotRepo.DeleteByInstanceTx); the
// schema does not cascade so removals stay explicit and auditable.
func (r *InstanceRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	return err
}

// TouchUpdatedAt bumps updated_at, used by the sweep to record a pass
// even when nothing changed.
func (r *InstanceRepo) TouchUpdatedAt(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE instances SET updated_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}
