package repository

import (
	"context"
	"database/sql"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// HoldoutRepo provides data access to the holdouts table. A form has
// at most one holdout, enforced by a unique key on form_id.
type HoldoutRepo struct {
	db *sql.DB
}

// NewHoldoutRepo returns a HoldoutRepo bound to the given database.
func NewHoldoutRepo(db *sql.DB) *HoldoutRepo { return &HoldoutRepo{db: db} }

// GetByForm returns the form's holdout, or (nil, nil) when the form
// has none. Absence of a holdout is an ordinary state, not an error.
func (r *HoldoutRepo) GetByForm(ctx context.Context, formID uint64) (*model.Holdout, error) {
	var h model.Holdout
	err := r.db.QueryRowContext(ctx,
		`SELECT id, form_id, interval_n, reason, created_at FROM holdouts WHERE form_id = ?`, formID).
		Scan(&h.ID, &h.FormID, &h.IntervalN, &h.Reason, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Upsert creates or replaces the form's holdout.
func (r *HoldoutRepo) Upsert(ctx context.Context, h *model.Holdout) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO holdouts (form_id, interval_n, reason) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE interval_n = VALUES(interval_n), reason = VALUES(reason)`,
		h.FormID, h.IntervalN, h.Reason)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		h.ID = uint64(id)
	}
	return nil
}

// Delete removes the form's holdout if one exists.
func (r *HoldoutRepo) Delete(ctx context.Context, formID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM holdouts WHERE form_id = ?`, formID)
	return err
}
