package repository

import (
	"context"
	"database/sql"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// FormRepo provides data access to the forms table. Forms carry the
// full slot-generation and scheduling configuration, so the column list
// is long; scanForm centralizes the mapping.
type FormRepo struct {
	db *sql.DB
}

// NewFormRepo returns a FormRepo bound to the given database.
func NewFormRepo(db *sql.DB) *FormRepo { return &FormRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning several repositories.
func (r *FormRepo) DB() *sql.DB { return r.db }

const formColumns = `id, production_id, name, scope, is_active, event_id,
	generation_mode, slot_count, slot_capacity, slot_names, slot_start_time, slot_interval_min,
	schedule_mode, opens_days_before, opens_hours_before, opens_mins_before,
	closes_mode, close_offset_value, close_offset_unit, edit_cutoff_hours,
	event_matching, event_type_filter, manual_event_ids,
	opens_at, closes_at, archived_at, created_at, updated_at`

func scanForm(row interface{ Scan(...any) error }) (model.Form, error) {
	var (
		f           model.Form
		eventID     sql.NullInt64
		names       sql.NullString
		startTime   sql.NullString
		offsetVal   sql.NullInt32
		offsetUnit  sql.NullString
		cutoffHours sql.NullInt32
		typeFilter  sql.NullString
		manualIDs   sql.NullString
		opensAt     sql.NullTime
		closesAt    sql.NullTime
		archivedAt  sql.NullTime
	)
	err := row.Scan(&f.ID, &f.ProductionID, &f.Name, &f.Scope, &f.IsActive, &eventID,
		&f.GenerationMode, &f.SlotCount, &f.SlotCapacity, &names, &startTime, &f.SlotIntervalMin,
		&f.ScheduleMode, &f.OpensDaysBefore, &f.OpensHoursBefore, &f.OpensMinsBefore,
		&f.ClosesMode, &offsetVal, &offsetUnit, &cutoffHours,
		&f.EventMatching, &typeFilter, &manualIDs,
		&opensAt, &closesAt, &archivedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return f, err
	}
	if eventID.Valid {
		id := uint64(eventID.Int64)
		f.EventID = &id
	}
	f.SlotNames = names.String
	f.SlotStartTime = startTime.String
	if offsetVal.Valid {
		v := offsetVal.Int32
		f.CloseOffsetValue = &v
	}
	f.CloseOffsetUnit = model.CloseOffsetUnit(offsetUnit.String)
	if cutoffHours.Valid {
		h := uint32(cutoffHours.Int32)
		f.EditCutoffHours = &h
	}
	f.EventTypeFilter = typeFilter.String
	f.ManualEventIDs = manualIDs.String
	if opensAt.Valid {
		t := opensAt.Time
		f.OpensAt = &t
	}
	if closesAt.Valid {
		t := closesAt.Time
		f.ClosesAt = &t
	}
	if archivedAt.Valid {
		t := archivedAt.Time
		f.ArchivedAt = &t
	}
	return f, nil
}

// Create inserts a form and populates the generated ID and timestamps.
func (r *FormRepo) Create(ctx context.Context, f *model.Form) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO forms (production_id, name, scope, is_active, event_id,
			generation_mode, slot_count, slot_capacity, slot_names, slot_start_time, slot_interval_min,
			schedule_mode, opens_days_before, opens_hours_before, opens_mins_before,
			closes_mode, close_offset_value, close_offset_unit, edit_cutoff_hours,
			event_matching, event_type_filter, manual_event_ids, opens_at, closes_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ProductionID, f.Name, f.Scope, f.IsActive, nullableID(f.EventID),
		f.GenerationMode, f.SlotCount, f.SlotCapacity, f.SlotNames, f.SlotStartTime, f.SlotIntervalMin,
		f.ScheduleMode, f.OpensDaysBefore, f.OpensHoursBefore, f.OpensMinsBefore,
		f.ClosesMode, nullableInt32(f.CloseOffsetValue), nullableString(string(f.CloseOffsetUnit)), nullableUint32(f.EditCutoffHours),
		f.EventMatching, f.EventTypeFilter, f.ManualEventIDs, nullableTime(f.OpensAt), nullableTime(f.ClosesAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM forms WHERE id = ?`, f.ID).
		Scan(&f.CreatedAt, &f.UpdatedAt)
}

// GetByID loads one form, archived or not. Returns ErrNotFound when no
// row exists.
func (r *FormRepo) GetByID(ctx context.Context, id uint64) (*model.Form, error) {
	f, err := scanForm(r.db.QueryRowContext(ctx,
		`SELECT `+formColumns+` FROM forms WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByProduction returns the production's non-archived forms.
func (r *FormRepo) ListByProduction(ctx context.Context, productionID uint64) ([]model.Form, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+formColumns+` FROM forms
		 WHERE production_id = ? AND archived_at IS NULL ORDER BY created_at DESC`, productionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update rewrites every configuration column of a form. Callers are
// expected to serialize settings edits per form; concurrent updates are
// last-writer-wins.
func (r *FormRepo) Update(ctx context.Context, f *model.Form) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE forms SET name = ?, scope = ?, is_active = ?, event_id = ?,
			generation_mode = ?, slot_count = ?, slot_capacity = ?, slot_names = ?,
			slot_start_time = ?, slot_interval_min = ?,
			schedule_mode = ?, opens_days_before = ?, opens_hours_before = ?, opens_mins_before = ?,
			closes_mode = ?, close_offset_value = ?, close_offset_unit = ?, edit_cutoff_hours = ?,
			event_matching = ?, event_type_filter = ?, manual_event_ids = ?, opens_at = ?, closes_at = ?
		 WHERE id = ? AND archived_at IS NULL`,
		f.Name, f.Scope, f.IsActive, nullableID(f.EventID),
		f.GenerationMode, f.SlotCount, f.SlotCapacity, f.SlotNames,
		f.SlotStartTime, f.SlotIntervalMin,
		f.ScheduleMode, f.OpensDaysBefore, f.OpensHoursBefore, f.OpensMinsBefore,
		f.ClosesMode, nullableInt32(f.CloseOffsetValue), nullableString(string(f.CloseOffsetUnit)), nullableUint32(f.EditCutoffHours),
		f.EventMatching, f.EventTypeFilter, f.ManualEventIDs, nullableTime(f.OpensAt), nullableTime(f.ClosesAt),
		f.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Archive soft-deletes a form. Instances and registrations stay in
// place for history.
func (r *FormRepo) Archive(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE forms SET archived_at = UTC_TIMESTAMP() WHERE id = ? AND archived_at IS NULL`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
