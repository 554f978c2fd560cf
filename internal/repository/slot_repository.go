package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// SlotRepo provides data access to the slots table. Slots are only
// ever created, updated and removed inside the transactions driven by
// the provisioner and the resize reconciler, so most mutation methods
// are Tx variants.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, instance_id, position, name, capacity, is_held, held_reason, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (model.Slot, error) {
	var (
		s          model.Slot
		name       sql.NullString
		heldReason sql.NullString
	)
	err := row.Scan(&s.ID, &s.InstanceID, &s.Position, &name, &s.Capacity, &s.IsHeld, &heldReason,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if name.Valid {
		n := name.String
		s.Name = &n
	}
	if heldReason.Valid {
		hr := heldReason.String
		s.HeldReason = &hr
	}
	return s, nil
}

// GetByID loads one slot. Returns ErrNotFound when no row exists.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByIDForUpdateTx loads one slot with a row lock so a concurrent
// claim serializes on the same row until the transaction ends.
func (r *SlotRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Slot, error) {
	s, err := scanSlot(tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByInstance returns an instance's slots ordered by position.
func (r *SlotRepo) ListByInstance(ctx context.Context, instanceID uint64) ([]model.Slot, error) {
	return r.listByInstance(ctx, r.db.QueryContext, instanceID)
}

// ListByInstanceTx is ListByInstance inside an open transaction.
func (r *SlotRepo) ListByInstanceTx(ctx context.Context, tx *sql.Tx, instanceID uint64) ([]model.Slot, error) {
	return r.listByInstance(ctx, tx.QueryContext, instanceID)
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r *SlotRepo) listByInstance(ctx context.Context, query queryFunc, instanceID uint64) ([]model.Slot, error) {
	rows, err := query(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE instance_id = ? ORDER BY position ASC`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateBulkTx inserts multiple slots in one statement within the
// provided transaction. Timestamps default in the database; the ID
// fields of the passed structs are not populated.
func (r *SlotRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, slots []model.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO slots (instance_id, position, name, capacity, is_held, held_reason) VALUES `
	args := make([]interface{}, 0, len(slots)*6)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, s.InstanceID, s.Position, nullableStringPtr(s.Name), s.Capacity, s.IsHeld, nullableStringPtr(s.HeldReason))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdateTx rewrites the mutable columns of one slot within the
// provided transaction. Position never changes; a slot that must move
// is a removal plus a creation.
func (r *SlotRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s model.Slot) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE slots SET name = ?, capacity = ?, is_held = ?, held_reason = ? WHERE id = ?`,
		nullableStringPtr(s.Name), s.Capacity, s.IsHeld, nullableStringPtr(s.HeldReason), s.ID)
	return err
}

// DeleteByIDsTx removes the named slots within the provided transaction.
func (r *SlotRepo) DeleteByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id IN (`+placeholders+`)`, args...)
	return err
}

// DeleteByInstanceTx removes every slot of an instance within the
// provided transaction. Called before the instance row itself goes.
func (r *SlotRepo) DeleteByInstanceTx(ctx context.Context, tx *sql.Tx, instanceID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE instance_id = ?`, instanceID)
	return err
}

// CapacityByInstances sums the capacity of non-held slots per instance
// in one query. Instances with no slots are absent from the map.
func (r *SlotRepo) CapacityByInstances(ctx context.Context, instanceIDs []uint64) (map[uint64]uint32, error) {
	out := make(map[uint64]uint32, len(instanceIDs))
	if len(instanceIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(instanceIDs)), ",")
	args := make([]interface{}, len(instanceIDs))
	for i, id := range instanceIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT instance_id, SUM(capacity) FROM slots
		 WHERE instance_id IN (`+placeholders+`) AND is_held = 0
		 GROUP BY instance_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var capacity uint32
		if err := rows.Scan(&id, &capacity); err != nil {
			return nil, err
		}
		out[id] = capacity
	}
	return out, rows.Err()
}
