package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// RegistrationRepo provides data access to the registrations table.
// The signup engine treats registrations as an external collaborator:
// it counts them and cancels or moves them inside reconciliation
// transactions, and the claim handler owns the authoritative create.
// Cancel and move operations are written to be idempotent so a retried
// reconciliation transaction stays safe.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the given
// database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, slot_id, user_id, guest_name, status, queue_position, cancel_reason, created_at, updated_at`

func scanRegistration(row interface{ Scan(...any) error }) (model.Registration, error) {
	var (
		reg          model.Registration
		userID       sql.NullInt64
		guestName    sql.NullString
		cancelReason sql.NullString
	)
	err := row.Scan(&reg.ID, &reg.SlotID, &userID, &guestName, &reg.Status, &reg.QueuePosition,
		&cancelReason, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return reg, err
	}
	if userID.Valid {
		id := uint64(userID.Int64)
		reg.UserID = &id
	}
	if guestName.Valid {
		n := guestName.String
		reg.GuestName = &n
	}
	if cancelReason.Valid {
		cr := cancelReason.String
		reg.CancelReason = &cr
	}
	return reg, nil
}

// GetByID returns one registration by primary key.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	reg, err := scanRegistration(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// CreateTx inserts a registration within the provided transaction and
// populates the generated ID. The caller decides CONFIRMED vs QUEUED
// after checking slot occupancy under a row lock.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (slot_id, user_id, guest_name, status, queue_position)
		 VALUES (?, ?, ?, ?, ?)`,
		reg.SlotID, nullableID(reg.UserID), nullableStringPtr(reg.GuestName), reg.Status, reg.QueuePosition)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	return nil
}

// ActiveCountBySlotTx counts CONFIRMED registrations on one slot inside
// an open transaction. Combined with GetByIDForUpdateTx on the slot row
// this is the capacity check of the claim path.
func (r *RegistrationRepo) ActiveCountBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE slot_id = ? AND status = 'CONFIRMED'`, slotID).Scan(&n)
	return n, err
}

// HasActiveForClaimantTx reports whether the claimant already holds an
// active registration on the slot, which makes a repeated claim a
// no-op instead of a duplicate.
func (r *RegistrationRepo) HasActiveForClaimantTx(ctx context.Context, tx *sql.Tx, slotID uint64, userID *uint64, guestName *string) (bool, error) {
	var n int
	var err error
	switch {
	case userID != nil:
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM registrations
			 WHERE slot_id = ? AND user_id = ? AND status IN ('CONFIRMED','QUEUED')`,
			slotID, *userID).Scan(&n)
	case guestName != nil:
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM registrations
			 WHERE slot_id = ? AND guest_name = ? AND status IN ('CONFIRMED','QUEUED')`,
			slotID, *guestName).Scan(&n)
	}
	return n > 0, err
}

// NextQueuePositionTx returns the next queue ordering key for a slot.
func (r *RegistrationRepo) NextQueuePositionTx(ctx context.Context, tx *sql.Tx, slotID uint64) (uint32, error) {
	var next uint32
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(queue_position), 0) + 1 FROM registrations
		 WHERE slot_id = ? AND status = 'QUEUED'`, slotID).Scan(&next)
	return next, err
}

// ActiveCountByInstances counts active registrations per instance in
// one query, joining through slots. Instances without registrations are
// absent from the map.
func (r *RegistrationRepo) ActiveCountByInstances(ctx context.Context, instanceIDs []uint64) (map[uint64]uint32, error) {
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
		`SELECT s.instance_id, COUNT(*) FROM registrations g
		 JOIN slots s ON s.id = g.slot_id
		 WHERE s.instance_id IN (`+placeholders+`) AND g.status IN ('CONFIRMED','QUEUED')
		 GROUP BY s.instance_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var n uint32
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// ActiveCountsBySlots counts CONFIRMED registrations per slot.
func (r *RegistrationRepo) ActiveCountsBySlots(ctx context.Context, slotIDs []uint64) (map[uint64]uint32, error) {
	out := make(map[uint64]uint32, len(slotIDs))
	if len(slotIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slotIDs)), ",")
	args := make([]interface{}, len(slotIDs))
	for i, id := range slotIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT slot_id, COUNT(*) FROM registrations
		 WHERE slot_id IN (`+placeholders+`) AND status = 'CONFIRMED'
		 GROUP BY slot_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var n uint32
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// ActiveCountsBySlotsTx is ActiveCountsBySlots inside an open
// transaction, used while planning reassignments so counts and moves
// see the same snapshot.
func (r *RegistrationRepo) ActiveCountsBySlotsTx(ctx context.Context, tx *sql.Tx, slotIDs []uint64) (map[uint64]uint32, error) {
	out := make(map[uint64]uint32, len(slotIDs))
	if len(slotIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slotIDs)), ",")
	args := make([]interface{}, len(slotIDs))
	for i, id := range slotIDs {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT slot_id, COUNT(*) FROM registrations
		 WHERE slot_id IN (`+placeholders+`) AND status = 'CONFIRMED'
		 GROUP BY slot_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var n uint32
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// ListActiveByInstance returns every active registration on any slot of
// the instance.
func (r *RegistrationRepo) ListActiveByInstance(ctx context.Context, instanceID uint64) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.slot_id, g.user_id, g.guest_name, g.status, g.queue_position, g.cancel_reason, g.created_at, g.updated_at
		 FROM registrations g
		 JOIN slots s ON s.id = g.slot_id
		 WHERE s.instance_id = ? AND g.status IN ('CONFIRMED','QUEUED')
		 ORDER BY s.position ASC, g.queue_position ASC, g.id ASC`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// ListActiveBySlotIDsTx returns active registrations on the named slots
// inside an open transaction, ordered by slot position then queue
// order. The resize planner depends on this ordering.
func (r *RegistrationRepo) ListActiveBySlotIDsTx(ctx context.Context, tx *sql.Tx, slotIDs []uint64) ([]model.Registration, error) {
	if len(slotIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slotIDs)), ",")
	args := make([]interface{}, len(slotIDs))
	for i, id := range slotIDs {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT g.id, g.slot_id, g.user_id, g.guest_name, g.status, g.queue_position, g.cancel_reason, g.created_at, g.updated_at
		 FROM registrations g
		 JOIN slots s ON s.id = g.slot_id
		 WHERE g.slot_id IN (`+placeholders+`) AND g.status IN ('CONFIRMED','QUEUED')
		 ORDER BY s.position ASC, g.queue_position ASC, g.id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func collectRegistrations(rows *sql.Rows) ([]model.Registration, error) {
	var out []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// CancelByIDsTx cancels the named registrations with a reason within
// the provided transaction. Already-cancelled rows are untouched, so a
// retry is harmless.
func (r *RegistrationRepo) CancelByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, reason)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE registrations SET status = 'CANCELLED', cancel_reason = ?
		 WHERE id IN (`+placeholders+`) AND status IN ('CONFIRMED','QUEUED')`, args...)
	return err
}

// MoveTx reassigns one registration to another slot as CONFIRMED
// within the provided transaction. Queue position resets; the
// registration left its old queue behind.
func (r *RegistrationRepo) MoveTx(ctx context.Context, tx *sql.Tx, regID, toSlotID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE registrations SET slot_id = ?, status = 'CONFIRMED', queue_position = 0 WHERE id = ?`,
		toSlotID, regID)
	return err
}

// CancelOwn cancels a claimant's own registration outside any engine
// transaction. Returns ErrNotFound when the registration is not theirs
// or already inactive.
func (r *RegistrationRepo) CancelOwn(ctx context.Context, regID, userID uint64, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET status = 'CANCELLED', cancel_reason = ?
		 WHERE id = ? AND user_id = ? AND status IN ('CONFIRMED','QUEUED')`, reason, regID, userID)
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
