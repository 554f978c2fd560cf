package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// EventRepo provides read access to the events table. Events are owned
// by the scheduling side of the system; the signup engine only reads
// them to pick provisioning targets and compute timing, so this repo
// intentionally has no mutation methods.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, production_id, name, event_type, starts_at, status, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.ProductionID, &e.Name, &e.EventType, &e.StartsAt, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// GetByID loads one event. Returns ErrNotFound when no row exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListUpcoming returns the production's non-canceled events starting
// after the given time, ordered by start time ascending. This is the
// candidate set the matching rules narrow further.
func (r *EventRepo) ListUpcoming(ctx context.Context, productionID uint64, now time.Time) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE production_id = ? AND status <> 'CANCELED' AND starts_at > ?
		 ORDER BY starts_at ASC`, productionID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListByIDs loads the named events in one query. Missing IDs are simply
// absent from the result; the caller decides whether that matters.
func (r *EventRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id IN (`+placeholders+`) ORDER BY starts_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
