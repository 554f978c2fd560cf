package repository

import (
	"context"
	"database/sql"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// ProductionRepo provides data access to the productions table.
type ProductionRepo struct {
	db *sql.DB
}

// NewProductionRepo returns a ProductionRepo bound to the given database.
func NewProductionRepo(db *sql.DB) *ProductionRepo { return &ProductionRepo{db: db} }

// Create inserts a production and populates the generated ID and
// timestamps on the passed struct.
func (r *ProductionRepo) Create(ctx context.Context, p *model.Production) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO productions (owner_id, name) VALUES (?, ?)`, p.OwnerID, p.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM productions WHERE id = ?`, p.ID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetByID loads one production. Returns ErrNotFound when no row exists.
func (r *ProductionRepo) GetByID(ctx context.Context, id uint64) (*model.Production, error) {
	var p model.Production
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM productions WHERE id = ?`, id).
		Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByOwner returns all productions owned by the given user, newest
// first.
func (r *ProductionRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Production, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at, updated_at
		 FROM productions WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Production
	for rows.Next() {
		var p model.Production
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
