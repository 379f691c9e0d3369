// This file defines repository methods for establishments: the venues
// that own virtual queues. Only minimal fields (ID and Name) should be
// exposed in public API responses.
package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/quepass/quepass/internal/model"
)

// ErrEstablishmentNotFound is returned when an establishment cannot be
// found in the DB.
var ErrEstablishmentNotFound = errors.New("establishment not found")

// EstablishmentRepo encapsulates all database queries related to
// establishments.
type EstablishmentRepo struct {
    db *sql.DB
}

// NewEstablishmentRepo constructs an EstablishmentRepo with the provided
// DB handle.
func NewEstablishmentRepo(db *sql.DB) *EstablishmentRepo {
    return &EstablishmentRepo{db: db}
}

// Create inserts a new establishment. On success the ID field is
// populated with the auto-generated value and the timestamp fields are
// read back so callers receive a fully populated record.
func (r *EstablishmentRepo) Create(ctx context.Context, e *model.Establishment) error {
    const qInsert = `INSERT INTO establishments (owner_id, name) VALUES (?, ?)`
    res, err := r.db.ExecContext(ctx, qInsert, e.OwnerID, e.Name)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)

    const qSelect = `SELECT owner_id, name, created_at, updated_at FROM establishments WHERE id = ?`
    return r.db.QueryRowContext(ctx, qSelect, e.ID).Scan(&e.OwnerID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID fetches an establishment by id regardless of owner.
func (r *EstablishmentRepo) GetByID(ctx context.Context, id uint64) (*model.Establishment, error) {
    const q = `SELECT id, owner_id, name, created_at, updated_at FROM establishments WHERE id = ?`
    var e model.Establishment
    if err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.OwnerID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEstablishmentNotFound
        }
        return nil, err
    }
    return &e, nil
}

// GetByIDAndOwner fetches an establishment by id but only if it belongs
// to the specified owner. ErrEstablishmentNotFound otherwise.
func (r *EstablishmentRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Establishment, error) {
    const q = `SELECT id, owner_id, name, created_at, updated_at FROM establishments WHERE id = ? AND owner_id = ?`
    var e model.Establishment
    if err := r.db.QueryRowContext(ctx, q, id, ownerID).Scan(&e.ID, &e.OwnerID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEstablishmentNotFound
        }
        return nil, err
    }
    return &e, nil
}

// ListByOwner returns all establishments for a specific owner ordered by id.
func (r *EstablishmentRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Establishment, error) {
    const q = `SELECT id, owner_id, name, created_at, updated_at
               FROM establishments WHERE owner_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, ownerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []*model.Establishment
    for rows.Next() {
        e := new(model.Establishment)
        if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// UpdateName renames an establishment if it belongs to the provided
// owner. Returns sql.ErrNoRows when no row is affected.
func (r *EstablishmentRepo) UpdateName(ctx context.Context, id, ownerID uint64, name string) error {
    const q = `UPDATE establishments SET name = ? WHERE id = ? AND owner_id = ?`
    res, err := r.db.ExecContext(ctx, q, name, id, ownerID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
