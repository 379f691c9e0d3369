// This file defines the durable queue store. The `queues` row is the
// source of truth for metadata and lifecycle status; it is what the
// engine rehydrates the cache from on a cold start, and it outlives
// Close so that closed queues remain available for reporting.
package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/quepass/quepass/internal/model"
)

// QueueRepo encapsulates all database queries related to queue metadata.
type QueueRepo struct {
    db *sql.DB
}

// NewQueueRepo constructs a QueueRepo with the provided DB handle.
func NewQueueRepo(db *sql.DB) *QueueRepo {
    return &QueueRepo{db: db}
}

// DB exposes the underlying sql.DB for callers that need transactions
// spanning multiple repositories.
func (r *QueueRepo) DB() *sql.DB { return r.db }

const queueColumns = `id, establishment_id, name, description, status,
    max_advance, advance_price_cents, minutes_per_position, created_at, updated_at`

func scanQueue(row interface{ Scan(...interface{}) error }) (*model.Queue, error) {
    var q model.Queue
    err := row.Scan(&q.ID, &q.EstablishmentID, &q.Name, &q.Description, &q.Status,
        &q.MaxAdvance, &q.AdvancePriceCents, &q.MinutesPerPosition, &q.CreatedAt, &q.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &q, nil
}

// Create inserts a new queue. The caller supplies the UUID id; status
// defaults to ACTIVE in the schema. After the insert a follow-up SELECT
// populates the DB-default fields so callers receive a full record.
func (r *QueueRepo) Create(ctx context.Context, q *model.Queue) error {
    const qInsert = `INSERT INTO queues
        (id, establishment_id, name, description, max_advance, advance_price_cents, minutes_per_position)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    if _, err := r.db.ExecContext(ctx, qInsert,
        q.ID, q.EstablishmentID, q.Name, q.Description,
        q.MaxAdvance, q.AdvancePriceCents, q.MinutesPerPosition); err != nil {
        return err
    }
    full, err := r.GetByID(ctx, q.ID)
    if err != nil {
        return err
    }
    *q = *full
    return nil
}

// GetByID fetches a queue by id. Returns ErrQueueNotFound when absent.
func (r *QueueRepo) GetByID(ctx context.Context, id string) (*model.Queue, error) {
    const q = `SELECT ` + queueColumns + ` FROM queues WHERE id = ?`
    out, err := scanQueue(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrQueueNotFound
        }
        return nil, err
    }
    return out, nil
}

// GetByIDAndOwner fetches a queue only when its establishment belongs to
// ownerID. ErrQueueNotFound when the queue does not exist; ErrForbidden
// when it exists under a different owner.
func (r *QueueRepo) GetByIDAndOwner(ctx context.Context, id string, ownerID uint64) (*model.Queue, error) {
    q, err := r.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    const qOwner = `SELECT owner_id FROM establishments WHERE id = ?`
    var owner uint64
    if err := r.db.QueryRowContext(ctx, qOwner, q.EstablishmentID).Scan(&owner); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrQueueNotFound
        }
        return nil, err
    }
    if owner != ownerID {
        return nil, ErrForbidden
    }
    return q, nil
}

// Update rewrites the editable metadata fields of a queue. Lifecycle
// status is not editable here; use UpdateStatus.
func (r *QueueRepo) Update(ctx context.Context, q *model.Queue) error {
    const qUpdate = `UPDATE queues
        SET name = ?, description = ?, max_advance = ?, advance_price_cents = ?, minutes_per_position = ?
        WHERE id = ?`
    res, err := r.db.ExecContext(ctx, qUpdate,
        q.Name, q.Description, q.MaxAdvance, q.AdvancePriceCents, q.MinutesPerPosition, q.ID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        // Either missing or unchanged; disambiguate with a lookup.
        if _, err := r.GetByID(ctx, q.ID); err != nil {
            return err
        }
    }
    full, err := r.GetByID(ctx, q.ID)
    if err != nil {
        return err
    }
    *q = *full
    return nil
}

// UpdateStatus persists a lifecycle transition. The state machine itself
// is validated by the engine before this is called.
func (r *QueueRepo) UpdateStatus(ctx context.Context, id, status string) error {
    res, err := r.db.ExecContext(ctx, `UPDATE queues SET status = ? WHERE id = ?`, status, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        if _, err := r.GetByID(ctx, id); err != nil {
            return err
        }
    }
    return nil
}

// ListByEstablishment returns all queues of an establishment ordered by
// creation time, including closed ones (history stays visible to owners).
func (r *QueueRepo) ListByEstablishment(ctx context.Context, establishmentID uint64) ([]*model.Queue, error) {
    const q = `SELECT ` + queueColumns + ` FROM queues WHERE establishment_id = ? ORDER BY created_at`
    rows, err := r.db.QueryContext(ctx, q, establishmentID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []*model.Queue
    for rows.Next() {
        item, err := scanQueue(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, item)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
