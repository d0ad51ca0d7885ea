package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sriramlenka/notekart/internal/model"
)

// OrderRepository persists purchase records.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository constructs a repository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert stores a new order. It reports false without error when an active
// (pending or approved) order already exists for the same buyer and note:
// the insert lands on the orders_active_once partial index and is dropped by
// ON CONFLICT DO NOTHING, which closes the read-then-write race a separate
// existence check would leave open.
func (r *OrderRepository) Insert(ctx context.Context, o *model.Order) (bool, error) {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, note_id, amount, proof_key, status, superseded, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7,$8)
		ON CONFLICT (user_id, note_id) WHERE status IN ('pending','approved') DO NOTHING
	`, o.ID, o.UserID, o.NoteID, o.Amount, o.ProofKey, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get returns an order by id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `
		SELECT id, user_id, note_id, amount, proof_key, status, superseded, created_at, updated_at
		FROM orders WHERE id=$1
	`, id))
}

// ActiveFor returns the pending or approved order for a (user, note) pair,
// if any. At most one can exist thanks to the partial unique index.
func (r *OrderRepository) ActiveFor(ctx context.Context, userID, noteID string) (*model.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `
		SELECT id, user_id, note_id, amount, proof_key, status, superseded, created_at, updated_at
		FROM orders
		WHERE user_id=$1 AND note_id=$2 AND status IN ('pending','approved')
	`, userID, noteID))
}

// HasApproved reports whether an approved order exists for the pair. This is
// the download-authorization query.
func (r *OrderRepository) HasApproved(ctx context.Context, userID, noteID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE user_id=$1 AND note_id=$2 AND status='approved'
		)
	`, userID, noteID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check approved order: %w", err)
	}
	return exists, nil
}

// HasRejected reports whether stale rejected orders remain for the pair.
func (r *OrderRepository) HasRejected(ctx context.Context, userID, noteID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE user_id=$1 AND note_id=$2 AND status='rejected' AND NOT superseded
		)
	`, userID, noteID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check rejected orders: %w", err)
	}
	return exists, nil
}

// UpdateStatus overwrites the status of an order and returns the updated
// row. No other column is mutable after creation.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3
		RETURNING id, user_id, note_id, amount, proof_key, status, superseded, created_at, updated_at
	`, status, time.Now().UTC(), id))
}

// SupersedeRejected marks every live rejected order for the pair as
// superseded and returns their proof keys so the caller can release the
// stored screenshots. Rows stay behind as audit history.
func (r *OrderRepository) SupersedeRejected(ctx context.Context, userID, noteID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE orders SET superseded=TRUE, updated_at=$3
		WHERE user_id=$1 AND note_id=$2 AND status='rejected' AND NOT superseded
		RETURNING proof_key
	`, userID, noteID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("supersede rejected orders: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan proof key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("supersede rejected orders: %w", err)
	}
	return keys, nil
}

// ListForUser returns a buyer's orders joined with the public note fields,
// oldest first for a stable history view.
func (r *OrderRepository) ListForUser(ctx context.Context, userID string) ([]model.UserOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.user_id, o.note_id, o.amount, o.proof_key, o.status, o.superseded, o.created_at, o.updated_at,
			COALESCE(n.title,''), COALESCE(n.description,'')
		FROM orders o
		LEFT JOIN notes n ON n.id = o.note_id
		WHERE o.user_id=$1
		ORDER BY o.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	defer rows.Close()
	var out []model.UserOrder
	for rows.Next() {
		var uo model.UserOrder
		if err := rows.Scan(&uo.ID, &uo.UserID, &uo.NoteID, &uo.Amount, &uo.ProofKey, &uo.Status, &uo.Superseded,
			&uo.CreatedAt, &uo.UpdatedAt, &uo.NoteTitle, &uo.NoteDescription); err != nil {
			return nil, fmt.Errorf("scan user order: %w", err)
		}
		out = append(out, uo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	return out, nil
}

// ListAll returns every order joined with buyer and note details, newest
// first. The descending sort is part of the admin review contract.
func (r *OrderRepository) ListAll(ctx context.Context) ([]model.AdminOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.user_id, o.note_id, o.amount, o.proof_key, o.status, o.superseded, o.created_at, o.updated_at,
			COALESCE(u.name,''), COALESCE(u.email,''), COALESCE(n.title,''), COALESCE(n.price,0)
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		LEFT JOIN notes n ON n.id = o.note_id
		ORDER BY o.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()
	var out []model.AdminOrder
	for rows.Next() {
		var ao model.AdminOrder
		if err := rows.Scan(&ao.ID, &ao.UserID, &ao.NoteID, &ao.Amount, &ao.ProofKey, &ao.Status, &ao.Superseded,
			&ao.CreatedAt, &ao.UpdatedAt, &ao.UserName, &ao.UserEmail, &ao.NoteTitle, &ao.NotePrice); err != nil {
			return nil, fmt.Errorf("scan admin order: %w", err)
		}
		out = append(out, ao)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.NoteID, &o.Amount, &o.ProofKey, &o.Status, &o.Superseded,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	return &o, nil
}
