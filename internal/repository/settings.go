package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sriramlenka/notekart/internal/model"
)

// SettingsRepository persists the payment-settings singleton. The table's
// CHECK (id = 1) primary key guarantees at most one row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository constructs a repository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Load returns the singleton, creating it with defaults on first read. The
// insert-then-select is atomic per statement, so concurrent first reads all
// converge on one row.
func (r *SettingsRepository) Load(ctx context.Context) (*model.PaymentSettings, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_settings (id, mode, upi_id, payee_name, updated_at)
		VALUES (1,$1,$2,$3,$4)
		ON CONFLICT (id) DO NOTHING
	`, model.ModePaid, model.DefaultUPIID, model.DefaultPayeeName, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("seed payment settings: %w", err)
	}
	var s model.PaymentSettings
	row := r.pool.QueryRow(ctx, `
		SELECT mode, upi_id, payee_name, updated_at FROM payment_settings WHERE id=1
	`)
	if err := row.Scan(&s.Mode, &s.UPIID, &s.PayeeName, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("select payment settings: %w", err)
	}
	return &s, nil
}

// Save overwrites the singleton and returns the stored value.
func (r *SettingsRepository) Save(ctx context.Context, s *model.PaymentSettings) (*model.PaymentSettings, error) {
	s.UpdatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_settings (id, mode, upi_id, payee_name, updated_at)
		VALUES (1,$1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE
		SET mode=EXCLUDED.mode, upi_id=EXCLUDED.upi_id, payee_name=EXCLUDED.payee_name, updated_at=EXCLUDED.updated_at
	`, s.Mode, s.UPIID, s.PayeeName, s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("save payment settings: %w", err)
	}
	out := *s
	return &out, nil
}
