package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/internal/readmodel"
	"github.com/shopspring/decimal"
)

const checkoutColumns = `id, user_id, status, amount, address, payment_id, delivery_id,
	adjusted_products, items, failed_step, failure_reason, needs_reconciliation, created_at, updated_at`

// PostgresReadStore implements ReadStoreInterface using the read_checkouts table
type PostgresReadStore struct {
	db *sql.DB
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (rs *PostgresReadStore) SetCheckout(ctx context.Context, c *readmodel.CheckoutReadModel) error {
	return upsertCheckout(ctx, rs.db, c)
}

func upsertCheckout(ctx context.Context, db execer, c *readmodel.CheckoutReadModel) error {
	adjusted, err := json.Marshal(nonNil(c.AdjustedProducts))
	if err != nil {
		return err
	}
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO read_checkouts (`+checkoutColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			address = EXCLUDED.address,
			payment_id = EXCLUDED.payment_id,
			delivery_id = EXCLUDED.delivery_id,
			adjusted_products = EXCLUDED.adjusted_products,
			items = EXCLUDED.items,
			failed_step = EXCLUDED.failed_step,
			failure_reason = EXCLUDED.failure_reason,
			needs_reconciliation = EXCLUDED.needs_reconciliation,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.UserID, c.Status, c.Amount.String(), c.Address, c.PaymentID, c.DeliveryID,
		adjusted, items, c.FailedStep, c.FailureReason, c.NeedsReconciliation, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert checkout %s: %w", c.ID, err)
	}
	return nil
}

func (rs *PostgresReadStore) GetCheckout(ctx context.Context, id string) (*readmodel.CheckoutReadModel, bool, error) {
	row := rs.db.QueryRowContext(ctx, `SELECT `+checkoutColumns+` FROM read_checkouts WHERE id = $1`, id)
	c, err := scanCheckout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (rs *PostgresReadStore) ListCheckouts(ctx context.Context, filter CheckoutFilter) ([]*readmodel.CheckoutReadModel, error) {
	rows, err := rs.db.QueryContext(ctx, `
		SELECT `+checkoutColumns+` FROM read_checkouts
		WHERE ($1 = '' OR user_id = $1) AND (NOT $2 OR needs_reconciliation)
		ORDER BY created_at DESC`,
		filter.UserID, filter.NeedsReconciliation,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*readmodel.CheckoutReadModel
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCheckout locks the row for the read-modify-write so concurrent projectors serialize
func (rs *PostgresReadStore) UpdateCheckout(ctx context.Context, id string, fn func(c *readmodel.CheckoutReadModel)) (bool, error) {
	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+checkoutColumns+` FROM read_checkouts WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCheckout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	fn(c)
	if err := upsertCheckout(ctx, tx, c); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckout(s scanner) (*readmodel.CheckoutReadModel, error) {
	var c readmodel.CheckoutReadModel
	var amount string
	var adjusted, items []byte
	err := s.Scan(&c.ID, &c.UserID, &c.Status, &amount, &c.Address, &c.PaymentID, &c.DeliveryID,
		&adjusted, &items, &c.FailedStep, &c.FailureReason, &c.NeedsReconciliation, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if err := json.Unmarshal(adjusted, &c.AdjustedProducts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
