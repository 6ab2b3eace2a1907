package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lengolf/pos-print/internal/domain/receipt"
)

var _ receipt.Repository = (*TransactionRepository)(nil)

// TransactionRepository implements receipt.Repository backed by PostgreSQL.
// All operations are read-only: printing never mutates transaction state.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository returns a TransactionRepository using the given pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Transaction loads one transaction header by its document id.
// Returns receipt.ErrNotFound when no transaction matches.
func (r *TransactionRepository) Transaction(ctx context.Context, id string) (*receipt.TransactionRecord, error) {
	const q = `
		SELECT id, issued_at, COALESCE(staff_name, ''), COALESCE(guest_count, 0),
		       receipt_discount, COALESCE(customer_id, '')
		FROM transactions
		WHERE id = $1`

	var rec receipt.TransactionRecord
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rec.ID,
		&rec.IssuedAt,
		&rec.StaffName,
		&rec.GuestCount,
		&rec.ReceiptDiscount,
		&rec.CustomerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}
		return nil, errors.Wrapf(err, "loading transaction %q", id)
	}
	return &rec, nil
}

// Items loads the transaction's line items in their recorded order.
func (r *TransactionRepository) Items(ctx context.Context, id string) ([]receipt.ItemRecord, error) {
	const q = `
		SELECT description, quantity, unit_price, item_discount
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading items for %q", id)
	}
	defer rows.Close()

	var items []receipt.ItemRecord
	for rows.Next() {
		var item receipt.ItemRecord
		if err := rows.Scan(&item.Description, &item.Quantity, &item.UnitPrice, &item.Discount); err != nil {
			return nil, errors.Wrapf(err, "scanning item for %q", id)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating items for %q", id)
	}
	return items, nil
}

// Payments loads the transaction's recorded payment methods in order.
// An empty result is valid; the Aggregator applies the cash fallback.
func (r *TransactionRepository) Payments(ctx context.Context, id string) ([]receipt.PaymentRecord, error) {
	const q = `
		SELECT method, amount
		FROM transaction_payments
		WHERE transaction_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading payments for %q", id)
	}
	defer rows.Close()

	var payments []receipt.PaymentRecord
	for rows.Next() {
		var p receipt.PaymentRecord
		if err := rows.Scan(&p.Method, &p.Amount); err != nil {
			return nil, errors.Wrapf(err, "scanning payment for %q", id)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating payments for %q", id)
	}
	return payments, nil
}

// TaxProfile loads a customer's tax identity.
// Returns receipt.ErrNotFound when the customer has none on record.
func (r *TransactionRepository) TaxProfile(ctx context.Context, customerID string) (*receipt.TaxProfile, error) {
	const q = `
		SELECT COALESCE(name, ''), COALESCE(tax_id, '')
		FROM customer_tax_profiles
		WHERE customer_id = $1`

	var profile receipt.TaxProfile
	err := r.pool.QueryRow(ctx, q, customerID).Scan(&profile.Name, &profile.TaxID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}
		return nil, errors.Wrapf(err, "loading tax profile %q", customerID)
	}
	return &profile, nil
}
