package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// SeedTransaction is a complete transaction fixture used by the seed tool.
// Items and payments are written in slice order.
type SeedTransaction struct {
	ID              string          `json:"id"`
	IssuedAt        string          `json:"issuedAt"`
	StaffName       string          `json:"staffName"`
	GuestCount      int             `json:"guestCount"`
	ReceiptDiscount decimal.Decimal `json:"receiptDiscount"`
	CustomerID      string          `json:"customerId"`
	Items           []SeedItem      `json:"items"`
	Payments        []SeedPayment   `json:"payments"`
	TaxProfile      *SeedTaxProfile `json:"taxProfile"`
}

// SeedItem is one line item fixture.
type SeedItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"itemDiscount"`
}

// SeedPayment is one payment fixture.
type SeedPayment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// SeedTaxProfile is a customer tax identity fixture. It requires a non-empty
// CustomerID on the owning transaction.
type SeedTaxProfile struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

// UpsertTransaction writes one full transaction fixture in a single
// database transaction, replacing any previous rows for the same id.
func (r *TransactionRepository) UpsertTransaction(ctx context.Context, st SeedTransaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertTx = `
		INSERT INTO transactions (id, issued_at, staff_name, guest_count, receipt_discount, customer_id)
		VALUES ($1, $2::timestamptz, NULLIF($3, ''), $4, $5, NULLIF($6, ''))
		ON CONFLICT (id) DO UPDATE SET
			issued_at = EXCLUDED.issued_at,
			staff_name = EXCLUDED.staff_name,
			guest_count = EXCLUDED.guest_count,
			receipt_discount = EXCLUDED.receipt_discount,
			customer_id = EXCLUDED.customer_id`

	if _, err := tx.Exec(ctx, upsertTx,
		st.ID, st.IssuedAt, st.StaffName, st.GuestCount, st.ReceiptDiscount, st.CustomerID,
	); err != nil {
		return errors.Wrapf(err, "upsert transaction %q", st.ID)
	}

	// Replace dependent rows wholesale so re-seeding is idempotent.
	if _, err := tx.Exec(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, st.ID); err != nil {
		return errors.Wrapf(err, "clear items %q", st.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM transaction_payments WHERE transaction_id = $1`, st.ID); err != nil {
		return errors.Wrapf(err, "clear payments %q", st.ID)
	}

	const insertItem = `
		INSERT INTO transaction_items (transaction_id, position, description, quantity, unit_price, item_discount)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, item := range st.Items {
		if _, err := tx.Exec(ctx, insertItem,
			st.ID, i, item.Description, item.Quantity, item.UnitPrice, item.Discount,
		); err != nil {
			return errors.Wrapf(err, "insert item %d of %q", i, st.ID)
		}
	}

	const insertPayment = `
		INSERT INTO transaction_payments (transaction_id, position, method, amount)
		VALUES ($1, $2, $3, $4)`
	for i, p := range st.Payments {
		if _, err := tx.Exec(ctx, insertPayment, st.ID, i, p.Method, p.Amount); err != nil {
			return errors.Wrapf(err, "insert payment %d of %q", i, st.ID)
		}
	}

	if st.TaxProfile != nil && st.CustomerID != "" {
		const upsertProfile = `
			INSERT INTO customer_tax_profiles (customer_id, name, tax_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (customer_id) DO UPDATE SET
				name = EXCLUDED.name,
				tax_id = EXCLUDED.tax_id`
		if _, err := tx.Exec(ctx, upsertProfile,
			st.CustomerID, st.TaxProfile.Name, st.TaxProfile.TaxID,
		); err != nil {
			return errors.Wrapf(err, "upsert tax profile %q", st.CustomerID)
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}
