package receipt

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors for document resolution.
var (
	// ErrNotFound indicates no transaction matches the document id.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidID indicates the document id fails the format check.
	ErrInvalidID = errors.New("invalid document id")
	// ErrInvalidVariant indicates an unsupported document variant.
	ErrInvalidVariant = errors.New("invalid document variant")
)

// InconsistentDataError indicates the aggregated records violate a document
// invariant. It points at an upstream data bug, not a caller mistake, and is
// logged distinctly from the other resolution failures.
type InconsistentDataError struct {
	DocumentID string
	Reason     string
}

func (e *InconsistentDataError) Error() string {
	return fmt.Sprintf("inconsistent data for document %s: %s", e.DocumentID, e.Reason)
}

// receiptNumberRE matches printed receipt numbers such as RCPT-20260830-0042.
// Table sessions are identified by UUID instead.
var receiptNumberRE = regexp.MustCompile(`^[A-Z]{2,8}-[0-9]{4,8}-[0-9]{1,6}$`)

// ValidDocumentID reports whether id has the shape of a receipt number or a
// table-session UUID.
func ValidDocumentID(id string) bool {
	if id == "" {
		return false
	}
	if receiptNumberRE.MatchString(id) {
		return true
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Aggregator resolves stored transaction records into canonical Documents.
// It is read-only: resolving a document never mutates transaction state, so
// re-printing is simply re-running the resolution.
type Aggregator struct {
	repo Repository
	loc  *time.Location
}

// NewAggregator creates an Aggregator reading from repo. Timestamps on
// resolved documents are normalized to loc, the business's local timezone.
func NewAggregator(repo Repository, loc *time.Location) *Aggregator {
	return &Aggregator{repo: repo, loc: loc}
}

// Resolve loads the transaction identified by id and produces the canonical
// document for the given variant.
//
// Monetary rule: amounts are carried at full precision and rounded once at
// the end. VATAmount is the rounded 7% of the post-discount base, and
// TotalAmount is the rounded base*1.07. The two may disagree by at most one
// minor currency unit, and that slack lands in TotalAmount.
func (a *Aggregator) Resolve(ctx context.Context, id string, variant Variant) (*Document, error) {
	if !ValidDocumentID(id) {
		return nil, ErrInvalidID
	}
	if !variant.Valid() {
		return nil, ErrInvalidVariant
	}

	tx, err := a.repo.Transaction(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load transaction")
	}

	records, err := a.repo.Items(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load items")
	}

	items := make([]LineItem, len(records))
	subtotal := decimal.Zero
	for i, rec := range records {
		gross := rec.UnitPrice.Mul(decimal.NewFromInt(int64(rec.Quantity)))
		if rec.Discount.IsNegative() || rec.Discount.GreaterThan(gross) {
			return nil, &InconsistentDataError{
				DocumentID: id,
				Reason:     fmt.Sprintf("item %q discount %s outside [0, %s]", rec.Description, rec.Discount, gross),
			}
		}
		line := gross.Sub(rec.Discount)
		items[i] = LineItem{
			Description:  rec.Description,
			Quantity:     rec.Quantity,
			UnitPrice:    rec.UnitPrice,
			LineTotal:    line,
			ItemDiscount: rec.Discount,
		}
		subtotal = subtotal.Add(line)
	}

	// The receipt-level discount applies once, after subtotal. It is never
	// compounded with item discounts on the same base.
	if tx.ReceiptDiscount.IsNegative() || tx.ReceiptDiscount.GreaterThan(subtotal) {
		return nil, &InconsistentDataError{
			DocumentID: id,
			Reason:     fmt.Sprintf("receipt discount %s outside [0, %s]", tx.ReceiptDiscount, subtotal),
		}
	}

	base := subtotal.Sub(tx.ReceiptDiscount)
	vat := base.Mul(VATRate).Round(2)
	total := base.Mul(decimal.NewFromInt(1).Add(VATRate)).Round(2)

	doc := &Document{
		ID:              tx.ID,
		Variant:         variant,
		IssuedAt:        tx.IssuedAt.In(a.loc),
		StaffName:       tx.StaffName,
		GuestCount:      tx.GuestCount,
		Items:           items,
		Subtotal:        subtotal,
		ReceiptDiscount: tx.ReceiptDiscount,
		VATAmount:       vat,
		TotalAmount:     total,
	}

	payments, err := a.repo.Payments(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load payments")
	}
	if len(payments) == 0 {
		// Documented default: a transaction with no recorded payment method
		// settled in cash for the full amount.
		doc.Payments = []Payment{{Method: "Cash", Amount: total}}
	} else {
		doc.Payments = make([]Payment, len(payments))
		for i, p := range payments {
			doc.Payments[i] = Payment{Method: p.Method, Amount: p.Amount}
		}
	}

	if variant == TaxInvoiceOriginal && tx.CustomerID != "" {
		profile, err := a.repo.TaxProfile(ctx, tx.CustomerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "load tax profile")
		}
		if profile != nil {
			doc.CustomerTaxID = profile.TaxID
			doc.CustomerTaxName = profile.Name
		}
	}

	return doc, nil
}
