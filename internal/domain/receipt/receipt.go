package receipt

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// VATRate is the statutory VAT rate applied to every document. It is a
// business constant, not per-document configuration.
var VATRate = decimal.RequireFromString("0.07")

// Variant selects the printable document shape. Variants differ only in
// header and legal framing; the line-item and totals content is shared.
type Variant string

const (
	// TaxInvoiceABB is the abbreviated tax invoice printed by default.
	TaxInvoiceABB Variant = "tax_invoice_abb"
	// TaxInvoiceOriginal is the full tax invoice carrying the customer's
	// tax identity when one is on record.
	TaxInvoiceOriginal Variant = "tax_invoice_original"
	// Bill is the plain pre-payment bill presented at the table.
	Bill Variant = "bill"
)

// Valid reports whether v is one of the supported document variants.
func (v Variant) Valid() bool {
	switch v {
	case TaxInvoiceABB, TaxInvoiceOriginal, Bill:
		return true
	}
	return false
}

// LineItem is a single resolved sales line.
// Invariant: LineTotal = Quantity*UnitPrice - ItemDiscount,
// with 0 <= ItemDiscount <= Quantity*UnitPrice.
type LineItem struct {
	Description  string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
	ItemDiscount decimal.Decimal
}

// Payment is one recorded settlement against the document total.
type Payment struct {
	Method string
	Amount decimal.Decimal
}

// Document is the canonical, transport-agnostic representation of one
// printable receipt. It is constructed fresh on every print request and is
// immutable from the moment the Aggregator returns it.
type Document struct {
	ID       string
	Variant  Variant
	IssuedAt time.Time

	// Display metadata. Zero values render as blank, never as an error.
	StaffName  string
	GuestCount int

	Items []LineItem

	Subtotal        decimal.Decimal
	ReceiptDiscount decimal.Decimal
	VATAmount       decimal.Decimal
	TotalAmount     decimal.Decimal

	Payments []Payment

	// CustomerTaxID is resolved only for TaxInvoiceOriginal and is blank
	// when the customer has no tax identity on record.
	CustomerTaxID   string
	CustomerTaxName string
}

// TransactionRecord is the raw transaction header as stored.
type TransactionRecord struct {
	ID              string
	IssuedAt        time.Time
	StaffName       string
	GuestCount      int
	ReceiptDiscount decimal.Decimal
	CustomerID      string
}

// ItemRecord is a raw stored line item with its attributed discount.
type ItemRecord struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

// PaymentRecord is a raw stored payment method entry.
type PaymentRecord struct {
	Method string
	Amount decimal.Decimal
}

// TaxProfile is a customer's stored tax identity, used on original tax
// invoices. Absence of a profile is not an error.
type TaxProfile struct {
	Name  string
	TaxID string
}

// Repository provides read-only access to the transactional store.
// Implementations return ErrNotFound when no transaction matches the id.
type Repository interface {
	Transaction(ctx context.Context, id string) (*TransactionRecord, error)
	Items(ctx context.Context, id string) ([]ItemRecord, error)
	Payments(ctx context.Context, id string) ([]PaymentRecord, error)
	TaxProfile(ctx context.Context, customerID string) (*TaxProfile, error)
}
