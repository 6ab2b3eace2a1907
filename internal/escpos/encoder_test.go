package escpos

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lengolf/pos-print/internal/domain/receipt"
)

var testProfile = BusinessProfile{
	Name:         "LENGOLF CO. LTD.",
	AddressLine1: "540 Mercury Tower, Unit 407 Ploenchit Road",
	AddressLine2: "Lumpini, Pathumwan, Bangkok 10330",
	TaxID:        "0105566207013",
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func sampleDocument(t *testing.T) *receipt.Document {
	t.Helper()
	return &receipt.Document{
		ID:         "RCPT-20260830-0042",
		Variant:    receipt.TaxInvoiceABB,
		IssuedAt:   time.Date(2026, 8, 30, 21, 30, 0, 0, time.UTC),
		StaffName:  "May",
		GuestCount: 2,
		Items: []receipt.LineItem{
			{Description: "Golf bay 1 hour", Quantity: 2, UnitPrice: dec(t, "100.00"), LineTotal: dec(t, "200.00"), ItemDiscount: decimal.Zero},
		},
		Subtotal:    dec(t, "200.00"),
		VATAmount:   dec(t, "14.00"),
		TotalAmount: dec(t, "214.00"),
		Payments:    []receipt.Payment{{Method: "Cash", Amount: dec(t, "214.00")}},
	}
}

func TestEncode_Deterministic(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)
	doc := sampleDocument(t)

	first := enc.Encode(doc)
	second := enc.Encode(doc)
	assert.True(t, bytes.Equal(first, second))
}

func TestEncode_CommandFraming(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)
	out := enc.Encode(sampleDocument(t))

	assert.True(t, bytes.HasPrefix(out, cmdInit), "stream must start with initialize")
	assert.True(t, bytes.HasSuffix(out, cmdCut), "stream must end with cut")
	assert.True(t, bytes.Contains(out, cmdFeed4), "feed must precede the cut")
	assert.True(t, bytes.Contains(out, cmdAlignCenter))
	assert.True(t, bytes.Contains(out, cmdAlignLeft))
}

func TestEncode_VariantHeaders(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)

	tests := []struct {
		variant receipt.Variant
		header  string
	}{
		{receipt.TaxInvoiceABB, "TAX INVOICE (ABB)"},
		{receipt.TaxInvoiceOriginal, "TAX INVOICE (ORIGINAL)"},
		{receipt.Bill, "BILL"},
	}
	for _, tt := range tests {
		doc := sampleDocument(t)
		doc.Variant = tt.variant
		out := enc.Encode(doc)
		assert.True(t, bytes.Contains(out, []byte(tt.header)), "variant %s", tt.variant)
	}
}

func TestEncode_TotalOnBlankOptionalFields(t *testing.T) {
	// Every optional field absent: encoding must still produce a valid
	// stream, rendering blanks instead of failing.
	enc := NewEncoder(testProfile, DefaultWidth)
	doc := &receipt.Document{
		ID:          "RCPT-20260830-0001",
		Variant:     receipt.TaxInvoiceOriginal,
		Subtotal:    decimal.Zero,
		VATAmount:   decimal.Zero,
		TotalAmount: decimal.Zero,
	}

	var out []byte
	require.NotPanics(t, func() { out = enc.Encode(doc) })
	assert.True(t, bytes.HasPrefix(out, cmdInit))
	assert.True(t, bytes.HasSuffix(out, cmdCut))
	assert.True(t, bytes.Contains(out, []byte("Staff: ")))
	assert.True(t, bytes.Contains(out, []byte("Customer Tax ID: ")))
}

func TestEncode_RowsFitPrintableWidth(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)
	doc := sampleDocument(t)
	doc.Items = append(doc.Items, receipt.LineItem{
		Description: "Weekend party package with extended driving range session and buffet",
		Quantity:    1,
		UnitPrice:   dec(t, "4500.00"),
		LineTotal:   dec(t, "4500.00"),
	})

	for _, line := range enc.itemLines(doc) {
		assert.LessOrEqual(t, len(line), DefaultWidth, "row %q", line)
	}
	for _, line := range enc.totalLines(doc) {
		assert.Equal(t, DefaultWidth, len(line), "totals row %q", line)
	}
}

func TestEncode_LongDescriptionWraps(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)
	doc := sampleDocument(t)
	doc.Items = []receipt.LineItem{{
		Description: "Private coaching lesson one hour with senior professional instructor",
		Quantity:    1,
		UnitPrice:   dec(t, "1800.00"),
		LineTotal:   dec(t, "1800.00"),
	}}

	lines := enc.itemLines(doc)
	require.Greater(t, len(lines), 1, "long description must wrap")
	// Continuation lines hang under the description, past the qty prefix.
	assert.True(t, strings.HasPrefix(lines[1], "   "))
}

func TestEncode_ItemDiscountShowsBothAmounts(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)
	doc := sampleDocument(t)
	doc.Items = []receipt.LineItem{{
		Description:  "Party package",
		Quantity:     1,
		UnitPrice:    dec(t, "1000.00"),
		LineTotal:    dec(t, "900.00"),
		ItemDiscount: dec(t, "100.00"),
	}}

	text := strings.Join(enc.itemLines(doc), "\n")
	assert.Contains(t, text, "1000.00", "pre-discount amount")
	assert.Contains(t, text, "-100.00", "discount amount")
	assert.Contains(t, text, "900.00", "post-discount amount")
}

func TestEncode_ReceiptDiscountRow(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)
	doc := sampleDocument(t)

	// No receipt discount: no Total Discount row.
	out := enc.Encode(doc)
	assert.False(t, bytes.Contains(out, []byte("Total Discount")))

	doc.ReceiptDiscount = dec(t, "50.00")
	lines := enc.totalLines(doc)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Subtotal")
	assert.Contains(t, lines[1], "Total Discount")
	assert.Contains(t, lines[1], "-50.00")
	assert.Contains(t, lines[2], "VAT 7%")
	assert.Contains(t, lines[3], "TOTAL")
}

func TestPreview_NoCommandBytes(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)
	text := enc.Preview(sampleDocument(t))

	for _, r := range text {
		assert.True(t, r == '\n' || r >= 0x20, "control byte %q in preview", r)
	}
	assert.Contains(t, text, "TAX INVOICE (ABB)")
	assert.Contains(t, text, "214.00")
	assert.Contains(t, text, "LENGOLF CO. LTD.")
}

func TestTestPattern_KnownGoodFraming(t *testing.T) {
	enc := NewEncoder(testProfile, DefaultWidth)

	out := enc.TestPattern()
	assert.True(t, bytes.HasPrefix(out, cmdInit))
	assert.True(t, bytes.HasSuffix(out, cmdCut))
	assert.True(t, bytes.Contains(out, []byte("PRINTER TEST")))
	// Fixed pattern: byte-identical across calls.
	assert.True(t, bytes.Equal(out, enc.TestPattern()))
}
