// Package escpos serializes receipt documents into ESC/POS command streams
// for thermal printers, and renders the equivalent plain-text preview.
package escpos

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lengolf/pos-print/internal/domain/receipt"
)

// DefaultWidth is the printable character count for 58 mm paper stock.
const DefaultWidth = 44

// BusinessProfile is the header identity printed on every document. It is
// static configuration injected at startup, never re-fetched per print.
type BusinessProfile struct {
	Name         string
	AddressLine1 string
	AddressLine2 string
	TaxID        string
}

// Encoder turns a receipt.Document into printer command bytes. Encoding is a
// pure function of the document and the encoder configuration: no I/O, and
// every optional field renders as a blank slot rather than failing.
type Encoder struct {
	profile BusinessProfile
	width   int
}

// NewEncoder creates an Encoder for the given business profile and printable
// width in characters. A non-positive width falls back to DefaultWidth.
func NewEncoder(profile BusinessProfile, width int) *Encoder {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Encoder{profile: profile, width: width}
}

// variantHeader is the only structural difference between document variants.
func variantHeader(v receipt.Variant) string {
	switch v {
	case receipt.TaxInvoiceABB:
		return "TAX INVOICE (ABB)"
	case receipt.TaxInvoiceOriginal:
		return "TAX INVOICE (ORIGINAL)"
	default:
		return "BILL"
	}
}

// Encode serializes doc into a complete print job: initialize, header,
// line items, totals, payments, footer, feed, and cut.
func (e *Encoder) Encode(doc *receipt.Document) []byte {
	var buf bytes.Buffer
	buf.Write(cmdInit)

	// Centered identity block.
	buf.Write(cmdAlignCenter)
	buf.Write(cmdSizeDouble)
	e.textln(&buf, e.profile.Name)
	buf.Write(cmdSizeNormal)
	e.textln(&buf, e.profile.AddressLine1)
	e.textln(&buf, e.profile.AddressLine2)
	if e.profile.TaxID != "" {
		e.textln(&buf, "TAX ID "+e.profile.TaxID)
	}
	buf.Write(cmdBoldOn)
	e.textln(&buf, variantHeader(doc.Variant))
	buf.Write(cmdBoldOff)

	buf.Write(cmdAlignLeft)
	for _, line := range e.metaLines(doc) {
		e.textln(&buf, line)
	}
	e.textln(&buf, e.rule())

	for _, line := range e.itemLines(doc) {
		e.textln(&buf, line)
	}
	e.textln(&buf, e.rule())

	totals := e.totalLines(doc)
	for i, line := range totals {
		// The grand total is the last totals row; print it emphasized.
		if i == len(totals)-1 {
			buf.Write(cmdBoldOn)
			e.textln(&buf, line)
			buf.Write(cmdBoldOff)
			continue
		}
		e.textln(&buf, line)
	}
	e.textln(&buf, e.rule())

	for _, line := range e.paymentLines(doc) {
		e.textln(&buf, line)
	}

	buf.Write(cmdAlignCenter)
	e.textln(&buf, "Thank you")

	buf.Write(cmdFeed4)
	buf.Write(cmdCut)
	return buf.Bytes()
}

// Preview renders the same layout as Encode without any command bytes, for
// on-screen display.
func (e *Encoder) Preview(doc *receipt.Document) string {
	var b strings.Builder
	center := func(s string) {
		b.WriteString(e.center(s))
		b.WriteByte('\n')
	}
	center(e.profile.Name)
	center(e.profile.AddressLine1)
	center(e.profile.AddressLine2)
	if e.profile.TaxID != "" {
		center("TAX ID " + e.profile.TaxID)
	}
	center(variantHeader(doc.Variant))
	for _, line := range e.metaLines(doc) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(e.rule())
	b.WriteByte('\n')
	for _, line := range e.itemLines(doc) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(e.rule())
	b.WriteByte('\n')
	for _, line := range e.totalLines(doc) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(e.rule())
	b.WriteByte('\n')
	for _, line := range e.paymentLines(doc) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	center("Thank you")
	return b.String()
}

// TestPattern is the fixed, known-good job used to validate connectivity
// without resolving a real transaction.
func (e *Encoder) TestPattern() []byte {
	var buf bytes.Buffer
	buf.Write(cmdInit)
	buf.Write(cmdAlignCenter)
	buf.Write(cmdBoldOn)
	e.textln(&buf, e.profile.Name)
	buf.Write(cmdBoldOff)
	e.textln(&buf, "PRINTER TEST")
	e.textln(&buf, e.rule())
	e.textln(&buf, "0123456789 ABCDEFGHIJ abcdefghij")
	e.textln(&buf, e.rule())
	buf.Write(cmdFeed4)
	buf.Write(cmdCut)
	return buf.Bytes()
}

// --- Row composition ---

func (e *Encoder) metaLines(doc *receipt.Document) []string {
	lines := []string{
		"Receipt No: " + doc.ID,
	}
	if !doc.IssuedAt.IsZero() {
		lines = append(lines, "Date: "+doc.IssuedAt.Format("02/01/2006 15:04"))
	}
	// Blank staff name or zero guest count render as empty slots.
	guests := ""
	if doc.GuestCount > 0 {
		guests = fmt.Sprintf("%d", doc.GuestCount)
	}
	lines = append(lines, e.leftRight("Staff: "+doc.StaffName, "Guests: "+guests))
	if doc.Variant == receipt.TaxInvoiceOriginal {
		lines = append(lines,
			"Customer: "+doc.CustomerTaxName,
			"Customer Tax ID: "+doc.CustomerTaxID,
		)
	}
	return lines
}

func (e *Encoder) itemLines(doc *receipt.Document) []string {
	var lines []string
	for _, item := range doc.Items {
		qty := fmt.Sprintf("%dx ", item.Quantity)
		wrapped := e.wrap(qty+item.Description, len(qty))
		if item.ItemDiscount.IsPositive() {
			// Discounted lines show the pre-discount amount, the discount,
			// and the resulting line total.
			gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			lines = append(lines, wrapped...)
			lines = append(lines,
				e.leftRight("", money(gross)),
				e.leftRight("  Discount", "-"+money(item.ItemDiscount)),
				e.leftRight("", money(item.LineTotal)),
			)
			continue
		}
		// Amount shares the last description line when it fits.
		last := wrapped[len(wrapped)-1]
		amount := money(item.LineTotal)
		if len(last)+1+len(amount) <= e.width {
			wrapped[len(wrapped)-1] = e.leftRight(last, amount)
			lines = append(lines, wrapped...)
		} else {
			lines = append(lines, wrapped...)
			lines = append(lines, e.leftRight("", amount))
		}
	}
	return lines
}

func (e *Encoder) totalLines(doc *receipt.Document) []string {
	lines := []string{
		e.leftRight("Subtotal", money(doc.Subtotal)),
	}
	if doc.ReceiptDiscount.IsPositive() {
		lines = append(lines, e.leftRight("Total Discount", "-"+money(doc.ReceiptDiscount)))
	}
	lines = append(lines,
		e.leftRight("VAT 7%", money(doc.VATAmount)),
		e.leftRight("TOTAL", money(doc.TotalAmount)),
	)
	return lines
}

func (e *Encoder) paymentLines(doc *receipt.Document) []string {
	lines := make([]string, len(doc.Payments))
	for i, p := range doc.Payments {
		lines[i] = e.leftRight(p.Method, money(p.Amount))
	}
	return lines
}

// --- Text layout helpers ---

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (e *Encoder) rule() string {
	return strings.Repeat("-", e.width)
}

// center pads s to the printable width for the preview render. The printer
// itself centers via ESC a, so Encode never calls this.
func (e *Encoder) center(s string) string {
	if len(s) >= e.width {
		return s
	}
	return strings.Repeat(" ", (e.width-len(s))/2) + s
}

// leftRight composes one row of exactly the printable width, with right
// right-justified after left. When the two collide the right column wins and
// the left text is truncated.
func (e *Encoder) leftRight(left, right string) string {
	pad := e.width - len(left) - len(right)
	if pad < 1 {
		keep := e.width - len(right) - 1
		if keep < 0 {
			keep = 0
		}
		left = left[:keep]
		pad = e.width - len(left) - len(right)
	}
	return left + strings.Repeat(" ", pad) + right
}

// wrap splits s into lines no wider than the printable width. Continuation
// lines are indented by indent characters to hang under the description.
func (e *Encoder) wrap(s string, indent int) []string {
	if len(s) <= e.width {
		return []string{s}
	}
	if indent >= e.width {
		indent = 0
	}
	var lines []string
	first := true
	for len(s) > 0 {
		limit := e.width
		prefix := ""
		if !first {
			limit = e.width - indent
			prefix = strings.Repeat(" ", indent)
		}
		if len(s) <= limit {
			lines = append(lines, prefix+s)
			break
		}
		// Prefer breaking at the last space inside the limit.
		cut := strings.LastIndexByte(s[:limit+1], ' ')
		if cut <= 0 {
			cut = limit
		}
		lines = append(lines, prefix+strings.TrimRight(s[:cut], " "))
		s = strings.TrimLeft(s[cut:], " ")
		first = false
	}
	return lines
}

// textln writes one text row followed by a line feed.
func (e *Encoder) textln(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.Write(lf)
}
