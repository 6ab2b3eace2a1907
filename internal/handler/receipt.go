package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/lengolf/pos-print/internal/domain/receipt"
)

// receipt handles GET /api/receipts/{id}?variant=. It resolves and renders
// the document for on-screen preview without printing anything.
func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	variant := receipt.Variant(r.URL.Query().Get("variant"))
	if variant == "" {
		variant = receipt.TaxInvoiceABB
	}

	doc, err := h.svc.Document(r.Context(), id, variant)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, encodeDocument(doc, h.svc.PreviewText(doc)))
}

func encodeDocument(doc *receipt.Document, preview string) *jx.Encoder {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("documentId")
	e.Str(doc.ID)
	e.FieldStart("variant")
	e.Str(string(doc.Variant))
	e.FieldStart("issuedAt")
	e.Str(doc.IssuedAt.Format("2006-01-02T15:04:05-07:00"))
	e.FieldStart("staffName")
	e.Str(doc.StaffName)
	e.FieldStart("guestCount")
	e.Int(doc.GuestCount)

	e.FieldStart("lineItems")
	e.ArrStart()
	for _, item := range doc.Items {
		e.ObjStart()
		e.FieldStart("description")
		e.Str(item.Description)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("unitPrice")
		e.Str(item.UnitPrice.StringFixed(2))
		e.FieldStart("lineTotal")
		e.Str(item.LineTotal.StringFixed(2))
		e.FieldStart("itemDiscount")
		e.Str(item.ItemDiscount.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	e.Str(doc.Subtotal.StringFixed(2))
	e.FieldStart("receiptDiscount")
	e.Str(doc.ReceiptDiscount.StringFixed(2))
	e.FieldStart("vatAmount")
	e.Str(doc.VATAmount.StringFixed(2))
	e.FieldStart("totalAmount")
	e.Str(doc.TotalAmount.StringFixed(2))

	e.FieldStart("paymentMethods")
	e.ArrStart()
	for _, p := range doc.Payments {
		e.ObjStart()
		e.FieldStart("methodName")
		e.Str(p.Method)
		e.FieldStart("amount")
		e.Str(p.Amount.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	if doc.Variant == receipt.TaxInvoiceOriginal {
		e.FieldStart("customerTaxName")
		e.Str(doc.CustomerTaxName)
		e.FieldStart("customerTaxId")
		e.Str(doc.CustomerTaxID)
	}

	e.FieldStart("preview")
	e.Str(preview)
	e.ObjEnd()
	return &e
}
