//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestReceipt_Basic(t *testing.T) {
	resp := doGet(t, "/api/receipts/RCPT-20260830-0001")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[receiptResponse](t, resp)
	if body.DocumentID != "RCPT-20260830-0001" {
		t.Errorf("documentId: got %q", body.DocumentID)
	}
	if body.Variant != "tax_invoice_abb" {
		t.Errorf("variant: got %q, want default tax_invoice_abb", body.Variant)
	}
	if body.Subtotal != "500.00" {
		t.Errorf("subtotal: got %q, want 500.00", body.Subtotal)
	}
	if body.VATAmount != "35.00" {
		t.Errorf("vatAmount: got %q, want 35.00", body.VATAmount)
	}
	if body.TotalAmount != "535.00" {
		t.Errorf("totalAmount: got %q, want 535.00", body.TotalAmount)
	}
	if len(body.PaymentMethods) != 1 || body.PaymentMethods[0].MethodName != "Cash" {
		t.Errorf("expected single Cash fallback payment, got %+v", body.PaymentMethods)
	}
	if body.PaymentMethods[0].Amount != "535.00" {
		t.Errorf("cash amount: got %q, want 535.00", body.PaymentMethods[0].Amount)
	}
	if !strings.Contains(body.Preview, "TAX INVOICE (ABB)") {
		t.Error("preview missing variant header")
	}
}

func TestReceipt_DiscountsAndSplitPayment(t *testing.T) {
	resp := doGet(t, "/api/receipts/RCPT-20260830-0002?variant=bill")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[receiptResponse](t, resp)
	if body.Variant != "bill" {
		t.Errorf("variant: got %q, want bill", body.Variant)
	}
	if body.TotalAmount != "1701.30" {
		t.Errorf("totalAmount: got %q, want 1701.30", body.TotalAmount)
	}
	if len(body.PaymentMethods) != 2 {
		t.Fatalf("expected 2 recorded payments, got %d", len(body.PaymentMethods))
	}
	if body.PaymentMethods[0].MethodName != "Visa" || body.PaymentMethods[1].MethodName != "Cash" {
		t.Errorf("payment order: got %+v", body.PaymentMethods)
	}
}

func TestReceipt_TaxInvoiceOriginal(t *testing.T) {
	resp := doGet(t, "/api/receipts/RCPT-20260830-0003?variant=tax_invoice_original")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[receiptResponse](t, resp)
	if body.CustomerTaxName != "Acme Trading Co., Ltd." {
		t.Errorf("customerTaxName: got %q", body.CustomerTaxName)
	}
	if body.CustomerTaxID != "0105559988776" {
		t.Errorf("customerTaxId: got %q", body.CustomerTaxID)
	}
}

func TestReceipt_NotFound(t *testing.T) {
	resp := doGet(t, "/api/receipts/RCPT-20260830-9999")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestReceipt_InvalidID(t *testing.T) {
	resp := doGet(t, "/api/receipts/not-a-receipt-id")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReceipt_InvalidVariant(t *testing.T) {
	resp := doGet(t, "/api/receipts/RCPT-20260830-0001?variant=carbon_copy")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
