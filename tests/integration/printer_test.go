//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestPrinterStatus(t *testing.T) {
	resp := doGet(t, "/api/printer/status")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[map[string]transportStatus](t, resp)
	usb, ok := body["usb"]
	if !ok {
		t.Fatal("usb transport missing from status")
	}
	if usb.Connected {
		t.Error("usb reports connected inside the container")
	}
	if _, ok := body["bluetooth"]; !ok {
		t.Fatal("bluetooth transport missing from status")
	}
}

// No printer hardware exists inside the container, so delivery must fail
// with a transport error while resolution and encoding still happen.
func TestPrint_NoHardware(t *testing.T) {
	resp := doPost(t, "/api/print", printRequest{
		DocumentID: "RCPT-20260830-0001",
		Variant:    "tax_invoice_abb",
		Method:     "usb",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	body := decodeJSON[printResponse](t, resp)
	if body.Success {
		t.Error("success reported without a printer")
	}
	if body.Error == nil || body.Error.Code != "transport_unavailable" {
		t.Errorf("error: got %+v, want transport_unavailable", body.Error)
	}
	if body.JobID == "" {
		t.Error("jobId missing")
	}
}

func TestPrint_UnknownDocument(t *testing.T) {
	resp := doPost(t, "/api/print", printRequest{
		DocumentID: "RCPT-20260830-9999",
		Variant:    "bill",
		Method:     "usb",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPrint_InvalidVariant(t *testing.T) {
	resp := doPost(t, "/api/print", printRequest{
		DocumentID: "RCPT-20260830-0001",
		Variant:    "duplicate",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
