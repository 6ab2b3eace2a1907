// Package handler exposes the print orchestrator over a small JSON API.
package handler

import (
	"net/http"

	"github.com/lengolf/pos-print/internal/printing"
)

// Handler serves the print endpoints, delegating to the orchestrator.
type Handler struct {
	svc *printing.Service
}

// NewHandler constructs a Handler around the print orchestrator.
func NewHandler(svc *printing.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts all print routes on mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/print", h.print)
	mux.HandleFunc("POST /api/print/test", h.testPrint)
	mux.HandleFunc("GET /api/printer/status", h.printerStatus)
	mux.HandleFunc("GET /api/receipts/{id}", h.receipt)
}
