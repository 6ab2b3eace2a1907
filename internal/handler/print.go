package handler

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-faster/jx"

	"github.com/lengolf/pos-print/internal/domain/printer"
	"github.com/lengolf/pos-print/internal/domain/receipt"
	"github.com/lengolf/pos-print/internal/printing"
)

type printRequest struct {
	DocumentID string `json:"documentId"`
	Variant    string `json:"variant"`
	Method     string `json:"method"`
}

type testPrintRequest struct {
	Method string `json:"method"`
}

// print handles POST /api/print.
func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	var req printRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, receipt.ErrInvalidID)
		return
	}

	res, err := h.svc.Print(r.Context(), printing.Request{
		DocumentID: req.DocumentID,
		Variant:    receipt.Variant(req.Variant),
		Method:     printer.Method(req.Method),
	})

	status := http.StatusOK
	if err != nil {
		status = errorStatus(err)
	}
	writeJSON(w, status, encodePrintResult(res, err))
}

// testPrint handles POST /api/print/test: the connectivity check that
// bypasses document resolution.
func (h *Handler) testPrint(w http.ResponseWriter, r *http.Request) {
	var req testPrintRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, printer.ErrUnavailable)
			return
		}
	}

	res, err := h.svc.TestPrint(r.Context(), printer.Method(req.Method))

	status := http.StatusOK
	if err != nil {
		status = errorStatus(err)
	}
	writeJSON(w, status, encodePrintResult(res, err))
}

// printerStatus handles GET /api/printer/status, for UI display only.
func (h *Handler) printerStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.svc.ConnectionStatus()

	methods := make([]string, 0, len(statuses))
	for m := range statuses {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)

	var e jx.Encoder
	e.ObjStart()
	for _, m := range methods {
		st := statuses[printer.Method(m)]
		e.FieldStart(m)
		e.ObjStart()
		e.FieldStart("connected")
		e.Bool(st.Connected)
		if st.DeviceName != "" {
			e.FieldStart("deviceName")
			e.Str(st.DeviceName)
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
