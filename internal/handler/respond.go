package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/lengolf/pos-print/internal/domain/printer"
	"github.com/lengolf/pos-print/internal/domain/receipt"
	"github.com/lengolf/pos-print/internal/printing"
)

// writeJSON sends the encoder's buffer with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// errorStatus maps domain and transport failures to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, receipt.ErrInvalidID), errors.Is(err, receipt.ErrInvalidVariant):
		return http.StatusBadRequest
	case errors.Is(err, receipt.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, printer.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, printer.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, printer.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, printer.ErrWriteTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, printer.ErrNotConnected), errors.Is(err, printer.ErrDeviceError):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the stable machine-readable failure category for UI callers.
func errorCode(err error) string {
	switch {
	case errors.Is(err, receipt.ErrInvalidID), errors.Is(err, receipt.ErrInvalidVariant):
		return "invalid"
	case errors.Is(err, receipt.ErrNotFound):
		return "not_found"
	case errors.Is(err, printer.ErrBusy):
		return "busy"
	case errors.Is(err, printer.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, printer.ErrUnavailable):
		return "transport_unavailable"
	case errors.Is(err, printer.ErrWriteTimeout):
		return "write_timeout"
	case errors.Is(err, printer.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, printer.ErrDeviceError):
		return "device_error"
	default:
		return "internal"
	}
}

// writeError sends a structured error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(errorCode(err))
	e.FieldStart("message")
	e.Str(err.Error())
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// encodePrintResult serializes a printing.Result, attaching the error (when
// any) so the UI can distinguish "nothing was printed" from "printing may
// have partially occurred".
func encodePrintResult(res printing.Result, err error) *jx.Encoder {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("jobId")
	e.Str(res.JobID)
	e.FieldStart("success")
	e.Bool(res.Success)
	if res.Transport != "" {
		e.FieldStart("transport")
		e.Str(string(res.Transport))
	}
	e.FieldStart("partialWrite")
	e.Bool(res.PartialWrite)
	if err != nil {
		e.FieldStart("error")
		e.ObjStart()
		e.FieldStart("code")
		e.Str(errorCode(err))
		e.FieldStart("message")
		e.Str(err.Error())
		e.ObjEnd()
	}
	e.ObjEnd()
	return &e
}
