// Package printing orchestrates the print pipeline: transport selection,
// document resolution, encoding, and delivery.
package printing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lengolf/pos-print/internal/domain/printer"
	"github.com/lengolf/pos-print/internal/domain/receipt"
	"github.com/lengolf/pos-print/internal/escpos"
)

// maxWriteAttempts bounds automatic transport retries. Only transport-layer
// failures are retried; resolution and encoding are deterministic, so
// retrying them would reproduce the same failure.
const maxWriteAttempts = 2

// Request describes one print job.
type Request struct {
	DocumentID string
	Variant    receipt.Variant
	// Method selects the transport. MethodAuto applies the platform
	// heuristic; an explicit method is always honored without fallback.
	Method printer.Method
}

// Result is the uniform outcome reported for every print attempt.
type Result struct {
	JobID     string
	Success   bool
	Transport printer.Method
	// PartialWrite is set only when a write timed out mid-stream: the
	// printer may have produced part of the document. Callers must word
	// their failure message accordingly instead of implying a clean failure.
	PartialWrite bool
}

// Service is the print orchestrator. It owns no connection state itself;
// each transport driver owns its own.
type Service struct {
	agg        *receipt.Aggregator
	enc        *escpos.Encoder
	transports map[printer.Method]printer.Transport
	preferUSB  bool
	lg         *zap.Logger
}

// NewService creates the orchestrator. transports maps each available
// concrete method (usb, bluetooth) to its driver; absent capabilities are
// simply not registered. preferUSB tunes the auto heuristic for fixed
// desktop-class hosts with a cabled printer.
func NewService(
	agg *receipt.Aggregator,
	enc *escpos.Encoder,
	transports map[printer.Method]printer.Transport,
	preferUSB bool,
	lg *zap.Logger,
) *Service {
	return &Service{
		agg:        agg,
		enc:        enc,
		transports: transports,
		preferUSB:  preferUSB,
		lg:         lg.Named("printing"),
	}
}

// Print resolves, encodes, and delivers one document. The returned Result is
// populated even on failure so callers can see which transport was targeted
// and whether bytes may have reached the paper.
//
// Print does not deduplicate: two calls with the same arguments produce two
// physically identical jobs. In-flight guarding is a caller concern.
func (s *Service) Print(ctx context.Context, req Request) (Result, error) {
	res := Result{JobID: uuid.New().String()}

	method, transport, err := s.selectTransport(req.Method)
	if err != nil {
		return res, err
	}
	res.Transport = method

	doc, err := s.agg.Resolve(ctx, req.DocumentID, req.Variant)
	if err != nil {
		var dataErr *receipt.InconsistentDataError
		if errors.As(err, &dataErr) {
			// Upstream data bug, not a caller mistake. Logged distinctly.
			s.lg.Error("inconsistent transaction data",
				zap.String("document_id", dataErr.DocumentID),
				zap.String("reason", dataErr.Reason),
			)
		}
		return res, err
	}

	payload := s.enc.Encode(doc)
	return s.deliver(ctx, res, transport, payload)
}

// TestPrint sends the fixed connectivity pattern, skipping document
// resolution entirely.
func (s *Service) TestPrint(ctx context.Context, method printer.Method) (Result, error) {
	res := Result{JobID: uuid.New().String()}

	chosen, transport, err := s.selectTransport(method)
	if err != nil {
		return res, err
	}
	res.Transport = chosen

	return s.deliver(ctx, res, transport, s.enc.TestPattern())
}

// Document resolves a receipt without printing, for on-screen use.
func (s *Service) Document(ctx context.Context, id string, variant receipt.Variant) (*receipt.Document, error) {
	return s.agg.Resolve(ctx, id, variant)
}

// PreviewText renders the human-readable equivalent of the printed document.
func (s *Service) PreviewText(doc *receipt.Document) string {
	return s.enc.Preview(doc)
}

// ConnectionStatus reports per-transport connection state for UI display.
func (s *Service) ConnectionStatus() map[printer.Method]printer.Status {
	statuses := make(map[printer.Method]printer.Status, len(s.transports))
	for method, t := range s.transports {
		statuses[method] = t.Status()
	}
	return statuses
}

// selectTransport applies the selection algorithm: explicit methods are used
// directly; auto prefers an already-connected USB printer on hosts configured
// for it, then Bluetooth, then USB. There is never an automatic cross-
// transport fallback on failure, since that would hide a printer
// configuration problem from the operator.
func (s *Service) selectTransport(method printer.Method) (printer.Method, printer.Transport, error) {
	if method == "" {
		method = printer.MethodAuto
	}
	if !method.Valid() {
		return method, nil, errors.Wrapf(printer.ErrUnavailable, "unknown method %q", method)
	}

	if method != printer.MethodAuto {
		t, ok := s.transports[method]
		if !ok {
			return method, nil, errors.Wrapf(printer.ErrUnavailable, "%s transport not present", method)
		}
		return method, t, nil
	}

	usb, hasUSB := s.transports[printer.MethodUSB]
	bt, hasBT := s.transports[printer.MethodBluetooth]

	if s.preferUSB && hasUSB && usb.Status().Connected {
		return printer.MethodUSB, usb, nil
	}
	if hasBT {
		return printer.MethodBluetooth, bt, nil
	}
	if hasUSB {
		return printer.MethodUSB, usb, nil
	}
	return printer.MethodAuto, nil, errors.Wrap(printer.ErrUnavailable, "no transport registered")
}

// deliver ensures the transport is connected and writes payload, retrying
// recoverable transport failures a bounded number of times with a full
// disconnect/reconnect cycle in between. A timed-out write always forces a
// disconnect: the stream state is indeterminate and must not be resumed.
func (s *Service) deliver(ctx context.Context, res Result, transport printer.Transport, payload []byte) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if !transport.Status().Connected {
			if err := transport.Connect(ctx); err != nil {
				return res, err
			}
		}

		err := transport.Write(ctx, payload)
		if err == nil {
			res.Success = true
			s.lg.Info("printed",
				zap.String("job_id", res.JobID),
				zap.String("transport", string(res.Transport)),
				zap.Int("bytes", len(payload)),
				zap.Int("attempt", attempt),
			)
			return res, nil
		}
		lastErr = err

		if errors.Is(err, printer.ErrWriteTimeout) {
			res.PartialWrite = true
			if derr := transport.Disconnect(); derr != nil {
				s.lg.Warn("disconnect after timeout", zap.Error(derr))
			}
		}
		if !printer.Recoverable(err) {
			return res, err
		}

		s.lg.Warn("transport write failed",
			zap.String("job_id", res.JobID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < maxWriteAttempts && !errors.Is(err, printer.ErrWriteTimeout) {
			if derr := transport.Disconnect(); derr != nil {
				s.lg.Warn("disconnect before retry", zap.Error(derr))
			}
		}
	}
	return res, lastErr
}
