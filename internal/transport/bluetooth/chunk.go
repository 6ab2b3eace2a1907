package bluetooth

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/lengolf/pos-print/internal/domain/printer"
)

// characteristicWriter is the write half of a GATT characteristic. The real
// driver backs it with a BLE device characteristic; tests back it with a fake.
type characteristicWriter interface {
	Write(p []byte) (int, error)
}

// chunkedWriter delivers a payload as sequential MTU-sized characteristic
// writes. Ordering is the whole point: each write must complete before the
// next is issued, or the printer receives a scrambled command stream.
type chunkedWriter struct {
	w       characteristicWriter
	size    int
	timeout time.Duration
}

// WriteAll writes payload in order, one chunk at a time. Each chunk carries
// its own deadline; exceeding it surfaces as ErrWriteTimeout with the stream
// in an indeterminate state. Cancellation is only observed between chunks, so
// an abandoned call may still have reached the printer.
func (c *chunkedWriter) WriteAll(ctx context.Context, payload []byte) error {
	for offset := 0; offset < len(payload); offset += c.size {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(printer.ErrDeviceError, err.Error())
		}

		end := offset + c.size
		if end > len(payload) {
			end = len(payload)
		}
		if err := c.writeChunk(payload[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

// writeChunk performs one characteristic write bounded by the per-chunk
// timeout. The underlying GATT API has no cancellation, so a timed-out write
// is abandoned, not aborted.
func (c *chunkedWriter) writeChunk(chunk []byte) error {
	done := make(chan error, 1)
	go func() {
		n, err := c.w.Write(chunk)
		if err == nil && n != len(chunk) {
			err = errors.Errorf("short write: %d of %d bytes", n, len(chunk))
		}
		done <- err
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(printer.ErrDeviceError, err.Error())
		}
		return nil
	case <-timer.C:
		return printer.ErrWriteTimeout
	}
}
