// Package printer defines the transport capability shared by the physical
// printer drivers and the failure taxonomy the orchestrator relies on.
package printer

import (
	"context"

	"github.com/go-faster/errors"
)

// Method names a concrete printer transport.
type Method string

const (
	MethodAuto      Method = "auto"
	MethodUSB       Method = "usb"
	MethodBluetooth Method = "bluetooth"
)

// Valid reports whether m is a recognized transport method.
func (m Method) Valid() bool {
	switch m {
	case MethodAuto, MethodUSB, MethodBluetooth:
		return true
	}
	return false
}

// Transport failure categories. Both drivers map their medium-specific
// failures onto these so the orchestrator needs no transport-specific
// branching beyond which driver to try.
var (
	// ErrUnavailable indicates the transport capability is absent on this
	// host (no adapter, no matching device).
	ErrUnavailable = errors.New("printer transport unavailable")
	// ErrPermissionDenied indicates the OS declined device access.
	ErrPermissionDenied = errors.New("printer access denied")
	// ErrNotConnected indicates a write was attempted without an open
	// connection.
	ErrNotConnected = errors.New("printer not connected")
	// ErrWriteTimeout indicates a write exceeded its deadline. The
	// connection is left in an indeterminate state and must be re-opened
	// before the stream can be resumed safely.
	ErrWriteTimeout = errors.New("printer write timeout")
	// ErrDeviceError indicates the device rejected or failed a transfer.
	ErrDeviceError = errors.New("printer device error")
	// ErrBusy indicates a concurrent write is in flight on this transport.
	ErrBusy = errors.New("printer busy")
)

// Recoverable reports whether err is a transport failure the orchestrator
// may retry after a disconnect/reconnect cycle.
func Recoverable(err error) bool {
	return errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrWriteTimeout) ||
		errors.Is(err, ErrDeviceError)
}

// Status describes the current connection state of one transport, for UI
// display only.
type Status struct {
	Connected  bool   `json:"connected"`
	DeviceName string `json:"deviceName,omitempty"`
}

// Transport is the capability implemented by the Bluetooth and USB drivers.
//
// At most one connection per transport is open at a time: Connect on an
// already-connected driver closes the existing connection first. Write calls
// on the same transport are serialized by the driver; a second write arriving
// while one is in flight fails fast with ErrBusy rather than interleaving
// bytes into the physical stream.
type Transport interface {
	// Connect opens the device. Fails with ErrUnavailable or
	// ErrPermissionDenied.
	Connect(ctx context.Context) error
	// Write delivers payload to the printer in order. Fails with
	// ErrNotConnected, ErrWriteTimeout, ErrDeviceError, or ErrBusy.
	Write(ctx context.Context, payload []byte) error
	// Disconnect closes the connection. Safe to call when not connected.
	Disconnect() error
	// Status reports the current connection state.
	Status() Status
}
