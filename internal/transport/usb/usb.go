// Package usb implements the printer transport over a USB bulk OUT endpoint.
package usb

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/gousb"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/lengolf/pos-print/internal/domain/printer"
)

// DefaultWriteTimeout bounds the bulk transfer for one print job.
const DefaultWriteTimeout = 8 * time.Second

// Config holds the USB driver settings.
type Config struct {
	// VendorID and ProductID select the printer device.
	VendorID  uint16
	ProductID uint16
	// WriteTimeout bounds the bulk OUT transfer.
	WriteTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return cfg
}

// Driver is the USB printer transport. Unlike the BLE driver it needs no
// chunking: the bulk-transfer primitive handles packetization. It still
// surfaces transfer failures distinctly from connection failures.
type Driver struct {
	cfg Config
	lg  *zap.Logger

	writing *semaphore.Weighted

	mu         sync.Mutex
	usbCtx     *gousb.Context
	device     *gousb.Device
	intfDone   func()
	out        *gousb.OutEndpoint
	deviceName string
	connected  bool
}

var _ printer.Transport = (*Driver)(nil)

// NewDriver creates a USB driver for the configured vendor/product pair.
func NewDriver(cfg Config, lg *zap.Logger) *Driver {
	return &Driver{
		cfg:     cfg.withDefaults(),
		lg:      lg.Named("usb"),
		writing: semaphore.NewWeighted(1),
	}
}

// Connect opens the device, claims the default interface, and resolves the
// first bulk OUT endpoint.
func (d *Driver) Connect(ctx context.Context) error {
	if err := d.Disconnect(); err != nil {
		d.lg.Warn("closing stale connection", zap.Error(err))
	}

	usbCtx := gousb.NewContext()

	device, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(d.cfg.VendorID), gousb.ID(d.cfg.ProductID))
	if err != nil {
		usbCtx.Close()
		return mapOpenError(err)
	}
	if device == nil {
		usbCtx.Close()
		return errors.Wrapf(printer.ErrUnavailable,
			"no device %04x:%04x", d.cfg.VendorID, d.cfg.ProductID)
	}

	// The kernel usblp driver usually holds the interface; detach it so we
	// can claim it ourselves.
	if err := device.SetAutoDetach(true); err != nil {
		d.lg.Warn("auto-detach not supported", zap.Error(err))
	}

	intf, done, err := device.DefaultInterface()
	if err != nil {
		_ = device.Close()
		usbCtx.Close()
		return mapOpenError(err)
	}

	out, err := bulkOutEndpoint(intf)
	if err != nil {
		done()
		_ = device.Close()
		usbCtx.Close()
		return err
	}

	name := describeDevice(device)
	d.lg.Info("connected", zap.String("device", name))

	d.mu.Lock()
	d.usbCtx = usbCtx
	d.device = device
	d.intfDone = done
	d.out = out
	d.deviceName = name
	d.connected = true
	d.mu.Unlock()
	return nil
}

// bulkOutEndpoint finds the first bulk OUT endpoint on the claimed interface.
func bulkOutEndpoint(intf *gousb.Interface) (*gousb.OutEndpoint, error) {
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk {
			out, err := intf.OutEndpoint(ep.Number)
			if err != nil {
				return nil, errors.Wrap(printer.ErrDeviceError, err.Error())
			}
			return out, nil
		}
	}
	return nil, errors.Wrap(printer.ErrUnavailable, "no bulk OUT endpoint")
}

func describeDevice(device *gousb.Device) string {
	manufacturer, _ := device.Manufacturer()
	product, _ := device.Product()
	name := strings.TrimSpace(manufacturer + " " + product)
	if name == "" {
		name = device.Desc.Vendor.String() + ":" + device.Desc.Product.String()
	}
	return name
}

// mapOpenError folds libusb errors into the shared taxonomy. Access failures
// (udev rules, privileges) surface as permission denials.
func mapOpenError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access") || strings.Contains(msg, "permission") {
		return errors.Wrap(printer.ErrPermissionDenied, err.Error())
	}
	return errors.Wrap(printer.ErrUnavailable, err.Error())
}

// Write performs one bulk transfer of the whole payload.
func (d *Driver) Write(ctx context.Context, payload []byte) error {
	if !d.writing.TryAcquire(1) {
		return printer.ErrBusy
	}
	defer d.writing.Release(1)

	d.mu.Lock()
	out := d.out
	connected := d.connected
	d.mu.Unlock()

	if !connected || out == nil {
		return printer.ErrNotConnected
	}

	writeCtx, cancel := context.WithTimeout(ctx, d.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	n, err := out.WriteContext(writeCtx, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(writeCtx.Err(), context.DeadlineExceeded) {
			return printer.ErrWriteTimeout
		}
		return errors.Wrap(printer.ErrDeviceError, err.Error())
	}
	if n != len(payload) {
		return errors.Wrapf(printer.ErrDeviceError, "short bulk transfer: %d of %d bytes", n, len(payload))
	}

	d.lg.Debug("payload written",
		zap.Int("bytes", n),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Disconnect releases the interface and closes the device. Safe to call when
// not connected.
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	device := d.device
	usbCtx := d.usbCtx
	done := d.intfDone
	connected := d.connected
	d.usbCtx = nil
	d.device = nil
	d.intfDone = nil
	d.out = nil
	d.deviceName = ""
	d.connected = false
	d.mu.Unlock()

	if !connected {
		return nil
	}
	if done != nil {
		done()
	}
	var closeErr error
	if device != nil {
		closeErr = device.Close()
	}
	if usbCtx != nil {
		if err := usbCtx.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	if closeErr != nil {
		return errors.Wrap(printer.ErrDeviceError, closeErr.Error())
	}
	return nil
}

// Status reports the current connection state.
func (d *Driver) Status() printer.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return printer.Status{Connected: d.connected, DeviceName: d.deviceName}
}
