// Package bluetooth implements the printer transport over a BLE GATT
// service/characteristic pair, chunking writes to the link's MTU.
package bluetooth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	ble "tinygo.org/x/bluetooth"

	"github.com/lengolf/pos-print/internal/domain/printer"
)

// Defaults for common ESC/POS BLE printer modules.
const (
	// DefaultServiceUUID is the vendor print service advertised by most
	// ESC/POS BLE modules.
	DefaultServiceUUID = "000018f0-0000-1000-8000-00805f9b34fb"
	// DefaultCharacteristicUUID is the writable characteristic within it.
	DefaultCharacteristicUUID = "00002af1-0000-1000-8000-00805f9b34fb"

	// DefaultChunkSize keeps each characteristic write under the smallest
	// MTU negotiated in practice.
	DefaultChunkSize = 100

	DefaultWriteTimeout = 5 * time.Second
	DefaultScanTimeout  = 10 * time.Second
)

// Config holds the BLE driver settings.
type Config struct {
	// DeviceName optionally restricts scanning to advertisements with this
	// local name. Empty matches any device advertising the print service.
	DeviceName string

	ServiceUUID        string
	CharacteristicUUID string

	// ChunkSize is the maximum characteristic write size in bytes.
	ChunkSize int
	// WriteTimeout bounds each individual chunk write.
	WriteTimeout time.Duration
	// ScanTimeout bounds device discovery during Connect.
	ScanTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.ServiceUUID == "" {
		cfg.ServiceUUID = DefaultServiceUUID
	}
	if cfg.CharacteristicUUID == "" {
		cfg.CharacteristicUUID = DefaultCharacteristicUUID
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	return cfg
}

// Driver is the Bluetooth LE printer transport. At most one connection is
// open at a time; Connect on an open driver closes the previous connection
// first. Writes are serialized; a concurrent Write fails with ErrBusy.
type Driver struct {
	cfg     Config
	lg      *zap.Logger
	adapter *ble.Adapter

	// writing admits one Write at a time without blocking the loser.
	writing *semaphore.Weighted

	mu         sync.Mutex
	device     ble.Device
	char       characteristicWriter
	deviceName string
	connected  bool
}

var _ printer.Transport = (*Driver)(nil)

// NewDriver creates a BLE driver using the platform default adapter.
func NewDriver(cfg Config, lg *zap.Logger) *Driver {
	return &Driver{
		cfg:     cfg.withDefaults(),
		lg:      lg.Named("ble"),
		adapter: ble.DefaultAdapter,
		writing: semaphore.NewWeighted(1),
	}
}

// Connect scans for the configured print service, connects, and resolves the
// writable characteristic.
func (d *Driver) Connect(ctx context.Context) error {
	if err := d.Disconnect(); err != nil {
		d.lg.Warn("closing stale connection", zap.Error(err))
	}

	if err := d.adapter.Enable(); err != nil {
		return errors.Wrap(printer.ErrUnavailable, err.Error())
	}

	svcUUID, err := ble.ParseUUID(d.cfg.ServiceUUID)
	if err != nil {
		return errors.Wrap(err, "service uuid")
	}
	charUUID, err := ble.ParseUUID(d.cfg.CharacteristicUUID)
	if err != nil {
		return errors.Wrap(err, "characteristic uuid")
	}

	result, err := d.scan(ctx, svcUUID)
	if err != nil {
		return err
	}

	d.lg.Info("connecting",
		zap.String("device", result.LocalName()),
		zap.String("address", result.Address.String()),
	)

	device, err := d.adapter.Connect(result.Address, ble.ConnectionParams{})
	if err != nil {
		return mapConnectError(err)
	}

	char, err := resolveCharacteristic(device, svcUUID, charUUID)
	if err != nil {
		_ = device.Disconnect()
		return err
	}

	d.mu.Lock()
	d.device = device
	d.char = char
	d.deviceName = result.LocalName()
	d.connected = true
	d.mu.Unlock()
	return nil
}

// scan looks for an advertisement carrying the print service (and the
// configured device name, when set) until found, cancellation, or timeout.
func (d *Driver) scan(ctx context.Context, svcUUID ble.UUID) (ble.ScanResult, error) {
	found := make(chan ble.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		err := d.adapter.Scan(func(adapter *ble.Adapter, result ble.ScanResult) {
			if d.cfg.DeviceName != "" && result.LocalName() != d.cfg.DeviceName {
				return
			}
			if d.cfg.DeviceName == "" && !result.HasServiceUUID(svcUUID) {
				return
			}
			_ = adapter.StopScan()
			select {
			case found <- result:
			default:
			}
		})
		if err != nil {
			scanErr <- err
		}
	}()

	timer := time.NewTimer(d.cfg.ScanTimeout)
	defer timer.Stop()

	select {
	case result := <-found:
		return result, nil
	case err := <-scanErr:
		return ble.ScanResult{}, mapConnectError(err)
	case <-timer.C:
		_ = d.adapter.StopScan()
		return ble.ScanResult{}, errors.Wrap(printer.ErrUnavailable, "no printer found during scan")
	case <-ctx.Done():
		_ = d.adapter.StopScan()
		return ble.ScanResult{}, errors.Wrap(printer.ErrUnavailable, ctx.Err().Error())
	}
}

func resolveCharacteristic(device ble.Device, svcUUID, charUUID ble.UUID) (characteristicWriter, error) {
	services, err := device.DiscoverServices([]ble.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		return nil, errors.Wrap(printer.ErrUnavailable, "print service not exposed")
	}
	chars, err := services[0].DiscoverCharacteristics([]ble.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		return nil, errors.Wrap(printer.ErrUnavailable, "print characteristic not exposed")
	}
	return gattCharacteristic{chars[0]}, nil
}

// gattCharacteristic adapts a device characteristic to characteristicWriter.
// Writes go out without response; ordering is still preserved because each
// call completes before the next chunk is issued.
type gattCharacteristic struct {
	c ble.DeviceCharacteristic
}

func (g gattCharacteristic) Write(p []byte) (int, error) {
	return g.c.WriteWithoutResponse(p)
}

// mapConnectError folds platform errors into the shared taxonomy. Permission
// problems (rfkill, missing dbus policy) surface distinctly so the caller can
// re-prompt instead of blaming the hardware.
func mapConnectError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized") {
		return errors.Wrap(printer.ErrPermissionDenied, err.Error())
	}
	return errors.Wrap(printer.ErrUnavailable, err.Error())
}

// Write chunks payload to the print characteristic in order.
func (d *Driver) Write(ctx context.Context, payload []byte) error {
	if !d.writing.TryAcquire(1) {
		return printer.ErrBusy
	}
	defer d.writing.Release(1)

	d.mu.Lock()
	char := d.char
	connected := d.connected
	d.mu.Unlock()

	if !connected || char == nil {
		return printer.ErrNotConnected
	}

	cw := &chunkedWriter{w: char, size: d.cfg.ChunkSize, timeout: d.cfg.WriteTimeout}
	start := time.Now()
	if err := cw.WriteAll(ctx, payload); err != nil {
		return err
	}

	d.lg.Debug("payload written",
		zap.Int("bytes", len(payload)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Disconnect closes the device connection. Safe to call when not connected.
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	device := d.device
	connected := d.connected
	d.device = ble.Device{}
	d.char = nil
	d.deviceName = ""
	d.connected = false
	d.mu.Unlock()

	if !connected {
		return nil
	}
	if err := device.Disconnect(); err != nil {
		return errors.Wrap(printer.ErrDeviceError, err.Error())
	}
	return nil
}

// Status reports the current connection state.
func (d *Driver) Status() printer.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return printer.Status{Connected: d.connected, DeviceName: d.deviceName}
}
