package usb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lengolf/pos-print/internal/domain/printer"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := (&Config{}).withDefaults()
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)

	cfg = (&Config{WriteTimeout: time.Second}).withDefaults()
	assert.Equal(t, time.Second, cfg.WriteTimeout)
}

func TestMapOpenError(t *testing.T) {
	assert.ErrorIs(t, mapOpenError(assert.AnError), printer.ErrUnavailable)
	assert.ErrorIs(t, mapOpenError(&accessError{}), printer.ErrPermissionDenied)
}

type accessError struct{}

func (*accessError) Error() string { return "libusb: bad access [code -3]" }

func TestWrite_NotConnected(t *testing.T) {
	d := NewDriver(Config{VendorID: 0x04b8, ProductID: 0x0e15}, zap.NewNop())

	err := d.Write(context.Background(), []byte{0x1B, 0x40})
	require.ErrorIs(t, err, printer.ErrNotConnected)
}

func TestDisconnect_Idempotent(t *testing.T) {
	d := NewDriver(Config{}, zap.NewNop())

	assert.NoError(t, d.Disconnect())
	assert.NoError(t, d.Disconnect())
	assert.False(t, d.Status().Connected)
}
