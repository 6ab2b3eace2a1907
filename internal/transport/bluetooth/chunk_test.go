package bluetooth

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lengolf/pos-print/internal/domain/printer"
)

// fakeCharacteristic records every write it receives, in order.
type fakeCharacteristic struct {
	writes [][]byte
	delay  time.Duration
	err    error
}

func (f *fakeCharacteristic) Write(p []byte) (int, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return 0, f.err
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	f.writes = append(f.writes, chunk)
	return len(p), nil
}

func payload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

func TestWriteAll_ChunkBoundaries(t *testing.T) {
	const size = 100

	tests := []struct {
		name       string
		length     int
		wantChunks int
	}{
		{"one byte below boundary", size - 1, 1},
		{"exactly one chunk", size, 1},
		{"one byte above boundary", size + 1, 2},
		{"empty payload", 0, 0},
		{"several chunks", 3*size + 7, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCharacteristic{}
			cw := &chunkedWriter{w: fake, size: size, timeout: time.Second}
			in := payload(tt.length)

			require.NoError(t, cw.WriteAll(context.Background(), in))
			require.Len(t, fake.writes, tt.wantChunks)

			// Concatenation of ordered chunks reproduces the payload exactly.
			assert.True(t, bytes.Equal(in, bytes.Join(fake.writes, nil)))

			// Every chunk except the last is full-sized.
			for i, chunk := range fake.writes {
				if i < len(fake.writes)-1 {
					assert.Len(t, chunk, size, "chunk %d", i)
				} else {
					assert.LessOrEqual(t, len(chunk), size)
				}
			}
		})
	}
}

func TestWriteAll_Timeout(t *testing.T) {
	fake := &fakeCharacteristic{delay: 50 * time.Millisecond}
	cw := &chunkedWriter{w: fake, size: 8, timeout: 5 * time.Millisecond}

	err := cw.WriteAll(context.Background(), payload(16))
	require.ErrorIs(t, err, printer.ErrWriteTimeout)
}

func TestWriteAll_DeviceError(t *testing.T) {
	fake := &fakeCharacteristic{err: assert.AnError}
	cw := &chunkedWriter{w: fake, size: 8, timeout: time.Second}

	err := cw.WriteAll(context.Background(), payload(4))
	require.ErrorIs(t, err, printer.ErrDeviceError)
}

func TestWriteAll_ShortWriteIsDeviceError(t *testing.T) {
	short := &shortCharacteristic{}
	cw := &chunkedWriter{w: short, size: 8, timeout: time.Second}

	err := cw.WriteAll(context.Background(), payload(8))
	require.ErrorIs(t, err, printer.ErrDeviceError)
}

type shortCharacteristic struct{}

func (s *shortCharacteristic) Write(p []byte) (int, error) {
	return len(p) - 1, nil
}

func TestWriteAll_CancelledBetweenChunks(t *testing.T) {
	fake := &fakeCharacteristic{}
	cw := &chunkedWriter{w: fake, size: 8, timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cw.WriteAll(ctx, payload(16))
	require.Error(t, err)
	assert.Empty(t, fake.writes, "no chunk may start after cancellation")
}

func TestDriver_WriteNotConnected(t *testing.T) {
	d := NewDriver(Config{}, testLogger())

	err := d.Write(context.Background(), payload(4))
	require.ErrorIs(t, err, printer.ErrNotConnected)
}

func TestDriver_WriteBusy(t *testing.T) {
	d := NewDriver(Config{ChunkSize: 4, WriteTimeout: time.Second}, testLogger())
	slow := &fakeCharacteristic{delay: 100 * time.Millisecond}
	d.mu.Lock()
	d.char = slow
	d.connected = true
	d.deviceName = "TestPrinter"
	d.mu.Unlock()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- d.Write(context.Background(), payload(8))
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	err := d.Write(context.Background(), payload(4))
	require.ErrorIs(t, err, printer.ErrBusy)

	require.NoError(t, <-done)
	assert.True(t, d.Status().Connected)
	assert.Equal(t, "TestPrinter", d.Status().DeviceName)
}
