package pmbus

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned when a transaction is attempted on a bus
	// that has not been initialized (or was closed).
	ErrNotInitialized = errors.New("bus not initialized")
	// ErrInvalidArgument reports a precondition violation such as a nil
	// output buffer.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTimeout is returned when the hardware did not reach the expected
	// state within the per-phase budget.
	ErrTimeout = errors.New("timeout")
	// ErrNack is returned when the device rejected the address or a byte.
	ErrNack = errors.New("nack")
)

// Transport is the set of SMBus transactions PMBus commands are built from.
//
// Every call either completes with valid output or fails; outputs returned
// alongside an error are zero values and must not be used.
type Transport interface {
	// SendByte sends a bare command code (no data), e.g. CLEAR_FAULTS.
	SendByte(ctx context.Context, cmd byte) error
	WriteByte(ctx context.Context, cmd byte, data byte) error
	// WriteWord writes data little-endian after the command code.
	WriteWord(ctx context.Context, cmd byte, data uint16) error
	ReadByte(ctx context.Context, cmd byte) (byte, error)
	// ReadWord reads a little-endian word.
	ReadWord(ctx context.Context, cmd byte) (uint16, error)
	// ReadBlock reads a length-prefixed block. At most len(buf) bytes are
	// copied; the number of copied bytes is returned.
	ReadBlock(ctx context.Context, cmd byte, buf []byte) (int, error)
}

// Addressable is implemented by transports bound to a single target device.
type Addressable interface {
	Address() byte
	SetAddress(address byte)
}

// DefaultAddress is the factory address of the supported supply modules.
const DefaultAddress byte = 0x5A
