package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/busctx"
)

// MaxBlockSize is the largest SMBus block payload.
const MaxBlockSize = 32

// Txer is a combined write/read I2C transaction. A non-empty w followed by a
// non-empty r is issued with a repeated START between them.
//
// Both periph.io i2c.Bus and tinygo drivers.I2C satisfy it.
type Txer interface {
	Tx(addr uint16, w, r []byte) error
}

// ContextTxer is implemented by bridges that can use the request context,
// e.g. for verbose frame dumps.
type ContextTxer interface {
	TxContext(ctx context.Context, addr uint16, w, r []byte) error
}

var _ pmbus.Transport = &Bus{}
var _ pmbus.Addressable = &Bus{}

type Config struct {
	Address byte
	Logger  *slog.Logger
}

type Option func(*Config)

func WithAddress(address byte) Option {
	return func(c *Config) {
		c.Address = address
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Bus frames SMBus transactions on top of a Txer. It is safe for concurrent
// use; transactions are serialized.
type Bus struct {
	mx      sync.Mutex
	tx      Txer
	address byte
	log     *slog.Logger
}

func NewBus(tx Txer, opts ...Option) *Bus {
	config := &Config{
		Address: pmbus.DefaultAddress,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Bus{
		tx:      tx,
		address: config.Address,
		log:     config.Logger,
	}
}

func (b *Bus) Address() byte {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.address
}

func (b *Bus) SetAddress(address byte) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.address = address
}

func (b *Bus) SendByte(ctx context.Context, cmd byte) error {
	return b.transact(ctx, "send byte", []byte{cmd}, nil)
}

func (b *Bus) WriteByte(ctx context.Context, cmd byte, data byte) error {
	return b.transact(ctx, "write byte", []byte{cmd, data}, nil)
}

func (b *Bus) WriteWord(ctx context.Context, cmd byte, data uint16) error {
	return b.transact(ctx, "write word", []byte{cmd, byte(data), byte(data >> 8)}, nil)
}

func (b *Bus) ReadByte(ctx context.Context, cmd byte) (byte, error) {
	r := make([]byte, 1)
	err := b.transact(ctx, "read byte", []byte{cmd}, r)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (b *Bus) ReadWord(ctx context.Context, cmd byte) (uint16, error) {
	r := make([]byte, 2)
	err := b.transact(ctx, "read word", []byte{cmd}, r)
	if err != nil {
		return 0, err
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

// ReadBlock reads the count byte and a full MaxBlockSize payload; plain I2C
// adapters cannot stop after a length learned mid-transfer.
func (b *Bus) ReadBlock(ctx context.Context, cmd byte, buf []byte) (int, error) {
	if buf == nil {
		return 0, fmt.Errorf("i2c: read block %#02x: nil buffer: %w", cmd, pmbus.ErrInvalidArgument)
	}
	r := make([]byte, MaxBlockSize+1)
	err := b.transact(ctx, "read block", []byte{cmd}, r)
	if err != nil {
		return 0, err
	}
	return copyBlock(buf, r), nil
}

// copyBlock copies the payload of a length-prefixed block into buf and
// returns the number of bytes copied.
func copyBlock(buf, block []byte) int {
	if len(block) == 0 {
		return 0
	}
	count := min(int(block[0]), len(block)-1)
	return copy(buf, block[1:1+count])
}

func (b *Bus) transact(ctx context.Context, op string, w, r []byte) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("i2c: %s %#02x: %w", op, w[0], err)
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	busctx.Dump(ctx, b.log, "i2c write", w)
	if ctxTx, ok := b.tx.(ContextTxer); ok {
		err = ctxTx.TxContext(ctx, uint16(b.address), w, r)
	} else {
		err = b.tx.Tx(uint16(b.address), w, r)
	}
	if err != nil {
		return fmt.Errorf("i2c: %s %#02x at %#02x: %w", op, w[0], b.address, err)
	}
	if len(r) > 0 {
		busctx.Dump(ctx, b.log, "i2c read", r)
	}
	return nil
}
