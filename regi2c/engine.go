package regi2c

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/pmbus"
)

// DefaultTiming is the TIMINGR value for 100 kHz with a 250 MHz kernel clock.
const DefaultTiming uint32 = 0x40B285C2

// DefaultTimeout bounds every single wait phase of a transaction.
const DefaultTimeout = 100 * time.Millisecond

var _ pmbus.Transport = &Engine{}
var _ pmbus.Addressable = &Engine{}

// Phase is the position of the engine inside a transaction.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStartIssued
	PhaseData
	PhaseCommandWrite
	PhaseRepeatedStart
	PhaseRead
	PhaseStopWait
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStartIssued:
		return "start"
	case PhaseData:
		return "data"
	case PhaseCommandWrite:
		return "command"
	case PhaseRepeatedStart:
		return "restart"
	case PhaseRead:
		return "read"
	case PhaseStopWait:
		return "stop"
	default:
		return "unknown"
	}
}

type Config struct {
	Address byte
	Timing  uint32
	Timeout time.Duration
	Clock   Clock
	Logger  *slog.Logger
}

type Option func(*Config)

func WithAddress(address byte) Option {
	return func(c *Config) {
		c.Address = address
	}
}

func WithTiming(timing uint32) Option {
	return func(c *Config) {
		c.Timing = timing
	}
}

// WithTimeout sets the per-phase timeout. It is applied with millisecond
// resolution.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func WithClock(clock Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Engine runs PMBus transactions on a register-level I2C master. It is a bus
// session: one Engine per physical bus, used by one caller at a time. Engine
// does no locking.
type Engine struct {
	periph      Peripheral
	clock       Clock
	log         *slog.Logger
	address     byte
	timing      uint32
	timeoutMS   uint32
	initialized bool
	phase       Phase
}

func NewEngine(periph Peripheral, opts ...Option) *Engine {
	config := &Config{
		Address: pmbus.DefaultAddress,
		Timing:  DefaultTiming,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.Clock == nil {
		config.Clock = NewSystemClock()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Engine{
		periph:    periph,
		clock:     config.Clock,
		log:       config.Logger,
		address:   config.Address,
		timing:    config.Timing,
		timeoutMS: uint32(config.Timeout.Milliseconds()),
	}
}

// Init enables the peripheral. Calling Init on an initialized engine is a
// no-op.
func (e *Engine) Init() error {
	if e.initialized {
		return nil
	}
	err := e.periph.Enable(e.timing)
	if err != nil {
		return fmt.Errorf("regi2c: could not enable peripheral: %w", err)
	}
	e.initialized = true
	e.phase = PhaseIdle
	e.log.Debug("i2c master enabled", "timing", fmt.Sprintf("%#08x", e.timing), "address", fmt.Sprintf("%#02x", e.address))
	return nil
}

// Close disables the peripheral. Calling Close on a closed engine is a no-op.
func (e *Engine) Close() error {
	if !e.initialized {
		return nil
	}
	err := e.periph.Disable()
	if err != nil {
		return fmt.Errorf("regi2c: could not disable peripheral: %w", err)
	}
	e.initialized = false
	e.log.Debug("i2c master disabled")
	return nil
}

func (e *Engine) Initialized() bool {
	return e.initialized
}

func (e *Engine) Address() byte {
	return e.address
}

func (e *Engine) SetAddress(address byte) {
	e.address = address
}

// Phase returns the current transaction phase; PhaseIdle between
// transactions.
func (e *Engine) Phase() Phase {
	return e.phase
}

func (e *Engine) SendByte(ctx context.Context, cmd byte) error {
	return e.write(ctx, "send byte", []byte{cmd})
}

func (e *Engine) WriteByte(ctx context.Context, cmd byte, data byte) error {
	return e.write(ctx, "write byte", []byte{cmd, data})
}

func (e *Engine) WriteWord(ctx context.Context, cmd byte, data uint16) error {
	return e.write(ctx, "write word", []byte{cmd, byte(data), byte(data >> 8)})
}

func (e *Engine) ReadByte(ctx context.Context, cmd byte) (byte, error) {
	const op = "read byte"
	var data byte
	err := e.read(ctx, op, cmd, 1, func(_ int, b byte) {
		data = b
	})
	if err != nil {
		return 0, err
	}
	return data, nil
}

func (e *Engine) ReadWord(ctx context.Context, cmd byte) (uint16, error) {
	const op = "read word"
	var data [2]byte
	err := e.read(ctx, op, cmd, 2, func(i int, b byte) {
		data[i] = b
	})
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

// ReadBlock reads a length-prefixed block into buf. The whole block the
// device advertises is clocked off the bus; only the first len(buf) bytes are
// kept.
func (e *Engine) ReadBlock(ctx context.Context, cmd byte, buf []byte) (int, error) {
	const op = "read block"
	if buf == nil {
		return 0, fmt.Errorf("regi2c: %s %#02x: nil buffer: %w", op, cmd, pmbus.ErrInvalidArgument)
	}
	err := e.begin(ctx, op, cmd)
	if err != nil {
		return 0, err
	}
	err = e.writeCommand(cmd)
	if err != nil {
		return 0, e.fail(op, cmd, err)
	}
	var count byte
	err = e.receive(1, false, func(_ int, b byte) {
		count = b
	})
	if err != nil {
		return 0, e.fail(op, cmd, err)
	}
	err = e.waitTransferComplete()
	if err != nil {
		return 0, e.fail(op, cmd, err)
	}
	if count == 0 {
		e.phase = PhaseStopWait
		e.periph.GenerateStop()
		err = e.waitStop()
		if err != nil {
			return 0, e.fail(op, cmd, err)
		}
		e.done(op, cmd)
		return 0, nil
	}
	err = e.receive(int(count), true, func(i int, b byte) {
		if i < len(buf) {
			buf[i] = b
		}
	})
	if err != nil {
		return 0, e.fail(op, cmd, err)
	}
	err = e.stop()
	if err != nil {
		return 0, e.fail(op, cmd, err)
	}
	e.done(op, cmd)
	return min(int(count), len(buf)), nil
}

func (e *Engine) begin(ctx context.Context, op string, cmd byte) error {
	if !e.initialized {
		return fmt.Errorf("regi2c: %s %#02x: %w", op, cmd, pmbus.ErrNotInitialized)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("regi2c: %s %#02x: %w", op, cmd, err)
	}
	return nil
}

// write runs START, address+W, payload, AUTOEND STOP.
func (e *Engine) write(ctx context.Context, op string, payload []byte) error {
	cmd := payload[0]
	err := e.begin(ctx, op, cmd)
	if err != nil {
		return err
	}
	e.issue(PhaseStartIssued, Control{
		Address: e.address,
		NBytes:  byte(len(payload)),
		AutoEnd: true,
		Start:   true,
	})
	for _, b := range payload {
		err = e.waitTxEmpty()
		if err != nil {
			return e.fail(op, cmd, err)
		}
		e.periph.WriteData(b)
		e.phase = PhaseData
	}
	err = e.stop()
	if err != nil {
		return e.fail(op, cmd, err)
	}
	e.done(op, cmd)
	return nil
}

// read runs the command phase followed by a repeated START reading n bytes
// with AUTOEND.
func (e *Engine) read(ctx context.Context, op string, cmd byte, n int, sink func(int, byte)) error {
	err := e.begin(ctx, op, cmd)
	if err != nil {
		return err
	}
	err = e.writeCommand(cmd)
	if err != nil {
		return e.fail(op, cmd, err)
	}
	err = e.receive(n, true, sink)
	if err != nil {
		return e.fail(op, cmd, err)
	}
	err = e.stop()
	if err != nil {
		return e.fail(op, cmd, err)
	}
	e.done(op, cmd)
	return nil
}

// writeCommand sends the command byte without STOP and waits for TC so a
// repeated START can follow.
func (e *Engine) writeCommand(cmd byte) error {
	e.issue(PhaseStartIssued, Control{
		Address: e.address,
		NBytes:  1,
		Start:   true,
	})
	err := e.waitTxEmpty()
	if err != nil {
		return err
	}
	e.periph.WriteData(cmd)
	e.phase = PhaseCommandWrite
	return e.waitTransferComplete()
}

func (e *Engine) receive(n int, autoEnd bool, sink func(int, byte)) error {
	e.issue(PhaseRepeatedStart, Control{
		Address: e.address,
		Read:    true,
		NBytes:  byte(n),
		AutoEnd: autoEnd,
		Start:   true,
	})
	for i := 0; i < n; i++ {
		err := e.waitRxReady()
		if err != nil {
			return err
		}
		e.phase = PhaseRead
		sink(i, e.periph.ReadData())
	}
	return nil
}

func (e *Engine) stop() error {
	e.phase = PhaseStopWait
	return e.waitStop()
}

func (e *Engine) issue(phase Phase, c Control) {
	e.phase = phase
	e.periph.SetControl(c)
}

func (e *Engine) done(op string, cmd byte) {
	e.phase = PhaseIdle
	e.log.Debug("pmbus transaction", "op", op, "cmd", pmbus.Command(cmd))
}

func (e *Engine) fail(op string, cmd byte, err error) error {
	phase := e.phase
	e.phase = PhaseIdle
	e.log.Debug("pmbus transaction failed", "op", op, "cmd", pmbus.Command(cmd), "phase", phase, "error", err)
	return fmt.Errorf("regi2c: %s %#02x: phase %s: %w", op, cmd, phase, err)
}
