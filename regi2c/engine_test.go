package regi2c_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/regi2c"
	"github.com/mklimuk/pmbus/regi2c/sim"
)

const addr = 0x5A

func fakeClock() regi2c.ClockFunc {
	var now uint32
	return func() uint32 {
		now++
		return now
	}
}

func newEngine(t *testing.T, dev *sim.Device) (*regi2c.Engine, *sim.Bus) {
	t.Helper()
	bus := sim.NewBus(dev)
	e := regi2c.NewEngine(bus, regi2c.WithClock(fakeClock()))
	require.NoError(t, e.Init())
	bus.Reset()
	return e, bus
}

func TestEngine_Lifecycle(t *testing.T) {
	bus := sim.NewBus(sim.NewDevice(addr))
	e := regi2c.NewEngine(bus, regi2c.WithClock(fakeClock()), regi2c.WithTiming(0x10909CEC))
	ctx := context.Background()

	err := e.SendByte(ctx, 0x03)
	assert.ErrorIs(t, err, pmbus.ErrNotInitialized)
	assert.Empty(t, bus.Ops, "no register access before init")

	require.NoError(t, e.Init())
	require.NoError(t, e.Init())
	assert.Equal(t, 1, bus.Count(sim.OpEnable))
	assert.Equal(t, uint32(0x10909CEC), bus.Timing())
	assert.True(t, e.Initialized())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, 1, bus.Count(sim.OpDisable))
	_, err = e.ReadByte(ctx, 0x20)
	assert.ErrorIs(t, err, pmbus.ErrNotInitialized)
}

func TestEngine_Address(t *testing.T) {
	e := regi2c.NewEngine(sim.NewBus(nil))
	assert.Equal(t, pmbus.DefaultAddress, e.Address())
	e.SetAddress(0x58)
	assert.Equal(t, byte(0x58), e.Address())
	e = regi2c.NewEngine(sim.NewBus(nil), regi2c.WithAddress(0x10))
	assert.Equal(t, byte(0x10), e.Address())
}

func TestEngine_SendByte(t *testing.T) {
	dev := sim.NewDevice(addr)
	e, bus := newEngine(t, dev)
	err := e.SendByte(context.Background(), 0x03)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x03}}, dev.Writes)
	require.Len(t, bus.Ops, 3)
	assert.Equal(t, regi2c.Control{Address: addr, NBytes: 1, AutoEnd: true, Start: true}, bus.Ops[0].Control)
	assert.Equal(t, sim.Op{Kind: sim.OpWrite, Data: 0x03}, bus.Ops[1])
	assert.Equal(t, sim.Op{Kind: sim.OpClear, Flags: regi2c.FlagSTOP}, bus.Ops[2])
	assert.Equal(t, regi2c.PhaseIdle, e.Phase())
}

func TestEngine_Writes(t *testing.T) {
	dev := sim.NewDevice(addr)
	e, bus := newEngine(t, dev)
	ctx := context.Background()

	require.NoError(t, e.WriteByte(ctx, 0x01, 0x80))
	assert.Equal(t, byte(0x80), dev.Bytes[0x01])
	assert.Equal(t, regi2c.Control{Address: addr, NBytes: 2, AutoEnd: true, Start: true}, bus.Ops[0].Control)

	bus.Reset()
	require.NoError(t, e.WriteWord(ctx, 0x21, 0x1800))
	assert.Equal(t, uint16(0x1800), dev.Words[0x21])
	assert.Equal(t, regi2c.Control{Address: addr, NBytes: 3, AutoEnd: true, Start: true}, bus.Ops[0].Control)
	// little-endian on the wire
	assert.Equal(t, []byte{0x01, 0x80}, dev.Writes[0])
	assert.Equal(t, []byte{0x21, 0x00, 0x18}, dev.Writes[1])
}

func TestEngine_Reads(t *testing.T) {
	dev := sim.NewDevice(addr)
	dev.Bytes[0x20] = 0x17
	dev.Words[0x8B] = 0x1234
	e, bus := newEngine(t, dev)
	ctx := context.Background()

	b, err := e.ReadByte(ctx, 0x20)
	require.NoError(t, err)
	assert.Equal(t, byte(0x17), b)
	require.GreaterOrEqual(t, len(bus.Ops), 4)
	assert.Equal(t, regi2c.Control{Address: addr, NBytes: 1, Start: true}, bus.Ops[0].Control, "command phase has no AUTOEND")
	assert.Equal(t, sim.Op{Kind: sim.OpWrite, Data: 0x20}, bus.Ops[1])
	assert.Equal(t, regi2c.Control{Address: addr, Read: true, NBytes: 1, AutoEnd: true, Start: true}, bus.Ops[2].Control)

	bus.Reset()
	w, err := e.ReadWord(ctx, 0x8B)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), w)
	assert.Equal(t, regi2c.Control{Address: addr, Read: true, NBytes: 2, AutoEnd: true, Start: true}, bus.Ops[2].Control)
	assert.Equal(t, 2, bus.BusReads)
	assert.Equal(t, regi2c.PhaseIdle, e.Phase())
}

func TestEngine_ReadBlock(t *testing.T) {
	dev := sim.NewDevice(addr)
	dev.Blocks[0x99] = []byte("ACME POWER")
	dev.Blocks[0x9B] = []byte{}
	e, bus := newEngine(t, dev)
	ctx := context.Background()

	t.Run("fits", func(t *testing.T) {
		bus.Reset()
		buf := make([]byte, 32)
		n, err := e.ReadBlock(ctx, 0x99, buf)
		require.NoError(t, err)
		assert.Equal(t, "ACME POWER", string(buf[:n]))
		assert.Equal(t, 11, bus.BusReads)
		var controls []regi2c.Control
		for _, op := range bus.Ops {
			if op.Kind == sim.OpControl {
				controls = append(controls, op.Control)
			}
		}
		assert.Equal(t, []regi2c.Control{
			{Address: addr, NBytes: 1, Start: true},
			{Address: addr, Read: true, NBytes: 1, Start: true},
			{Address: addr, Read: true, NBytes: 10, AutoEnd: true, Start: true},
		}, controls)
	})

	t.Run("truncated", func(t *testing.T) {
		bus.Reset()
		buf := make([]byte, 4)
		n, err := e.ReadBlock(ctx, 0x99, buf)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, "ACME", string(buf))
		// count byte plus the full advertised block
		assert.Equal(t, 11, bus.BusReads)
		assert.Equal(t, 11, bus.Count(sim.OpRead))
	})

	t.Run("empty block", func(t *testing.T) {
		bus.Reset()
		buf := make([]byte, 8)
		n, err := e.ReadBlock(ctx, 0x9B, buf)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, 1, bus.Count(sim.OpRead), "only the count byte is read")
		assert.Equal(t, 1, bus.Count(sim.OpStop))
		assert.Equal(t, 2, bus.Count(sim.OpControl))
		assert.Equal(t, regi2c.PhaseIdle, e.Phase())
	})

	t.Run("zero capacity", func(t *testing.T) {
		bus.Reset()
		n, err := e.ReadBlock(ctx, 0x99, []byte{})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, 11, bus.BusReads)
	})

	t.Run("nil buffer", func(t *testing.T) {
		bus.Reset()
		_, err := e.ReadBlock(ctx, 0x99, nil)
		assert.ErrorIs(t, err, pmbus.ErrInvalidArgument)
		assert.Empty(t, bus.Ops)
	})
}

// opsAfterNack returns the register accesses recorded after the NACK flag
// was cleared.
func opsAfterNack(t *testing.T, bus *sim.Bus) []sim.Op {
	t.Helper()
	for i, op := range bus.Ops {
		if op.Kind == sim.OpClear && op.Flags&regi2c.FlagNACK != 0 {
			return bus.Ops[i+1:]
		}
	}
	t.Fatal("NACK was never cleared")
	return nil
}

func TestEngine_NackAborts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*sim.Bus)
		run   func(context.Context, *regi2c.Engine) error
	}{
		{
			name:  "address on send byte",
			setup: func(b *sim.Bus) { b.NackAddress = true },
			run:   func(ctx context.Context, e *regi2c.Engine) error { return e.SendByte(ctx, 0x03) },
		},
		{
			name:  "command on send byte",
			setup: func(b *sim.Bus) { b.NackByte = 1 },
			run:   func(ctx context.Context, e *regi2c.Engine) error { return e.SendByte(ctx, 0x03) },
		},
		{
			name:  "last data byte on write word",
			setup: func(b *sim.Bus) { b.NackByte = 3 },
			run:   func(ctx context.Context, e *regi2c.Engine) error { return e.WriteWord(ctx, 0x21, 0x0C00) },
		},
		{
			name:  "data byte on write word",
			setup: func(b *sim.Bus) { b.NackByte = 2 },
			run:   func(ctx context.Context, e *regi2c.Engine) error { return e.WriteWord(ctx, 0x21, 0x0C00) },
		},
		{
			name:  "command on read word",
			setup: func(b *sim.Bus) { b.Device.Unsupported[0x8B] = true },
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadWord(ctx, 0x8B)
				return err
			},
		},
		{
			name:  "address on read byte",
			setup: func(b *sim.Bus) { b.NackAddress = true },
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadByte(ctx, 0x20)
				return err
			},
		},
		{
			name:  "command on read block",
			setup: func(b *sim.Bus) { b.NackByte = 1 },
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadBlock(ctx, 0x99, make([]byte, 8))
				return err
			},
		},
		{
			name:  "count address on read block",
			setup: func(b *sim.Bus) { b.NackReadStart = 1 },
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadBlock(ctx, 0x99, make([]byte, 8))
				return err
			},
		},
		{
			name:  "payload address on read block",
			setup: func(b *sim.Bus) { b.NackReadStart = 2 },
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadBlock(ctx, 0x99, make([]byte, 8))
				return err
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev := sim.NewDevice(addr)
			dev.Words[0x8B] = 0x0C00
			dev.Blocks[0x99] = []byte("X")
			e, bus := newEngine(t, dev)
			test.setup(bus)
			err := test.run(context.Background(), e)
			assert.ErrorIs(t, err, pmbus.ErrNack)
			assert.Empty(t, opsAfterNack(t, bus), "no register access after the NACK")
			assert.Empty(t, dev.Writes)
			assert.Zero(t, bus.Status()&(regi2c.FlagNACK|regi2c.FlagSTOP), "no flag left for the next transaction")
			assert.Equal(t, regi2c.PhaseIdle, e.Phase())
		})
	}
}

func TestEngine_NackOnLastByteThenRecover(t *testing.T) {
	dev := sim.NewDevice(addr)
	dev.Bytes[0x20] = 0x17
	e, bus := newEngine(t, dev)
	ctx := context.Background()

	bus.NackByte = 1
	err := e.SendByte(ctx, 0x03)
	assert.ErrorIs(t, err, pmbus.ErrNack)
	assert.Contains(t, err.Error(), "phase stop")
	assert.Empty(t, dev.Writes)
	assert.Zero(t, bus.Status()&(regi2c.FlagNACK|regi2c.FlagSTOP))

	bus.NackByte = 0
	v, err := e.ReadByte(ctx, 0x20)
	require.NoError(t, err)
	assert.Equal(t, byte(0x17), v)
}

// droppingBus loses transmitted bytes on the wire when drop is set, so no
// STOP ever follows.
type droppingBus struct {
	*sim.Bus
	drop bool
}

func (b *droppingBus) WriteData(v byte) {
	if !b.drop {
		b.Bus.WriteData(v)
	}
}

func TestEngine_NackThenWriteWaitsForOwnStop(t *testing.T) {
	dev := sim.NewDevice(addr)
	bus := &droppingBus{Bus: sim.NewBus(dev)}
	e := regi2c.NewEngine(bus, regi2c.WithClock(fakeClock()))
	require.NoError(t, e.Init())
	ctx := context.Background()

	bus.NackAddress = true
	_, err := e.ReadByte(ctx, 0x20)
	require.ErrorIs(t, err, pmbus.ErrNack)
	assert.Zero(t, bus.Status()&regi2c.FlagSTOP, "STOPF from the aborted transaction is cleared")

	bus.NackAddress = false
	bus.drop = true
	err = e.WriteByte(ctx, 0x01, 0x80)
	assert.ErrorIs(t, err, pmbus.ErrTimeout, "success needs the STOP of this transaction")
	assert.Empty(t, dev.Writes)
}

func TestEngine_NackOnWrongAddress(t *testing.T) {
	e, _ := newEngine(t, sim.NewDevice(addr))
	e.SetAddress(0x10)
	err := e.WriteByte(context.Background(), 0x01, 0x80)
	assert.ErrorIs(t, err, pmbus.ErrNack)
	assert.Contains(t, err.Error(), "phase start")
}

func TestEngine_Timeouts(t *testing.T) {
	tests := []struct {
		name     string
		stall    regi2c.Flag
		rxLimit  int
		controls int
		run      func(context.Context, *regi2c.Engine) error
	}{
		{
			name:     "stop never detected",
			stall:    regi2c.FlagSTOP,
			controls: 1,
			run:      func(ctx context.Context, e *regi2c.Engine) error { return e.WriteByte(ctx, 0x01, 0x00) },
		},
		{
			name:     "command phase never completes",
			stall:    regi2c.FlagTC,
			controls: 1,
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadWord(ctx, 0x88)
				return err
			},
		},
		{
			name:     "no data received",
			stall:    regi2c.FlagRXNE,
			controls: 2,
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadByte(ctx, 0x20)
				return err
			},
		},
		{
			name:     "block count never received",
			stall:    regi2c.FlagRXNE,
			controls: 2,
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadBlock(ctx, 0x99, make([]byte, 8))
				return err
			},
		},
		{
			name:     "block payload never received",
			rxLimit:  1,
			controls: 3,
			run: func(ctx context.Context, e *regi2c.Engine) error {
				_, err := e.ReadBlock(ctx, 0x99, make([]byte, 8))
				return err
			},
		},
		{
			name:     "transmitter stuck",
			stall:    regi2c.FlagTXE,
			controls: 1,
			run:      func(ctx context.Context, e *regi2c.Engine) error { return e.SendByte(ctx, 0x03) },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev := sim.NewDevice(addr)
			dev.Words[0x88] = 0xD3E8
			dev.Bytes[0x20] = 0x17
			dev.Blocks[0x99] = []byte("ACME")
			e, bus := newEngine(t, dev)
			bus.Stall = test.stall
			bus.RxLimit = test.rxLimit
			err := test.run(context.Background(), e)
			assert.ErrorIs(t, err, pmbus.ErrTimeout)
			assert.Equal(t, test.controls, bus.Count(sim.OpControl), "later phases are not attempted")
			assert.Equal(t, regi2c.PhaseIdle, e.Phase())
		})
	}
}

func TestEngine_RealClockTimeout(t *testing.T) {
	bus := sim.NewBus(sim.NewDevice(addr))
	e := regi2c.NewEngine(bus, regi2c.WithTimeout(20*time.Millisecond))
	require.NoError(t, e.Init())
	bus.Stall = regi2c.FlagTC
	start := time.Now()
	_, err := e.ReadByte(context.Background(), 0x20)
	assert.ErrorIs(t, err, pmbus.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestEngine_CanceledContext(t *testing.T) {
	e, bus := newEngine(t, sim.NewDevice(addr))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.SendByte(ctx, 0x03)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, bus.Ops)
}
