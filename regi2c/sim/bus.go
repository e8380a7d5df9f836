package sim

import (
	"fmt"

	"github.com/mklimuk/pmbus/regi2c"
)

type OpKind int

const (
	OpEnable OpKind = iota
	OpDisable
	OpControl
	OpStop
	OpClear
	OpWrite
	OpRead
)

func (k OpKind) String() string {
	switch k {
	case OpEnable:
		return "enable"
	case OpDisable:
		return "disable"
	case OpControl:
		return "control"
	case OpStop:
		return "stop"
	case OpClear:
		return "clear"
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	default:
		return "unknown"
	}
}

// Op is one register access observed by the simulated peripheral.
type Op struct {
	Kind    OpKind
	Control regi2c.Control
	Flags   regi2c.Flag
	Data    byte
}

func (o Op) String() string {
	switch o.Kind {
	case OpControl:
		return fmt.Sprintf("control %+v", o.Control)
	case OpClear:
		return fmt.Sprintf("clear %s", o.Flags)
	case OpWrite, OpRead:
		return fmt.Sprintf("%s %#02x", o.Kind, o.Data)
	default:
		return o.Kind.String()
	}
}

// IsRegisterWrite reports whether the access wrote a peripheral register.
func (o Op) IsRegisterWrite() bool {
	return o.Kind != OpRead
}

var _ regi2c.Peripheral = &Bus{}

// Bus is a simulated I2C master peripheral with a single attached Device.
// It tracks the ISR flags the way the hardware sets them and records every
// register access in Ops.
type Bus struct {
	Device *Device

	// NackAddress makes the next address phases fail.
	NackAddress bool
	// NackByte NACKs the n-th byte (1-based) written in a transaction.
	NackByte int
	// NackReadStart NACKs the n-th read address phase (1-based) of a
	// transaction.
	NackReadStart int
	// Stall hides the given flags from Status so waits on them time out.
	Stall regi2c.Flag
	// RxLimit stops clocking in bytes once that many were read, so RXNE
	// never sets again.
	RxLimit int

	Ops []Op
	// BusReads counts bytes clocked in from the device.
	BusReads int

	enabled bool
	timing  uint32
	ctrl    regi2c.Control
	isr     regi2c.Flag

	remaining  int
	written    int
	readStarts int
	pending   []byte
	resp      []byte
	respPos   int
	rx        byte
	reading   bool
}

func NewBus(dev *Device) *Bus {
	return &Bus{Device: dev}
}

func (b *Bus) Timing() uint32 {
	return b.timing
}

func (b *Bus) Enabled() bool {
	return b.enabled
}

// Reset clears the recorded operations.
func (b *Bus) Reset() {
	b.Ops = nil
	b.BusReads = 0
}

// Count returns the number of recorded operations of the given kind.
func (b *Bus) Count(kind OpKind) int {
	n := 0
	for _, op := range b.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (b *Bus) Enable(timing uint32) error {
	b.Ops = append(b.Ops, Op{Kind: OpEnable})
	b.enabled = true
	b.timing = timing
	b.isr = 0
	b.end()
	return nil
}

func (b *Bus) Disable() error {
	b.Ops = append(b.Ops, Op{Kind: OpDisable})
	b.enabled = false
	return nil
}

func (b *Bus) SetControl(c regi2c.Control) {
	b.Ops = append(b.Ops, Op{Kind: OpControl, Control: c})
	b.ctrl = c
	if !b.enabled || !c.Start {
		return
	}
	b.isr &^= regi2c.FlagTXE | regi2c.FlagRXNE | regi2c.FlagTC
	if c.Read {
		b.readStarts++
	}
	if b.NackAddress || b.Device == nil || c.Address != b.Device.Address ||
		(c.Read && b.readStarts == b.NackReadStart) {
		b.nack()
		return
	}
	b.remaining = int(c.NBytes)
	if !c.Read {
		b.isr |= regi2c.FlagTXE
		return
	}
	if !b.reading {
		b.reading = true
		if len(b.pending) > 0 {
			b.resp = b.Device.response(b.pending[0])
		}
		b.respPos = 0
	}
	b.load()
}

func (b *Bus) GenerateStop() {
	b.Ops = append(b.Ops, Op{Kind: OpStop})
	if !b.enabled {
		return
	}
	b.stop()
}

func (b *Bus) Status() regi2c.Flag {
	return b.isr &^ b.Stall
}

func (b *Bus) ClearFlags(f regi2c.Flag) {
	b.Ops = append(b.Ops, Op{Kind: OpClear, Flags: f})
	b.isr &^= f & (regi2c.FlagNACK | regi2c.FlagSTOP)
}

func (b *Bus) WriteData(v byte) {
	b.Ops = append(b.Ops, Op{Kind: OpWrite, Data: v})
	if !b.enabled || b.ctrl.Read || b.remaining <= 0 {
		return
	}
	b.written++
	if b.NackByte > 0 && b.written == b.NackByte {
		b.nack()
		return
	}
	if b.written == 1 && b.Device.Unsupported[v] {
		b.nack()
		return
	}
	b.pending = append(b.pending, v)
	b.remaining--
	if b.remaining > 0 {
		return
	}
	if b.ctrl.AutoEnd {
		b.stop()
		return
	}
	b.isr |= regi2c.FlagTC
}

func (b *Bus) ReadData() byte {
	v := b.rx
	b.Ops = append(b.Ops, Op{Kind: OpRead, Data: v})
	if !b.enabled || b.isr&regi2c.FlagRXNE == 0 {
		return v
	}
	b.isr &^= regi2c.FlagRXNE
	b.remaining--
	switch {
	case b.remaining > 0:
		b.load()
	case b.ctrl.AutoEnd:
		b.stop()
	default:
		b.isr |= regi2c.FlagTC
	}
	return v
}

// load clocks the next response byte into RXDR. Reads past the end of the
// response return 0xFF like a released SDA line.
func (b *Bus) load() {
	if b.RxLimit > 0 && b.BusReads >= b.RxLimit {
		return
	}
	b.rx = 0xFF
	if b.respPos < len(b.resp) {
		b.rx = b.resp[b.respPos]
	}
	b.respPos++
	b.BusReads++
	b.isr |= regi2c.FlagRXNE
}

// nack models the hardware reaction to a NACK: NACKF then automatic STOP.
// The transaction is dropped.
func (b *Bus) nack() {
	b.isr |= regi2c.FlagNACK | regi2c.FlagSTOP
	b.isr &^= regi2c.FlagTXE | regi2c.FlagRXNE | regi2c.FlagTC
	b.pending = nil
	b.end()
}

func (b *Bus) stop() {
	b.isr |= regi2c.FlagSTOP
	b.isr &^= regi2c.FlagTC
	if !b.reading && b.Device != nil {
		b.Device.write(b.pending)
	}
	b.end()
}

func (b *Bus) end() {
	b.remaining = 0
	b.written = 0
	b.readStarts = 0
	b.pending = nil
	b.resp = nil
	b.respPos = 0
	b.reading = false
}
