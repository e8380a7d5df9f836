package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/pmbus"
)

// gobotMaxRead is the longest ReadBlockData transfer gobot's sysfs backend
// accepts.
const gobotMaxRead = 32

// SMBusConn is the part of a gobot i2c.Connection used for PMBus traffic.
type SMBusConn interface {
	WriteByte(val byte) error
	WriteByteData(reg uint8, val uint8) error
	WriteWordData(reg uint8, val uint16) error
	ReadByteData(reg uint8) (uint8, error)
	ReadWordData(reg uint8) (uint16, error)
	ReadBlockData(reg uint8, b []byte) error
	Close() error
}

// Dialer opens a connection to the device at address.
type Dialer func(address byte) (SMBusConn, error)

var _ pmbus.Transport = &GobotBus{}
var _ pmbus.Addressable = &GobotBus{}

// GobotBus is a PMBus transport over a gobot I2C connection, using the
// kernel's SMBus primitives.
type GobotBus struct {
	mx      sync.Mutex
	dial    Dialer
	conn    SMBusConn
	address byte
	log     *slog.Logger
}

// NewGobotBus talks to the device at address on the connector's bus busNr.
func NewGobotBus(connector i2c.Connector, busNr int, address byte) *GobotBus {
	return NewGobotBusWithDialer(func(address byte) (SMBusConn, error) {
		conn, err := connector.GetI2cConnection(int(address), busNr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, address)
}

func NewGobotBusWithDialer(dial Dialer, address byte) *GobotBus {
	return &GobotBus{
		dial:    dial,
		address: address,
		log:     slog.Default(),
	}
}

// NewNanoPiBus connects the NanoPi NEO I2C adaptor. The returned finalize
// function closes the bus and releases the adaptor.
func NewNanoPiBus(busNr int, address byte) (*GobotBus, func() error, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	b := NewGobotBus(npi, busNr, address)
	finalize := func() error {
		closeErr := b.Close()
		err := npi.I2cBusAdaptor.Finalize()
		if err != nil {
			return err
		}
		return closeErr
	}
	return b, finalize, nil
}

func (b *GobotBus) Address() byte {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.address
}

// SetAddress retargets the bus; the connection is reopened on next use.
func (b *GobotBus) SetAddress(address byte) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if address == b.address {
		return
	}
	err := b.closeConn()
	if err != nil {
		b.log.Warn("could not close connection", "address", b.address, "error", err)
	}
	b.address = address
}

func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.closeConn()
}

func (b *GobotBus) closeConn() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *GobotBus) SendByte(ctx context.Context, cmd byte) error {
	return b.do(ctx, "send byte", cmd, func(c SMBusConn) error {
		return c.WriteByte(cmd)
	})
}

func (b *GobotBus) WriteByte(ctx context.Context, cmd byte, data byte) error {
	return b.do(ctx, "write byte", cmd, func(c SMBusConn) error {
		return c.WriteByteData(cmd, data)
	})
}

func (b *GobotBus) WriteWord(ctx context.Context, cmd byte, data uint16) error {
	return b.do(ctx, "write word", cmd, func(c SMBusConn) error {
		return c.WriteWordData(cmd, data)
	})
}

func (b *GobotBus) ReadByte(ctx context.Context, cmd byte) (byte, error) {
	var v byte
	err := b.do(ctx, "read byte", cmd, func(c SMBusConn) error {
		var err error
		v, err = c.ReadByteData(cmd)
		return err
	})
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (b *GobotBus) ReadWord(ctx context.Context, cmd byte) (uint16, error) {
	var v uint16
	err := b.do(ctx, "read word", cmd, func(c SMBusConn) error {
		var err error
		v, err = c.ReadWordData(cmd)
		return err
	})
	if err != nil {
		return 0, err
	}
	return v, nil
}

// ReadBlock reads the count byte and as much payload as buf can hold, up to
// the 31 bytes gobot can transfer after the count.
func (b *GobotBus) ReadBlock(ctx context.Context, cmd byte, buf []byte) (int, error) {
	if buf == nil {
		return 0, fmt.Errorf("gobot: read block %#02x: nil buffer: %w", cmd, pmbus.ErrInvalidArgument)
	}
	raw := make([]byte, min(len(buf)+1, gobotMaxRead))
	err := b.do(ctx, "read block", cmd, func(c SMBusConn) error {
		return c.ReadBlockData(cmd, raw)
	})
	if err != nil {
		return 0, err
	}
	count := min(int(raw[0]), len(raw)-1)
	return copy(buf, raw[1:1+count]), nil
}

func (b *GobotBus) do(ctx context.Context, op string, cmd byte, fn func(SMBusConn) error) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("gobot: %s %#02x: %w", op, cmd, err)
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.conn == nil {
		b.conn, err = b.dial(b.address)
		if err != nil {
			return fmt.Errorf("gobot: could not connect to %#02x: %w", b.address, err)
		}
	}
	err = fn(b.conn)
	if err != nil {
		b.log.Debug("pmbus transaction failed", "op", op, "cmd", pmbus.Command(cmd), "error", err)
		return fmt.Errorf("gobot: %s %#02x at %#02x: %w", op, cmd, b.address, err)
	}
	return nil
}
