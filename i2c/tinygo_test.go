package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"

	"github.com/mklimuk/pmbus/psu"
)

var errNoAck = errors.New("i2c: no ack")

// registerBus answers tinygo register-style transactions from a register map.
type registerBus struct {
	addr   uint16
	regs   map[byte][]byte
	writes [][]byte
}

var _ drivers.I2C = &registerBus{}

func (b *registerBus) Tx(addr uint16, w, r []byte) error {
	if addr != b.addr {
		return errNoAck
	}
	if len(r) == 0 {
		b.writes = append(b.writes, append([]byte(nil), w...))
		return nil
	}
	copy(r, b.regs[w[0]])
	return nil
}

func TestTinyGoBus_PSU(t *testing.T) {
	ctx := context.Background()
	dev := &registerBus{
		addr: 0x58,
		regs: map[byte][]byte{
			0x20: {0x17},
			0x8B: {0x00, 0x18},
			0x99: block("ACME"),
		},
	}
	p := psu.NewPSU(NewTinyGoBus(dev, WithAddress(0x58)))

	require.NoError(t, p.SetVout(ctx, 12.0))
	require.NoError(t, p.PowerOn(ctx))
	assert.Equal(t, [][]byte{{0x21, 0x00, 0x18}, {0x01, 0x80}}, dev.writes)
	assert.Equal(t, int8(-9), p.Exponent())

	vout, err := p.ReadVout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.0, vout)

	id, err := p.MfrID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACME", id)
}

func TestTinyGoBus_WrongAddress(t *testing.T) {
	dev := &registerBus{addr: 0x58}
	p := psu.NewPSU(NewTinyGoBus(dev))
	err := p.PowerOn(context.Background())
	assert.ErrorIs(t, err, errNoAck)
	assert.Empty(t, dev.writes)
}
