package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/psu"
)

func block(payload string) []byte {
	r := make([]byte, MaxBlockSize+1)
	for i := range r {
		r[i] = 0xFF
	}
	r[0] = byte(len(payload))
	copy(r[1:], payload)
	return r
}

func TestBus_Transactions(t *testing.T) {
	ctx := context.Background()
	pb := &i2ctest.Playback{
		DontPanic: true,
		Ops: []i2ctest.IO{
			{Addr: 0x5A, W: []byte{0x03}},
			{Addr: 0x5A, W: []byte{0x01, 0x80}},
			{Addr: 0x5A, W: []byte{0x21, 0x00, 0x18}},
			{Addr: 0x5A, W: []byte{0x20}, R: []byte{0x17}},
			{Addr: 0x5A, W: []byte{0x8B}, R: []byte{0x00, 0x18}},
		},
	}
	b := NewBus(pb)

	require.NoError(t, b.SendByte(ctx, 0x03))
	require.NoError(t, b.WriteByte(ctx, 0x01, 0x80))
	require.NoError(t, b.WriteWord(ctx, 0x21, 0x1800))
	v, err := b.ReadByte(ctx, 0x20)
	require.NoError(t, err)
	assert.Equal(t, byte(0x17), v)
	w, err := b.ReadWord(ctx, 0x8B)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1800), w)
	assert.NoError(t, pb.Close())
}

func TestBus_ReadBlock(t *testing.T) {
	tests := []struct {
		name     string
		block    []byte
		capacity int
		expected string
	}{
		{"fits", block("ACME"), 31, "ACME"},
		{"truncated", block("CX600-12"), 4, "CX60"},
		{"empty", block(""), 31, ""},
		{"zero capacity", block("ACME"), 0, ""},
		{"bogus count", append([]byte{0xFF}, block("0123456789")[1:]...), 40, string(block("0123456789")[1:])},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pb := &i2ctest.Playback{
				DontPanic: true,
				Ops:       []i2ctest.IO{{Addr: 0x5A, W: []byte{0x99}, R: test.block}},
			}
			buf := make([]byte, test.capacity)
			n, err := NewBus(pb).ReadBlock(context.Background(), 0x99, buf)
			require.NoError(t, err)
			assert.Equal(t, test.expected, string(buf[:n]))
		})
	}
}

func TestBus_ReadBlockNil(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	_, err := NewBus(pb).ReadBlock(context.Background(), 0x99, nil)
	assert.ErrorIs(t, err, pmbus.ErrInvalidArgument)
	assert.Equal(t, 0, pb.Count)
}

func TestBus_Address(t *testing.T) {
	ctx := context.Background()
	pb := &i2ctest.Playback{
		DontPanic: true,
		Ops:       []i2ctest.IO{{Addr: 0x58, W: []byte{0x03}}},
	}
	b := NewBus(pb, WithAddress(0x59))
	assert.Equal(t, byte(0x59), b.Address())
	b.SetAddress(0x58)
	require.NoError(t, b.SendByte(ctx, 0x03))
	assert.NoError(t, pb.Close())
}

func TestBus_Errors(t *testing.T) {
	pb := &i2ctest.Playback{
		DontPanic: true,
		Ops:       []i2ctest.IO{{Addr: 0x5A, W: []byte{0x79}, R: []byte{0x00, 0x00}}},
	}
	b := NewBus(pb)
	_, err := b.ReadByte(context.Background(), 0x78)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.ReadWord(ctx, 0x79)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, pb.Count)
}

type markerKey struct{}

type contextTx struct {
	ctx context.Context
}

func (c *contextTx) Tx(addr uint16, w, r []byte) error {
	return errors.New("plain Tx used")
}

func (c *contextTx) TxContext(ctx context.Context, addr uint16, w, r []byte) error {
	c.ctx = ctx
	return nil
}

func TestBus_ContextTxer(t *testing.T) {
	tx := &contextTx{}
	ctx := context.WithValue(context.Background(), markerKey{}, "marker")
	require.NoError(t, NewBus(tx).SendByte(ctx, 0x03))
	assert.Equal(t, "marker", tx.ctx.Value(markerKey{}))
}

func TestBus_PSU(t *testing.T) {
	ctx := context.Background()
	pb := &i2ctest.Playback{
		DontPanic: true,
		Ops: []i2ctest.IO{
			{Addr: 0x5A, W: []byte{0x20}, R: []byte{0x17}},
			{Addr: 0x5A, W: []byte{0x21, 0x00, 0x0A}},
			{Addr: 0x5A, W: []byte{0x01, 0x80}},
			{Addr: 0x5A, W: []byte{0x9A}, R: block("CX600-12")},
		},
	}
	p := psu.NewPSU(NewBus(pb))
	require.NoError(t, p.SetVout(ctx, 5.0))
	require.NoError(t, p.PowerOn(ctx))
	model, err := p.MfrModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CX600-12", model)
	assert.NoError(t, pb.Close())
}
