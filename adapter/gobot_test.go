package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/pmbus"
)

type MockSMBusConn struct {
	mock.Mock
}

func (m *MockSMBusConn) WriteByte(val byte) error {
	return m.Called(val).Error(0)
}

func (m *MockSMBusConn) WriteByteData(reg uint8, val uint8) error {
	return m.Called(reg, val).Error(0)
}

func (m *MockSMBusConn) WriteWordData(reg uint8, val uint16) error {
	return m.Called(reg, val).Error(0)
}

func (m *MockSMBusConn) ReadByteData(reg uint8) (uint8, error) {
	args := m.Called(reg)
	return args.Get(0).(uint8), args.Error(1)
}

func (m *MockSMBusConn) ReadWordData(reg uint8) (uint16, error) {
	args := m.Called(reg)
	return args.Get(0).(uint16), args.Error(1)
}

func (m *MockSMBusConn) ReadBlockData(reg uint8, b []byte) error {
	return m.Called(reg, b).Error(0)
}

func (m *MockSMBusConn) Close() error {
	return m.Called().Error(0)
}

func TestGobotBus_Transactions(t *testing.T) {
	ctx := context.Background()
	conn := new(MockSMBusConn)
	conn.On("WriteByte", byte(0x03)).Return(nil)
	conn.On("WriteByteData", uint8(0x01), uint8(0x80)).Return(nil)
	conn.On("WriteWordData", uint8(0x21), uint16(0x1800)).Return(nil)
	conn.On("ReadByteData", uint8(0x20)).Return(uint8(0x17), nil)
	conn.On("ReadWordData", uint8(0x8B)).Return(uint16(0x1800), nil)

	dials := 0
	b := NewGobotBusWithDialer(func(address byte) (SMBusConn, error) {
		dials++
		assert.Equal(t, pmbus.DefaultAddress, address)
		return conn, nil
	}, pmbus.DefaultAddress)

	require.NoError(t, b.SendByte(ctx, 0x03))
	require.NoError(t, b.WriteByte(ctx, 0x01, 0x80))
	require.NoError(t, b.WriteWord(ctx, 0x21, 0x1800))
	v, err := b.ReadByte(ctx, 0x20)
	require.NoError(t, err)
	assert.Equal(t, byte(0x17), v)
	w, err := b.ReadWord(ctx, 0x8B)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1800), w)
	assert.Equal(t, 1, dials)
	conn.AssertExpectations(t)
}

func TestGobotBus_ReadBlock(t *testing.T) {
	conn := new(MockSMBusConn)
	conn.On("ReadBlockData", uint8(0x99), mock.MatchedBy(func(b []byte) bool {
		return len(b) == gobotMaxRead
	})).Run(func(args mock.Arguments) {
		copy(args.Get(1).([]byte), "\x04ACME\xff\xff")
	}).Return(nil)
	b := NewGobotBusWithDialer(func(byte) (SMBusConn, error) { return conn, nil }, 0x5A)

	buf := make([]byte, 31)
	n, err := b.ReadBlock(context.Background(), 0x99, buf)
	require.NoError(t, err)
	assert.Equal(t, "ACME", string(buf[:n]))

	_, err = b.ReadBlock(context.Background(), 0x99, nil)
	assert.ErrorIs(t, err, pmbus.ErrInvalidArgument)
}

func TestGobotBus_SetAddress(t *testing.T) {
	ctx := context.Background()
	first := new(MockSMBusConn)
	first.On("WriteByte", byte(0x03)).Return(nil)
	first.On("Close").Return(nil).Once()
	second := new(MockSMBusConn)
	second.On("WriteByte", byte(0x03)).Return(nil)

	conns := map[byte]SMBusConn{0x5A: first, 0x58: second}
	b := NewGobotBusWithDialer(func(address byte) (SMBusConn, error) {
		return conns[address], nil
	}, 0x5A)

	require.NoError(t, b.SendByte(ctx, 0x03))
	b.SetAddress(0x58)
	assert.Equal(t, byte(0x58), b.Address())
	require.NoError(t, b.SendByte(ctx, 0x03))
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestGobotBus_Errors(t *testing.T) {
	dialErr := errors.New("no such device")
	b := NewGobotBusWithDialer(func(byte) (SMBusConn, error) { return nil, dialErr }, 0x5A)
	err := b.SendByte(context.Background(), 0x03)
	assert.ErrorIs(t, err, dialErr)

	conn := new(MockSMBusConn)
	conn.On("ReadWordData", uint8(0x88)).Return(uint16(0), errors.New("remote I/O error"))
	b = NewGobotBusWithDialer(func(byte) (SMBusConn, error) { return conn, nil }, 0x5A)
	v, err := b.ReadWord(context.Background(), 0x88)
	assert.Error(t, err)
	assert.Zero(t, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = b.WriteByte(ctx, 0x01, 0x80)
	assert.ErrorIs(t, err, context.Canceled)
}
