package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/pmbus/busctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// maxTransfer is the largest I2C payload carried by a single HID report.
const maxTransfer = 60

const reportSize = 64

const (
	cmdStatus          byte = 0x10
	cmdGetI2CData      byte = 0x40
	cmdWriteData       byte = 0x90
	cmdReadData        byte = 0x91
	cmdReadRepeated    byte = 0x93
	cmdWriteDataNoStop byte = 0x94

	statusCancelTransfer byte = 0x10
	responseBusy         byte = 0x01
	responseReadError    byte = 0x41
	readSizeError        byte = 127
)

var ErrBusBusy = errors.New("adapter busy")
var ErrCommandFailed = errors.New("command failed")
var ErrTransferTooLong = errors.New("transfer too long")

// Device is an open HID report endpoint.
type Device interface {
	io.ReadWriteCloser
}

// Opener opens the adapter with the given enumeration index (-1 for the only
// one connected).
type Opener func(id int) (Device, error)

// OpenHID opens an MCP2221 through the HID subsystem.
func OpenHID(id int) (Device, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) > 1 && id < 0 {
		return nil, fmt.Errorf("ambiguous device identification")
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("MCP2221 device not found")
	}
	if id < 0 {
		id = 0
	}
	if id >= len(devs) {
		return nil, fmt.Errorf("no device with id %d", id)
	}
	dev, err := devs[id].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

// MCP2221 drives the I2C engine of a Microchip MCP2221 USB bridge. It
// implements i2c.ContextTxer so it can carry PMBus traffic.
type MCP2221 struct {
	mx           sync.Mutex
	open         Opener
	id           int
	log          *slog.Logger
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type MCP2221Option func(*MCP2221)

// WithDeviceID selects one of several connected adapters.
func WithDeviceID(id int) MCP2221Option {
	return func(d *MCP2221) {
		d.id = id
	}
}

func WithOpener(open Opener) MCP2221Option {
	return func(d *MCP2221) {
		d.open = open
	}
}

func WithResponseWait(wait time.Duration) MCP2221Option {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func WithLogger(logger *slog.Logger) MCP2221Option {
	return func(d *MCP2221) {
		d.log = logger
	}
}

func NewMCP2221(opts ...MCP2221Option) *MCP2221 {
	d := &MCP2221{
		open:         OpenHID,
		id:           -1,
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

// Tx implements i2c.Txer.
func (d *MCP2221) Tx(addr uint16, w, r []byte) error {
	return d.TxContext(context.Background(), addr, w, r)
}

// TxContext runs a write, a read or a write followed by a repeated-START
// read.
func (d *MCP2221) TxContext(ctx context.Context, addr uint16, w, r []byte) error {
	if len(w) > maxTransfer || len(r) > maxTransfer {
		return fmt.Errorf("%w: write %d, read %d", ErrTransferTooLong, len(w), len(r))
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	address := byte(addr)
	switch {
	case len(r) == 0:
		return d.write(ctx, cmdWriteData, address, w)
	case len(w) == 0:
		return d.read(ctx, cmdReadData, address, r)
	default:
		err := d.write(ctx, cmdWriteDataNoStop, address, w)
		if err != nil {
			return err
		}
		return d.read(ctx, cmdReadRepeated, address, r)
	}
}

func (d *MCP2221) write(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] == responseBusy {
		d.log.Debug("adapter busy", "address", address)
		return ErrBusBusy
	}
	return nil
}

func (d *MCP2221) read(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == responseBusy {
		return ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetI2CData
	err = d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == responseReadError {
		return fmt.Errorf("%w: error reading the I2C slave data from the I2C engine", ErrCommandFailed)
	}
	if d.response[3] == readSizeError || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// ReleaseBus cancels the current I2C transfer, freeing a stuck bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = statusCancelTransfer
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context, response bool) error {
	dev, err := d.open(d.id)
	if err != nil {
		return err
	}
	defer func() {
		err := dev.Close()
		if err != nil {
			d.log.Warn("could not close adapter", "error", err)
		}
	}()
	verbose := busctx.IsVerbose(ctx)
	if verbose {
		d.log.Debug("sending message to adapter\n" + hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.responseWait):
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		d.log.Debug("read message from adapter\n" + hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}
