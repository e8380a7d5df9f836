package psu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/linear"
)

// DefaultExponent is the Linear16 exponent assumed until VOUT_MODE has been
// read successfully.
const DefaultExponent int8 = -13

// MfrInfoCapacity is the buffer capacity used for manufacturer strings; one
// byte of it is reserved so at most MfrInfoCapacity-1 characters are kept.
const MfrInfoCapacity = 32

var ErrOutOfRange = errors.New("psu: value out of range")

type Config struct {
	Exponent int8
	Logger   *slog.Logger
}

type Option func(*Config)

// WithExponent overrides the initial VOUT_MODE exponent.
func WithExponent(exponent int8) Option {
	return func(c *Config) {
		c.Exponent = exponent
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// PSU controls a PMBus power supply module.
//
// Usage: create with NewPSU on an initialized transport, then call the
// accessors. PSU caches the VOUT_MODE exponent and is not safe for concurrent
// use; serialize access to it and to the underlying transport.
type PSU struct {
	transport pmbus.Transport
	log       *slog.Logger
	exponent  int8
}

func NewPSU(transport pmbus.Transport, opts ...Option) *PSU {
	config := &Config{
		Exponent: DefaultExponent,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &PSU{
		transport: transport,
		log:       config.Logger,
		exponent:  config.Exponent,
	}
}

func (p *PSU) PowerOn(ctx context.Context) error {
	err := p.transport.WriteByte(ctx, byte(pmbus.CmdOperation), pmbus.OperationOn)
	if err != nil {
		return fmt.Errorf("psu: could not power on: %w", err)
	}
	return nil
}

func (p *PSU) PowerOff(ctx context.Context) error {
	err := p.transport.WriteByte(ctx, byte(pmbus.CmdOperation), pmbus.OperationOff)
	if err != nil {
		return fmt.Errorf("psu: could not power off: %w", err)
	}
	return nil
}

// Operation reads the OPERATION register.
func (p *PSU) Operation(ctx context.Context) (byte, error) {
	return p.readByte(ctx, pmbus.CmdOperation)
}

func (p *PSU) ClearFaults(ctx context.Context) error {
	err := p.transport.SendByte(ctx, byte(pmbus.CmdClearFaults))
	if err != nil {
		return fmt.Errorf("psu: could not clear faults: %w", err)
	}
	return nil
}

// Exponent returns the cached VOUT_MODE exponent without bus access.
func (p *PSU) Exponent() int8 {
	return p.exponent
}

// VoutMode reads VOUT_MODE and caches its exponent. When the read fails the
// previously cached exponent is kept and returned together with the error.
func (p *PSU) VoutMode(ctx context.Context) (int8, error) {
	mode, err := p.transport.ReadByte(ctx, byte(pmbus.CmdVoutMode))
	if err != nil {
		return p.exponent, fmt.Errorf("psu: could not read VOUT_MODE: %w", err)
	}
	p.exponent = linear.Exponent(mode)
	return p.exponent, nil
}

// refreshExponent re-reads VOUT_MODE for voltage accessors. Failures are only
// logged: the cached exponent stays usable.
func (p *PSU) refreshExponent(ctx context.Context) int8 {
	exp, err := p.VoutMode(ctx)
	if err != nil {
		p.log.Debug("using cached VOUT_MODE exponent", "exponent", exp, "error", err)
	}
	return exp
}

// SetVout programs VOUT_COMMAND. Setpoints that do not fit the Linear16
// range of the current exponent are rejected with ErrOutOfRange.
func (p *PSU) SetVout(ctx context.Context, volts float64) error {
	return p.writeLinear16(ctx, pmbus.CmdVoutCommand, volts)
}

// Vout reads back the VOUT_COMMAND setpoint.
func (p *PSU) Vout(ctx context.Context) (float64, error) {
	return p.readLinear16(ctx, pmbus.CmdVoutCommand)
}

func (p *PSU) SetVoutMax(ctx context.Context, volts float64) error {
	return p.writeLinear16(ctx, pmbus.CmdVoutMax, volts)
}

func (p *PSU) VoutMax(ctx context.Context) (float64, error) {
	return p.readLinear16(ctx, pmbus.CmdVoutMax)
}

// ReadVout reads the measured output voltage in volts.
func (p *PSU) ReadVout(ctx context.Context) (float64, error) {
	return p.readLinear16(ctx, pmbus.CmdReadVout)
}

// ReadVin reads the input voltage in volts.
func (p *PSU) ReadVin(ctx context.Context) (float64, error) {
	return p.readLinear11(ctx, pmbus.CmdReadVin)
}

// ReadIin reads the input current in amperes.
func (p *PSU) ReadIin(ctx context.Context) (float64, error) {
	return p.readLinear11(ctx, pmbus.CmdReadIin)
}

// ReadIout reads the output current in amperes.
func (p *PSU) ReadIout(ctx context.Context) (float64, error) {
	return p.readLinear11(ctx, pmbus.CmdReadIout)
}

// ReadPout reads the output power in watts.
func (p *PSU) ReadPout(ctx context.Context) (float64, error) {
	return p.readLinear11(ctx, pmbus.CmdReadPout)
}

// ReadPin reads the input power in watts.
func (p *PSU) ReadPin(ctx context.Context) (float64, error) {
	return p.readLinear11(ctx, pmbus.CmdReadPin)
}

// ReadTemperature1 reads temperature sensor 1 in degrees Celsius.
func (p *PSU) ReadTemperature1(ctx context.Context) (float64, error) {
	return p.readLinear11(ctx, pmbus.CmdReadTemperature1)
}

// ReadTemperature2 reads temperature sensor 2 in degrees Celsius.
func (p *PSU) ReadTemperature2(ctx context.Context) (float64, error) {
	return p.readLinear11(ctx, pmbus.CmdReadTemperature2)
}

func (p *PSU) Page(ctx context.Context) (byte, error) {
	return p.readByte(ctx, pmbus.CmdPage)
}

func (p *PSU) SetPage(ctx context.Context, page byte) error {
	return p.writeByte(ctx, pmbus.CmdPage, page)
}

func (p *PSU) OnOffConfig(ctx context.Context) (byte, error) {
	return p.readByte(ctx, pmbus.CmdOnOffConfig)
}

func (p *PSU) SetOnOffConfig(ctx context.Context, config byte) error {
	return p.writeByte(ctx, pmbus.CmdOnOffConfig, config)
}

func (p *PSU) MfrID(ctx context.Context) (string, error) {
	return p.readString(ctx, pmbus.CmdMfrID)
}

func (p *PSU) MfrModel(ctx context.Context) (string, error) {
	return p.readString(ctx, pmbus.CmdMfrModel)
}

func (p *PSU) MfrRevision(ctx context.Context) (string, error) {
	return p.readString(ctx, pmbus.CmdMfrRevision)
}

func (p *PSU) MfrSerial(ctx context.Context) (string, error) {
	return p.readString(ctx, pmbus.CmdMfrSerial)
}

func (p *PSU) readByte(ctx context.Context, cmd pmbus.Command) (byte, error) {
	v, err := p.transport.ReadByte(ctx, byte(cmd))
	if err != nil {
		return 0, fmt.Errorf("psu: could not read %s: %w", cmd, err)
	}
	return v, nil
}

func (p *PSU) writeByte(ctx context.Context, cmd pmbus.Command, v byte) error {
	err := p.transport.WriteByte(ctx, byte(cmd), v)
	if err != nil {
		return fmt.Errorf("psu: could not write %s: %w", cmd, err)
	}
	return nil
}

func (p *PSU) readWord(ctx context.Context, cmd pmbus.Command) (uint16, error) {
	v, err := p.transport.ReadWord(ctx, byte(cmd))
	if err != nil {
		return 0, fmt.Errorf("psu: could not read %s: %w", cmd, err)
	}
	return v, nil
}

func (p *PSU) readLinear11(ctx context.Context, cmd pmbus.Command) (float64, error) {
	word, err := p.readWord(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return linear.Decode11(word), nil
}

func (p *PSU) readLinear16(ctx context.Context, cmd pmbus.Command) (float64, error) {
	exp := p.refreshExponent(ctx)
	word, err := p.readWord(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return linear.Decode16(word, exp), nil
}

func (p *PSU) writeLinear16(ctx context.Context, cmd pmbus.Command, volts float64) error {
	exp := p.refreshExponent(ctx)
	if !linear.Fits16(volts, exp) {
		return fmt.Errorf("%w: %s %.4f V with exponent %d", ErrOutOfRange, cmd, volts, exp)
	}
	err := p.transport.WriteWord(ctx, byte(cmd), linear.Encode16(volts, exp))
	if err != nil {
		return fmt.Errorf("psu: could not write %s: %w", cmd, err)
	}
	return nil
}

func (p *PSU) readString(ctx context.Context, cmd pmbus.Command) (string, error) {
	buf := make([]byte, MfrInfoCapacity-1)
	n, err := p.transport.ReadBlock(ctx, byte(cmd), buf)
	if err != nil {
		return "", fmt.Errorf("psu: could not read %s: %w", cmd, err)
	}
	return string(buf[:n]), nil
}
