package psu

import (
	"context"
	"strings"

	"github.com/mklimuk/pmbus"
)

// StatusByte is the STATUS_BYTE summary register.
type StatusByte byte

const (
	StatusNoneOfTheAbove StatusByte = 1 << iota
	StatusCML
	StatusTemperature
	StatusVinUVFault
	StatusIoutOCFault
	StatusVoutOVFault
	StatusOff
	StatusBusy
)

var statusByteNames = []string{
	"NONE_OF_THE_ABOVE",
	"CML",
	"TEMPERATURE",
	"VIN_UV_FAULT",
	"IOUT_OC_FAULT",
	"VOUT_OV_FAULT",
	"OFF",
	"BUSY",
}

// Flags lists the names of the bits that are set, lowest bit first.
func (s StatusByte) Flags() []string {
	return flagNames(uint16(s), statusByteNames)
}

func (s StatusByte) String() string {
	return joinFlags(s.Flags())
}

func (s StatusByte) MarshalYAML() (interface{}, error) {
	return s.Flags(), nil
}

// StatusWord is the STATUS_WORD register; its low byte mirrors STATUS_BYTE.
type StatusWord uint16

const (
	StatusWordUnknown StatusWord = 1 << (iota + 8)
	StatusWordOther
	StatusWordFans
	StatusWordPowerGoodN
	StatusWordMfr
	StatusWordInput
	StatusWordIoutPout
	StatusWordVout
)

var statusWordNames = append(append([]string{}, statusByteNames...),
	"UNKNOWN",
	"OTHER",
	"FANS",
	"POWER_GOOD#",
	"MFR_SPECIFIC",
	"INPUT",
	"IOUT_POUT",
	"VOUT",
)

// Low returns the STATUS_BYTE part of the word.
func (s StatusWord) Low() StatusByte {
	return StatusByte(s & 0xFF)
}

func (s StatusWord) Flags() []string {
	return flagNames(uint16(s), statusWordNames)
}

func (s StatusWord) String() string {
	return joinFlags(s.Flags())
}

func (s StatusWord) MarshalYAML() (interface{}, error) {
	return s.Flags(), nil
}

func flagNames(v uint16, names []string) []string {
	var out []string
	for i, name := range names {
		if v&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	return out
}

func joinFlags(flags []string) string {
	if len(flags) == 0 {
		return "OK"
	}
	return strings.Join(flags, "|")
}

// Status is a snapshot of all status registers.
type Status struct {
	Byte        StatusByte `yaml:"status_byte"`
	Word        StatusWord `yaml:"status_word"`
	Vout        byte       `yaml:"status_vout"`
	Iout        byte       `yaml:"status_iout"`
	Input       byte       `yaml:"status_input"`
	Temperature byte       `yaml:"status_temperature"`
}

func (p *PSU) StatusByte(ctx context.Context) (StatusByte, error) {
	v, err := p.readByte(ctx, pmbus.CmdStatusByte)
	return StatusByte(v), err
}

func (p *PSU) StatusWord(ctx context.Context) (StatusWord, error) {
	v, err := p.readWord(ctx, pmbus.CmdStatusWord)
	return StatusWord(v), err
}

func (p *PSU) StatusVout(ctx context.Context) (byte, error) {
	return p.readByte(ctx, pmbus.CmdStatusVout)
}

func (p *PSU) StatusIout(ctx context.Context) (byte, error) {
	return p.readByte(ctx, pmbus.CmdStatusIout)
}

func (p *PSU) StatusInput(ctx context.Context) (byte, error) {
	return p.readByte(ctx, pmbus.CmdStatusInput)
}

func (p *PSU) StatusTemperature(ctx context.Context) (byte, error) {
	return p.readByte(ctx, pmbus.CmdStatusTemperature)
}

// Status reads every status register. It stops at the first failure.
func (p *PSU) Status(ctx context.Context) (Status, error) {
	var s Status
	var err error
	if s.Byte, err = p.StatusByte(ctx); err != nil {
		return Status{}, err
	}
	if s.Word, err = p.StatusWord(ctx); err != nil {
		return Status{}, err
	}
	if s.Vout, err = p.StatusVout(ctx); err != nil {
		return Status{}, err
	}
	if s.Iout, err = p.StatusIout(ctx); err != nil {
		return Status{}, err
	}
	if s.Input, err = p.StatusInput(ctx); err != nil {
		return Status{}, err
	}
	if s.Temperature, err = p.StatusTemperature(ctx); err != nil {
		return Status{}, err
	}
	return s, nil
}
