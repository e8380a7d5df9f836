// Package regi2c drives an I2C master peripheral register by register to run
// SMBus/PMBus transactions.
//
// The register model follows the STM32 "I2Cv2" IP (CR1, CR2, ISR, ICR, TXDR,
// RXDR, TIMINGR) found on STM32F0/F3/F7/G0/G4/H5/L4 and STM32MP1 parts. Only
// the fields the transaction engine needs are exposed through Peripheral so
// the engine can be driven by memory-mapped hardware or by a simulated bus.
package regi2c

import "strings"

// Flag is a set of ISR status bits. ICR clear bits share the same positions.
type Flag uint32

const (
	FlagTXE  Flag = 1 << 0 // transmit data register empty
	FlagRXNE Flag = 1 << 2 // receive data register not empty
	FlagNACK Flag = 1 << 4 // not acknowledge received
	FlagSTOP Flag = 1 << 5 // stop detected
	FlagTC   Flag = 1 << 6 // transfer complete (NBYTES done, no AUTOEND)
)

func (f Flag) String() string {
	var names []string
	for _, n := range []struct {
		flag Flag
		name string
	}{
		{FlagTXE, "TXE"},
		{FlagRXNE, "RXNE"},
		{FlagNACK, "NACKF"},
		{FlagSTOP, "STOPF"},
		{FlagTC, "TC"},
	} {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}

// CR1 and CR2 bit positions.
const (
	cr1PE = 1 << 0

	cr2SADDMask   = 0x3FF
	cr2RDWRN      = 1 << 10
	cr2START      = 1 << 13
	cr2STOP       = 1 << 14
	cr2NBYTESPos  = 16
	cr2NBYTESMask = 0xFF << cr2NBYTESPos
	cr2AUTOEND    = 1 << 25
)

// Control describes one write to CR2: the transfer a START will run.
type Control struct {
	Address byte // 7-bit target address
	Read    bool
	NBytes  byte
	AutoEnd bool // generate STOP once NBytes are transferred
	Start   bool
	Stop    bool
}

// Bits packs c into the CR2 register layout.
func (c Control) Bits() uint32 {
	v := uint32(c.Address)<<1&cr2SADDMask | uint32(c.NBytes)<<cr2NBYTESPos
	if c.Read {
		v |= cr2RDWRN
	}
	if c.AutoEnd {
		v |= cr2AUTOEND
	}
	if c.Start {
		v |= cr2START
	}
	if c.Stop {
		v |= cr2STOP
	}
	return v
}

// ControlFromBits unpacks a CR2 register value.
func ControlFromBits(v uint32) Control {
	return Control{
		Address: byte((v & cr2SADDMask) >> 1),
		Read:    v&cr2RDWRN != 0,
		NBytes:  byte((v & cr2NBYTESMask) >> cr2NBYTESPos),
		AutoEnd: v&cr2AUTOEND != 0,
		Start:   v&cr2START != 0,
		Stop:    v&cr2STOP != 0,
	}
}

// Peripheral is the register surface of an I2C master used by Engine.
type Peripheral interface {
	// Enable programs TIMINGR, sets CR1.PE and clears CR2.
	Enable(timing uint32) error
	// Disable clears CR1.PE.
	Disable() error
	// SetControl overwrites CR2.
	SetControl(c Control)
	// GenerateStop sets CR2.STOP leaving the other fields untouched.
	GenerateStop()
	// Status reads ISR.
	Status() Flag
	// ClearFlags writes ICR.
	ClearFlags(f Flag)
	// WriteData writes TXDR.
	WriteData(b byte)
	// ReadData reads RXDR.
	ReadData() byte
}
