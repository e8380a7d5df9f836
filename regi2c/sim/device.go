// Package sim simulates an I2Cv2 master peripheral wired to a PMBus power
// supply so the transaction engine can run without hardware.
package sim

import (
	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/linear"
)

// Device is a simulated PMBus target. Reads are served from Blocks, Words
// and Bytes in that order of precedence; completed writes update Bytes or
// Words and are appended to Writes.
type Device struct {
	Address byte
	Bytes   map[byte]byte
	Words   map[byte]uint16
	Blocks  map[byte][]byte
	// Unsupported command codes are NACKed when received.
	Unsupported map[byte]bool
	Writes      [][]byte
}

func NewDevice(address byte) *Device {
	return &Device{
		Address:     address,
		Bytes:       make(map[byte]byte),
		Words:       make(map[byte]uint16),
		Blocks:      make(map[byte][]byte),
		Unsupported: make(map[byte]bool),
	}
}

// Output telemetry reported by NewPSU while the output is enabled.
const (
	psuIout = 2.0
	psuPin  = 30.0
)

// NewPSU returns a device populated like a 12 V supply that is switched off.
func NewPSU(address byte) *Device {
	d := NewDevice(address)
	d.Bytes[byte(pmbus.CmdPage)] = 0x00
	d.Bytes[byte(pmbus.CmdOperation)] = pmbus.OperationOff
	d.Bytes[byte(pmbus.CmdOnOffConfig)] = 0x1A
	d.Bytes[byte(pmbus.CmdVoutMode)] = 0x17 // linear, exponent -9
	d.Bytes[byte(pmbus.CmdStatusByte)] = statusOff
	d.Bytes[byte(pmbus.CmdStatusVout)] = 0x00
	d.Bytes[byte(pmbus.CmdStatusIout)] = 0x00
	d.Bytes[byte(pmbus.CmdStatusInput)] = 0x00
	d.Bytes[byte(pmbus.CmdStatusTemperature)] = 0x00
	d.Words[byte(pmbus.CmdStatusWord)] = statusOff | statusPowerGoodN
	d.Words[byte(pmbus.CmdVoutCommand)] = linear.Encode16(12.0, -9)
	d.Words[byte(pmbus.CmdVoutMax)] = linear.Encode16(14.0, -9)
	d.Words[byte(pmbus.CmdReadVout)] = 0
	d.Words[byte(pmbus.CmdReadVin)] = linear.Encode11(230.0, -2)
	d.Words[byte(pmbus.CmdReadIin)] = linear.Encode11(0.0625, -6)
	d.Words[byte(pmbus.CmdReadIout)] = 0
	d.Words[byte(pmbus.CmdReadPout)] = 0
	d.Words[byte(pmbus.CmdReadPin)] = linear.Encode11(2.5, -2)
	d.Words[byte(pmbus.CmdReadTemperature1)] = linear.Encode11(31.5, -1)
	d.Words[byte(pmbus.CmdReadTemperature2)] = linear.Encode11(28.25, -2)
	d.Blocks[byte(pmbus.CmdMfrID)] = []byte("ACME")
	d.Blocks[byte(pmbus.CmdMfrModel)] = []byte("CX600-12")
	d.Blocks[byte(pmbus.CmdMfrRevision)] = []byte("A2")
	d.Blocks[byte(pmbus.CmdMfrSerial)] = []byte("SN20241017")
	return d
}

const (
	statusOff        = 0x40
	statusPowerGoodN = 0x0800
)

// response is the byte stream the device clocks out for a read of cmd.
func (d *Device) response(cmd byte) []byte {
	if block, ok := d.Blocks[cmd]; ok {
		out := make([]byte, 0, len(block)+1)
		out = append(out, byte(len(block)))
		return append(out, block...)
	}
	if word, ok := d.Words[cmd]; ok {
		return []byte{byte(word), byte(word >> 8)}
	}
	if b, ok := d.Bytes[cmd]; ok {
		return []byte{b}
	}
	return nil
}

// write applies a completed write transaction (command code first).
func (d *Device) write(payload []byte) {
	if len(payload) == 0 {
		return
	}
	d.Writes = append(d.Writes, append([]byte(nil), payload...))
	cmd := payload[0]
	switch len(payload) {
	case 1:
		if pmbus.Command(cmd) == pmbus.CmdClearFaults {
			d.clearFaults()
		}
	case 2:
		d.Bytes[cmd] = payload[1]
		if pmbus.Command(cmd) == pmbus.CmdOperation {
			d.update()
		}
	case 3:
		d.Words[cmd] = uint16(payload[1]) | uint16(payload[2])<<8
		if pmbus.Command(cmd) == pmbus.CmdVoutCommand {
			d.update()
		}
	}
}

func (d *Device) clearFaults() {
	for _, cmd := range []pmbus.Command{pmbus.CmdStatusVout, pmbus.CmdStatusIout, pmbus.CmdStatusInput, pmbus.CmdStatusTemperature} {
		if _, ok := d.Bytes[byte(cmd)]; ok {
			d.Bytes[byte(cmd)] = 0
		}
	}
	if _, ok := d.Bytes[byte(pmbus.CmdStatusByte)]; ok {
		d.Bytes[byte(pmbus.CmdStatusByte)] &= statusOff
	}
	if _, ok := d.Words[byte(pmbus.CmdStatusWord)]; ok {
		d.Words[byte(pmbus.CmdStatusWord)] &= statusOff | statusPowerGoodN
	}
}

// update recomputes output telemetry from OPERATION and VOUT_COMMAND.
func (d *Device) update() {
	on := d.Bytes[byte(pmbus.CmdOperation)]&pmbus.OperationOn != 0
	status := d.Bytes[byte(pmbus.CmdStatusByte)]
	word := d.Words[byte(pmbus.CmdStatusWord)]
	if !on {
		d.Words[byte(pmbus.CmdReadVout)] = 0
		d.Words[byte(pmbus.CmdReadIout)] = 0
		d.Words[byte(pmbus.CmdReadPout)] = 0
		d.Bytes[byte(pmbus.CmdStatusByte)] = status | statusOff
		d.Words[byte(pmbus.CmdStatusWord)] = word | statusOff | statusPowerGoodN
		return
	}
	vout := d.Words[byte(pmbus.CmdVoutCommand)]
	volts := linear.Decode16(vout, linear.Exponent(d.Bytes[byte(pmbus.CmdVoutMode)]))
	d.Words[byte(pmbus.CmdReadVout)] = vout
	d.Words[byte(pmbus.CmdReadIout)] = linear.Encode11(psuIout, -6)
	d.Words[byte(pmbus.CmdReadPout)] = linear.Encode11(volts*psuIout, -3)
	d.Words[byte(pmbus.CmdReadPin)] = linear.Encode11(psuPin, -3)
	d.Bytes[byte(pmbus.CmdStatusByte)] = status &^ statusOff
	d.Words[byte(pmbus.CmdStatusWord)] = word &^ (statusOff | statusPowerGoodN)
}
