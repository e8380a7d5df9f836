package pmbus

import "fmt"

// Command is a PMBus command code.
type Command byte

// Standard PMBus command codes.
const (
	CmdPage              Command = 0x00
	CmdOperation         Command = 0x01
	CmdOnOffConfig       Command = 0x02
	CmdClearFaults       Command = 0x03
	CmdVoutMode          Command = 0x20
	CmdVoutCommand       Command = 0x21
	CmdVoutMax           Command = 0x24
	CmdStatusByte        Command = 0x78
	CmdStatusWord        Command = 0x79
	CmdStatusVout        Command = 0x7A
	CmdStatusIout        Command = 0x7B
	CmdStatusInput       Command = 0x7C
	CmdStatusTemperature Command = 0x7D
	CmdReadVin           Command = 0x88
	CmdReadIin           Command = 0x89
	CmdReadVout          Command = 0x8B
	CmdReadIout          Command = 0x8C
	CmdReadTemperature1  Command = 0x8D
	CmdReadTemperature2  Command = 0x8E
	CmdReadPout          Command = 0x96
	CmdReadPin           Command = 0x97
	CmdMfrID             Command = 0x99
	CmdMfrModel          Command = 0x9A
	CmdMfrRevision       Command = 0x9B
	CmdMfrSerial         Command = 0x9E
)

// OPERATION register values.
const (
	OperationOff byte = 0x00
	OperationOn  byte = 0x80
)

var commandNames = map[Command]string{
	CmdPage:              "PAGE",
	CmdOperation:         "OPERATION",
	CmdOnOffConfig:       "ON_OFF_CONFIG",
	CmdClearFaults:       "CLEAR_FAULTS",
	CmdVoutMode:          "VOUT_MODE",
	CmdVoutCommand:       "VOUT_COMMAND",
	CmdVoutMax:           "VOUT_MAX",
	CmdStatusByte:        "STATUS_BYTE",
	CmdStatusWord:        "STATUS_WORD",
	CmdStatusVout:        "STATUS_VOUT",
	CmdStatusIout:        "STATUS_IOUT",
	CmdStatusInput:       "STATUS_INPUT",
	CmdStatusTemperature: "STATUS_TEMPERATURE",
	CmdReadVin:           "READ_VIN",
	CmdReadIin:           "READ_IIN",
	CmdReadVout:          "READ_VOUT",
	CmdReadIout:          "READ_IOUT",
	CmdReadTemperature1:  "READ_TEMPERATURE_1",
	CmdReadTemperature2:  "READ_TEMPERATURE_2",
	CmdReadPout:          "READ_POUT",
	CmdReadPin:           "READ_PIN",
	CmdMfrID:             "MFR_ID",
	CmdMfrModel:          "MFR_MODEL",
	CmdMfrRevision:       "MFR_REVISION",
	CmdMfrSerial:         "MFR_SERIAL",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CMD_%#02x", byte(c))
}
