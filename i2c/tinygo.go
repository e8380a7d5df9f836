package i2c

import "tinygo.org/x/drivers"

// NewTinyGoBus returns a PMBus transport over a tinygo drivers.I2C bus such
// as machine.I2C0.
func NewTinyGoBus(bus drivers.I2C, opts ...Option) *Bus {
	return NewBus(bus, opts...)
}
