package i2c

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// GenericBus is a PMBus transport over a Linux i2c-dev bus opened through
// periph.io.
type GenericBus struct {
	*Bus
	closer io.Closer
}

// NewGenericBus opens the named bus ("" selects the first one available).
func NewGenericBus(dev string, opts ...Option) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	b := NewBus(bus, opts...)
	for _, driver := range state.Loaded {
		b.log.Debug("host driver loaded", "driver", driver.String())
	}
	return &GenericBus{
		Bus:    b,
		closer: bus,
	}, nil
}

func (b *GenericBus) Close() error {
	return b.closer.Close()
}
