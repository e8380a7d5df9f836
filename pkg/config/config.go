// Package config holds build metadata and the operator tool configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/regi2c"
)

// Build metadata, injected at link time by the dev build command.
var (
	AppVersion = "dev"
	GitCommit  = "none"
	GitBranch  = "unknown"
	BuildTime  = "unknown"
)

func BuildInfo() string {
	return fmt.Sprintf("%s (%s@%s, %s)", AppVersion, GitBranch, GitCommit, BuildTime)
}

// Supported adapters.
const (
	AdapterSim     = "sim"
	AdapterGeneric = "generic"
	AdapterMCP2221 = "mcp2221"
	AdapterNanoPi  = "nanopi"
	AdapterMMIO    = "mmio"
)

var Adapters = []string{AdapterSim, AdapterGeneric, AdapterMCP2221, AdapterNanoPi, AdapterMMIO}

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Adapter selects the bus backend.
	Adapter string `yaml:"adapter"`
	// Device is the i2c-dev bus name for the generic adapter.
	Device  string `yaml:"device"`
	Address uint8  `yaml:"address"`
	// Timeout bounds each wait of the register engine.
	Timeout time.Duration `yaml:"timeout"`
	// Timing is the I2C TIMINGR value for the register engine.
	Timing uint32 `yaml:"timing"`
	// MMIOBase is the physical address of the I2C register block.
	MMIOBase uint64 `yaml:"mmio_base"`
	// GobotBus is the bus number used by the nanopi adapter.
	GobotBus int `yaml:"gobot_bus"`
	// DeviceID selects one of several MCP2221 bridges (-1 for the only one).
	DeviceID int `yaml:"device_id"`
}

func Default() Config {
	return Config{
		Adapter:  AdapterSim,
		Address:  pmbus.DefaultAddress,
		Timeout:  regi2c.DefaultTimeout,
		Timing:   regi2c.DefaultTiming,
		GobotBus: 0,
		DeviceID: -1,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("could not read config: %w", err)
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, fmt.Errorf("could not parse config %s: %w", path, err)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !slices.Contains(Adapters, c.Adapter) {
		return fmt.Errorf("%w: unknown adapter %q", ErrInvalid, c.Adapter)
	}
	if c.Address > 0x7F {
		return fmt.Errorf("%w: address %#02x is not a 7-bit address", ErrInvalid, c.Address)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if c.Adapter == AdapterMMIO && c.MMIOBase == 0 {
		return fmt.Errorf("%w: mmio adapter requires mmio_base", ErrInvalid)
	}
	return nil
}
