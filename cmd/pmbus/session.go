package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/adapter"
	"github.com/mklimuk/pmbus/busctx"
	"github.com/mklimuk/pmbus/cmd/pmbus/console"
	"github.com/mklimuk/pmbus/i2c"
	"github.com/mklimuk/pmbus/pkg/config"
	"github.com/mklimuk/pmbus/psu"
	"github.com/mklimuk/pmbus/regi2c"
	"github.com/mklimuk/pmbus/regi2c/sim"
)

// loadConfig reads the config file and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("address") {
		cfg.Address = uint8(c.Uint("address"))
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	return cfg, cfg.Validate()
}

// openTransport connects the configured adapter. The returned function
// releases it.
func openTransport(cfg config.Config) (pmbus.Transport, func() error, error) {
	switch cfg.Adapter {
	case config.AdapterSim:
		return openEngine(sim.NewBus(sim.NewPSU(cfg.Address)), cfg, nil)
	case config.AdapterMMIO:
		regs, unmap, err := regi2c.MapDevMem(uintptr(cfg.MMIOBase))
		if err != nil {
			return nil, nil, err
		}
		return openEngine(regi2c.NewMapped(regs), cfg, unmap)
	case config.AdapterGeneric:
		bus, err := i2c.NewGenericBus(cfg.Device, i2c.WithAddress(cfg.Address))
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	case config.AdapterMCP2221:
		bridge := adapter.NewMCP2221(adapter.WithDeviceID(cfg.DeviceID))
		return i2c.NewBus(bridge, i2c.WithAddress(cfg.Address)), func() error { return nil }, nil
	case config.AdapterNanoPi:
		bus, finalize, err := adapter.NewNanoPiBus(cfg.GobotBus, cfg.Address)
		if err != nil {
			return nil, nil, err
		}
		return bus, finalize, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
}

func openEngine(periph regi2c.Peripheral, cfg config.Config, release func() error) (pmbus.Transport, func() error, error) {
	e := regi2c.NewEngine(periph,
		regi2c.WithAddress(cfg.Address),
		regi2c.WithTiming(cfg.Timing),
		regi2c.WithTimeout(cfg.Timeout),
	)
	err := e.Init()
	if err != nil {
		if release != nil {
			_ = release()
		}
		return nil, nil, fmt.Errorf("could not init bus: %w", err)
	}
	return e, func() error {
		err := e.Close()
		if release != nil {
			if rerr := release(); err == nil {
				err = rerr
			}
		}
		return err
	}, nil
}

// withTransport runs fn with a connected transport.
func withTransport(fn func(ctx context.Context, c *cli.Context, t pmbus.Transport) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		t, release, err := openTransport(cfg)
		if err != nil {
			return console.Exit(1, "could not open %s adapter: %s", cfg.Adapter, console.Red(err))
		}
		defer func() {
			err := release()
			if err != nil {
				slog.Warn("could not release adapter", "error", err)
			}
		}()
		ctx := busctx.SetVerbose(c.Context, c.Bool("verbose"))
		return fn(ctx, c, t)
	}
}

// withPSU runs fn with a power supply session.
func withPSU(fn func(ctx context.Context, c *cli.Context, p *psu.PSU) error) cli.ActionFunc {
	return withTransport(func(ctx context.Context, c *cli.Context, t pmbus.Transport) error {
		return fn(ctx, c, psu.NewPSU(t))
	})
}
