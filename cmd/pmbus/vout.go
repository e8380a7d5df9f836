package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus/cmd/pmbus/console"
	"github.com/mklimuk/pmbus/psu"
)

var voutCmd = cli.Command{
	Name:  "vout",
	Usage: "output voltage setpoint",
	Subcommands: cli.Commands{
		&voutGetCmd,
		&voutSetCmd,
		&voutMaxCmd,
	},
}

var voutGetCmd = cli.Command{
	Name:  "get",
	Usage: "read the VOUT_COMMAND setpoint",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		v, err := p.Vout(ctx)
		if err != nil {
			return console.ExitErr("vout read failed", err)
		}
		console.Value("vout_command", fmt.Sprintf("%.4f V", v))
		return nil
	}),
}

var voutSetCmd = cli.Command{
	Name:      "set",
	Usage:     "program the VOUT_COMMAND setpoint",
	ArgsUsage: "<volts>",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		volts, err := parseVolts(c)
		if err != nil {
			return err
		}
		err = p.SetVout(ctx, volts)
		if err != nil {
			return console.ExitErr("vout set failed", err)
		}
		console.PInfof(console.PictoPin, "vout set to %s", console.White(fmt.Sprintf("%.4f V", volts)))
		return nil
	}),
}

var voutMaxCmd = cli.Command{
	Name:      "max",
	Usage:     "read or program VOUT_MAX",
	ArgsUsage: "[volts]",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		if c.NArg() == 0 {
			v, err := p.VoutMax(ctx)
			if err != nil {
				return console.ExitErr("vout max read failed", err)
			}
			console.Value("vout_max", fmt.Sprintf("%.4f V", v))
			return nil
		}
		volts, err := parseVolts(c)
		if err != nil {
			return err
		}
		err = p.SetVoutMax(ctx, volts)
		if err != nil {
			return console.ExitErr("vout max set failed", err)
		}
		console.PInfof(console.PictoPin, "vout max set to %s", console.White(fmt.Sprintf("%.4f V", volts)))
		return nil
	}),
}

var voutModeCmd = cli.Command{
	Name:  "vout-mode",
	Usage: "read VOUT_MODE and show the Linear16 exponent",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		exp, err := p.VoutMode(ctx)
		if err != nil {
			return console.ExitErr("vout mode read failed", err)
		}
		console.Value("exponent", exp)
		return nil
	}),
}

func parseVolts(c *cli.Context) (float64, error) {
	if c.NArg() != 1 {
		return 0, console.Exit(1, "expected exactly one voltage argument")
	}
	volts, err := strconv.ParseFloat(c.Args().First(), 64)
	if err != nil {
		return 0, console.Exit(1, "invalid voltage %q: %s", c.Args().First(), console.Red(err))
	}
	return volts, nil
}
