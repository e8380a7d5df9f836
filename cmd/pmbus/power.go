package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus/cmd/pmbus/console"
	"github.com/mklimuk/pmbus/psu"
)

var powerCmd = cli.Command{
	Name:  "power",
	Usage: "switch the output on or off",
	Subcommands: cli.Commands{
		&powerOnCmd,
		&powerOffCmd,
	},
}

var powerOnCmd = cli.Command{
	Name:  "on",
	Usage: "enable the output (OPERATION 0x80)",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		err := p.PowerOn(ctx)
		if err != nil {
			return console.ExitErr("power on failed", err)
		}
		console.PInfof(console.PictoBolt, "output %s", console.Green("on"))
		return nil
	}),
}

var powerOffCmd = cli.Command{
	Name:  "off",
	Usage: "disable the output (OPERATION 0x00)",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		if !c.Bool("yes") {
			ok, err := console.Confirm("switch the output off?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if !ok {
				console.Infof("aborted")
				return nil
			}
		}
		err := p.PowerOff(ctx)
		if err != nil {
			return console.ExitErr("power off failed", err)
		}
		console.PInfof(console.PictoStop, "output %s", console.Yellow("off"))
		return nil
	}),
}

var clearFaultsCmd = cli.Command{
	Name:  "clear-faults",
	Usage: "clear latched faults (CLEAR_FAULTS)",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		err := p.ClearFaults(ctx)
		if err != nil {
			return console.ExitErr("clear faults failed", err)
		}
		console.Infof("faults cleared")
		return nil
	}),
}
