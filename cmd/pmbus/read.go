package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus/cmd/pmbus/console"
	"github.com/mklimuk/pmbus/psu"
)

var readCmd = cli.Command{
	Name:  "read",
	Usage: "read all telemetry",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yaml", Usage: "print as YAML"},
		&cli.BoolFlag{Name: "lossy", Usage: "print 0 for registers that do not answer instead of failing"},
	},
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		if c.Bool("lossy") {
			printLossy(ctx, psu.NewLossy(p))
			return nil
		}
		t, err := p.Sense(ctx)
		if err != nil {
			return console.ExitErr("telemetry read failed", err)
		}
		if c.Bool("yaml") {
			return console.YAML(t)
		}
		console.Value("vout", t.Vout)
		console.Value("vin", t.Vin)
		console.Value("iin", t.Iin)
		console.Value("iout", t.Iout)
		console.Value("pin", t.Pin)
		console.Value("pout", t.Pout)
		console.Value("temperature1", t.Temperature1)
		console.Value("temperature2", t.Temperature2)
		return nil
	}),
}

func printLossy(ctx context.Context, l psu.Lossy) {
	readings := []struct {
		label string
		read  func(context.Context) float64
	}{
		{"vout", l.ReadVout},
		{"vin", l.ReadVin},
		{"iin", l.ReadIin},
		{"iout", l.ReadIout},
		{"pin", l.ReadPin},
		{"pout", l.ReadPout},
		{"temperature1", l.ReadTemperature1},
		{"temperature2", l.ReadTemperature2},
	}
	for _, r := range readings {
		console.Value(r.label, r.read(ctx))
	}
	console.Value("status", l.StatusWord(ctx))
}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "read the status registers",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		s, err := p.Status(ctx)
		if err != nil {
			return console.ExitErr("status read failed", err)
		}
		console.Printf("%s\n", console.Flags(s.Word, s.Word == 0))
		return console.YAML(s)
	}),
}

var infoCmd = cli.Command{
	Name:  "info",
	Usage: "read the manufacturer identification",
	Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
		info, err := p.Info(ctx)
		if err != nil {
			return console.ExitErr("info read failed", err)
		}
		return console.YAML(info)
	}),
}
