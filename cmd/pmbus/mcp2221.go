package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus/adapter"
	"github.com/mklimuk/pmbus/busctx"
	"github.com/mklimuk/pmbus/cmd/pmbus/console"
	"github.com/mklimuk/pmbus/pkg/config"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB bridge",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "show the I2C engine state",
	Action: withBridge(func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
		return a.Status(ctx)
	}),
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Action: withBridge(func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
		return a.ReleaseBus(ctx)
	}),
}

func withBridge(fn func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		a := adapter.NewMCP2221(adapter.WithDeviceID(cfg.DeviceID))
		ctx := busctx.SetVerbose(c.Context, c.Bool("verbose"))
		status, err := fn(ctx, a)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return console.YAML(status)
	}
}
