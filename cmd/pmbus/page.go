package main

import (
	"context"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus/cmd/pmbus/console"
	"github.com/mklimuk/pmbus/psu"
)

var pageCmd = cli.Command{
	Name:  "page",
	Usage: "select the output rail of multi-rail supplies",
	Subcommands: cli.Commands{
		{
			Name:  "get",
			Usage: "read PAGE",
			Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
				page, err := p.Page(ctx)
				if err != nil {
					return console.ExitErr("page read failed", err)
				}
				console.Value("page", page)
				return nil
			}),
		},
		{
			Name:      "set",
			Usage:     "write PAGE",
			ArgsUsage: "<page>",
			Action: withPSU(func(ctx context.Context, c *cli.Context, p *psu.PSU) error {
				page, err := strconv.ParseUint(c.Args().First(), 0, 8)
				if err != nil {
					return console.Exit(1, "invalid page %q: %s", c.Args().First(), console.Red(err))
				}
				err = p.SetPage(ctx, byte(page))
				if err != nil {
					return console.ExitErr("page set failed", err)
				}
				console.Value("page", page)
				return nil
			}),
		},
	},
}
