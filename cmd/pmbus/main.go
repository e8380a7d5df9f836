package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := newApp().Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pmbus"
	app.EnableBashCompletion = true
	app.Version = config.BuildInfo()
	app.Usage = "PMBus power supply control"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and frame dumps",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"PMBUS_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "bus adapter (sim, generic, mcp2221, nanopi, mmio)",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "i2c-dev bus name for the generic adapter",
		},
		&cli.UintFlag{
			Name:  "address",
			Usage: "7-bit device address",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-phase timeout of the register engine",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&powerCmd,
		&clearFaultsCmd,
		&voutCmd,
		&voutModeCmd,
		&readCmd,
		&statusCmd,
		&infoCmd,
		&pageCmd,
		&rawCmd,
		&mcp2221Cmd,
	}
	return app
}
