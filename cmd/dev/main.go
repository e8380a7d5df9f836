package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mklimuk/pmbus/cmd/dev/cmd"
)

func newLogger(debug bool) *slog.Logger {
	charm := log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "dev",
	})
	charm.SetColorProfile(termenv.TrueColor)
	charm.SetLevel(log.InfoLevel)
	if debug {
		charm.SetReportCaller(true)
		charm.SetLevel(log.DebugLevel)
	}
	return slog.New(charm)
}

func main() {
	var debug bool
	rootCmd := &cobra.Command{
		Use:          "dev",
		Short:        "build and check tool for the pmbus cli",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(debug))
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(
		cmd.BuildCmd(),
		cmd.SmokeCmd(),
		cmd.CheckCmd(),
		cmd.TestCmd(),
		cmd.LintCmd(),
	)

	err := rootCmd.Execute()
	if err != nil {
		slog.Error("dev command failed", "error", err)
		os.Exit(1)
	}
}
