package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// smokeSteps exercise the CLI end to end against the simulated supply.
var smokeSteps = [][]string{
	{"vout-mode"},
	{"vout", "get"},
	{"vout", "set", "5"},
	{"power", "on"},
	{"read"},
	{"read", "--lossy"},
	{"status"},
	{"info"},
	{"clear-faults"},
	{"power", "off", "--yes"},
}

func runSmoke(ctx context.Context, adapter string) error {
	for _, step := range smokeSteps {
		runArgs := append([]string{"run", "./cmd/pmbus", "--adapter", adapter}, step...)
		slog.Info("running smoke step", "args", step)
		run := exec.CommandContext(ctx, "go", runArgs...)
		run.Stdout = os.Stdout
		run.Stderr = os.Stderr
		if err := run.Run(); err != nil {
			return fmt.Errorf("smoke step %v failed: %w", step, err)
		}
	}
	return nil
}

func SmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the pmbus cli against the simulated supply or real hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := cmd.Flags().GetString("adapter")
			if err != nil {
				return fmt.Errorf("could not get adapter flag: %w", err)
			}
			return runSmoke(cmd.Context(), adapter)
		},
	}
	cmd.Flags().String("adapter", "sim", "bus adapter to run against")
	return cmd
}
