package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

type check struct {
	name string
	run  func(ctx context.Context) error
}

// checks run in order; the smoke run goes last as it is the slowest.
var checks = []check{
	{"lint", func(context.Context) error { return test.Lint() }},
	{"test", func(context.Context) error { return test.Test() }},
	{"smoke", func(ctx context.Context) error { return runSmoke(ctx, "sim") }},
}

func runChecks(ctx context.Context, all []check, skip []string) error {
	for _, c := range all {
		if slices.Contains(skip, c.name) {
			slog.Info("skipping check", "check", c.name)
			continue
		}
		slog.Info("running check", "check", c.name)
		err := c.run(ctx)
		if err != nil {
			return fmt.Errorf("%s failed: %w", c.name, err)
		}
	}
	return nil
}

func TestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run unit tests, the register engine included, against the simulated bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd.Context(), checks, []string{"lint", "smoke"})
		},
	}
}

func LintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Run linting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd.Context(), checks, []string{"test", "smoke"})
		},
	}
}

// CheckCmd is the pre-push gate.
func CheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Lint, test and smoke the cli against the simulated supply",
		RunE: func(cmd *cobra.Command, args []string) error {
			skip, _ := cmd.Flags().GetStringSlice("skip")
			return runChecks(cmd.Context(), checks, skip)
		},
	}
	cmd.Flags().StringSlice("skip", nil, "checks to skip (lint, test, smoke)")
	return cmd
}
