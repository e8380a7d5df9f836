package cmd

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/gophertribe/devtool/build"
	"github.com/spf13/cobra"
)

const configPackage = "github.com/mklimuk/pmbus/pkg/config"

// target is a named platform the pmbus cli is shipped for.
type target struct {
	OS   string
	Arch string
}

// targets lists the boards the adapters are used on. nanopi carries the
// gobot adapter, rpi the generic i2c-dev one.
var targets = map[string]target{
	"host":   {OS: runtime.GOOS, Arch: runtime.GOARCH},
	"nanopi": {OS: "linux", Arch: "arm"},
	"rpi":    {OS: "linux", Arch: "arm64"},
}

func targetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func resolveTarget(name string) (target, error) {
	t, ok := targets[name]
	if !ok {
		return target{}, fmt.Errorf("unknown target %q (one of %s)", name, strings.Join(targetNames(), ", "))
	}
	return t, nil
}

func (t target) native() bool {
	return t.OS == runtime.GOOS && t.Arch == runtime.GOARCH
}

// output is the binary path; cross builds get a platform suffix so several
// targets can sit in dist side by side.
func (t target) output() string {
	if t.native() {
		return "dist/pmbus"
	}
	return fmt.Sprintf("dist/pmbus-%s-%s", t.OS, t.Arch)
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the pmbus cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("target")
			version, _ := cmd.Flags().GetString("version")
			docker, _ := cmd.Flags().GetBool("docker")
			t, err := resolveTarget(name)
			if err != nil {
				return err
			}
			if !docker || t.native() {
				// the mcp2221 adapter links hidapi
				return build.GoBuild(t.output(), "./cmd/pmbus", build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: configPackage,
					EnableCgo:     true,
					Arch:          t.Arch,
					OS:            t.OS,
				})
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", runtime.GOOS, runtime.GOARCH), []string{"build", "--target", name, "--version", version}, build.DockerBuildOpts{
				NoCache: noCache,
				Image:   "gophertribe/gobuild:1.25-bookworm",
			})
		},
	}
	cmd.Flags().String("target", "host", "platform to build for: "+strings.Join(targetNames(), ", "))
	cmd.Flags().String("version", "latest", "version injected into the binary")
	cmd.Flags().Bool("docker", false, "cross-compile inside the build image instead of the local toolchain")
	cmd.Flags().Bool("no-cache", false, "do not use cache when building in docker")
	return cmd
}
