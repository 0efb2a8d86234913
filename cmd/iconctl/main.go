// iconctl renders the Android, iOS and web launcher icon set from one SVG.
// It takes no arguments; see internal/config for the optional iconctl.toml
// and ICONCTL_* overrides.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/iconctl/internal/config"
	"github.com/danmuck/iconctl/internal/deps"
	"github.com/danmuck/iconctl/internal/generator"
	"github.com/danmuck/iconctl/internal/logging"
	"github.com/danmuck/iconctl/internal/raster"
	"github.com/danmuck/iconctl/internal/tools"
)

func main() {
	logging.ConfigureRuntime()
	os.Exit(run(os.Stdout, os.Stderr, tools.ExecRunner{}))
}

func run(stdout io.Writer, stderr io.Writer, runner tools.CommandRunner) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "iconctl: %v\n", err)
		return 1
	}

	gen, err := newGenerator(cfg, stdout, runner)
	if err != nil {
		fmt.Fprintf(stderr, "iconctl: %v\n", err)
		return 1
	}

	report, err := gen.Run()
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
	}
	return generator.ExitCode(report, err)
}

func newGenerator(cfg config.Config, stdout io.Writer, runner tools.CommandRunner) (*generator.Generator, error) {
	rasterizer, err := raster.New(cfg.Backend, cfg.Tool, runner)
	if err != nil {
		return nil, err
	}

	var checker generator.DependencyChecker
	if raster.NeedsExternalTool(cfg.Backend) {
		c, err := deps.NewChecker(deps.CheckerConfig{
			Tool:           cfg.Tool,
			PackageManager: cfg.PackageManager,
			InstallCommand: cfg.InstallCommand,
			Runner:         runner,
		})
		if err != nil {
			return nil, err
		}
		checker = c
	}

	return generator.New(generator.Config{
		Source:     cfg.Source,
		Root:       cfg.Root,
		Rasterizer: rasterizer,
		Checker:    checker,
		Verify:     cfg.Verify,
		Out:        stdout,
	})
}
