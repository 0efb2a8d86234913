package deps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/iconctl/internal/tools"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingCapability      = errors.New("deps: rasterization tool unavailable")
	ErrUnsupportedPackageTool = errors.New("deps: unsupported package manager")
)

type PackageManager string

const (
	PackageManagerBrew   PackageManager = "brew"
	PackageManagerApt    PackageManager = "apt"
	PackageManagerDnf    PackageManager = "dnf"
	PackageManagerPacman PackageManager = "pacman"
	PackageManagerApk    PackageManager = "apk"
)

const DefaultTool = "rsvg-convert"

var installCommands = map[PackageManager][]string{
	PackageManagerBrew:   {"brew", "install", "librsvg"},
	PackageManagerApt:    {"apt-get", "install", "-y", "librsvg2-bin"},
	PackageManagerDnf:    {"dnf", "install", "-y", "librsvg2-tools"},
	PackageManagerPacman: {"pacman", "-S", "--noconfirm", "librsvg"},
	PackageManagerApk:    {"apk", "add", "rsvg-convert"},
}

// InstallCommand returns the argv that installs rsvg-convert with pm.
func InstallCommand(pm PackageManager) ([]string, error) {
	key := PackageManager(strings.ToLower(strings.TrimSpace(string(pm))))
	if key == "" {
		key = PackageManagerBrew
	}
	cmd, ok := installCommands[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPackageTool, pm)
	}
	return append([]string(nil), cmd...), nil
}

// CheckerConfig wires the probe target and the single remediation command.
type CheckerConfig struct {
	Tool           string
	PackageManager PackageManager
	InstallCommand []string
	Runner         tools.CommandRunner
}

// Checker confirms the external rasterizer is invocable, installing it at
// most once when it is not.
type Checker struct {
	tool    string
	install []string
	runner  tools.CommandRunner
}

func NewChecker(cfg CheckerConfig) (*Checker, error) {
	tool := strings.TrimSpace(cfg.Tool)
	if tool == "" {
		tool = DefaultTool
	}

	install := cfg.InstallCommand
	if len(install) == 0 {
		cmd, err := InstallCommand(cfg.PackageManager)
		if err != nil {
			return nil, err
		}
		install = cmd
	}
	if strings.TrimSpace(install[0]) == "" {
		return nil, fmt.Errorf("%w: empty install command", ErrUnsupportedPackageTool)
	}

	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}

	return &Checker{
		tool:    tool,
		install: append([]string(nil), install...),
		runner:  runner,
	}, nil
}

func (c *Checker) Tool() string {
	return c.tool
}

// ManualInstruction is the command a user should run when auto-install fails.
func (c *Checker) ManualInstruction() string {
	return tools.CommandLine(c.install[0], c.install[1:]...)
}

// Ensure returns nil when the tool answers a version probe, possibly after
// one install attempt. Any other outcome wraps ErrMissingCapability.
func (c *Checker) Ensure() error {
	probeErr := c.probe()
	if probeErr == nil {
		log.Debug().Str("tool", c.tool).Msg("deps.check tool available")
		return nil
	}

	log.Warn().Str("tool", c.tool).Err(probeErr).Msg("deps.check tool missing; installing")
	if err := c.runInstall(); err != nil {
		return fmt.Errorf("%w: %s not found and install failed; install it manually: %s: %v",
			ErrMissingCapability, c.tool, c.ManualInstruction(), err)
	}
	if err := c.probe(); err != nil {
		return fmt.Errorf("%w: install completed but %s is still unavailable; install it manually: %s: %v",
			ErrMissingCapability, c.tool, c.ManualInstruction(), err)
	}
	log.Info().Str("tool", c.tool).Msg("deps.check tool installed")
	return nil
}

func (c *Checker) probe() error {
	stdout, stderr, exitCode, err := c.runner.Run(c.tool, "--version")
	if err == nil {
		return nil
	}
	return fmt.Errorf(
		"probe failed cmd=%s args=%q exit=%d stdout=%q stderr=%q: %w",
		c.tool,
		"--version",
		exitCode,
		strings.TrimSpace(string(stdout)),
		strings.TrimSpace(string(stderr)),
		err,
	)
}

func (c *Checker) runInstall() error {
	name, args := c.install[0], c.install[1:]
	log.Info().Str("cmd", name).Strs("args", args).Msg("deps.install exec")
	stdout, stderr, exitCode, err := c.runner.Run(name, args...)
	if err == nil {
		return nil
	}
	return fmt.Errorf(
		"install command failed cmd=%s args=%q exit=%d stdout=%q stderr=%q: %w",
		name,
		strings.Join(args, " "),
		exitCode,
		strings.TrimSpace(string(stdout)),
		strings.TrimSpace(string(stderr)),
		err,
	)
}
