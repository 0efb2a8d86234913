package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/danmuck/iconctl/internal/deps"
	"github.com/danmuck/iconctl/internal/raster"
)

var ErrInvalidConfig = errors.New("config: invalid")

const (
	EnvConfigPath = "ICONCTL_CONFIG"

	DefaultConfigFile = "iconctl.toml"
	DefaultSource     = "assets/smartpos_icon.svg"
	DefaultRoot       = "."
)

// Config is the resolved run configuration. Zero-config runs use Default().
type Config struct {
	Source         string
	Root           string
	Backend        raster.Backend
	Tool           string
	PackageManager deps.PackageManager
	InstallCommand []string
	Verify         bool
}

func Default() Config {
	return Config{
		Source:         DefaultSource,
		Root:           DefaultRoot,
		Backend:        raster.BackendRsvg,
		Tool:           deps.DefaultTool,
		PackageManager: deps.PackageManagerBrew,
		Verify:         true,
	}
}

type fileConfig struct {
	Source         string   `toml:"source"`
	Root           string   `toml:"root"`
	Backend        string   `toml:"backend"`
	Tool           string   `toml:"tool"`
	PackageManager string   `toml:"package_manager"`
	InstallCommand []string `toml:"install_command"`
	Verify         bool     `toml:"verify"`
}

type envConfig struct {
	Source         string   `env:"ICONCTL_SOURCE"`
	Root           string   `env:"ICONCTL_ROOT"`
	Backend        string   `env:"ICONCTL_BACKEND"`
	Tool           string   `env:"ICONCTL_TOOL"`
	PackageManager string   `env:"ICONCTL_PACKAGE_MANAGER"`
	InstallCommand []string `env:"ICONCTL_INSTALL" envSeparator:" "`
	Verify         string   `env:"ICONCTL_VERIFY"`
}

// Load resolves defaults, then the TOML file, then environment overrides.
// The default file is optional; a path named by ICONCTL_CONFIG must exist.
func Load() (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv(EnvConfigPath))
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile applies only path on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := applyFile(&cfg, path); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	if meta.IsDefined("source") {
		cfg.Source = strings.TrimSpace(raw.Source)
	}
	if meta.IsDefined("root") {
		cfg.Root = strings.TrimSpace(raw.Root)
	}
	if meta.IsDefined("backend") {
		cfg.Backend = raster.Backend(strings.TrimSpace(raw.Backend))
	}
	if meta.IsDefined("tool") {
		cfg.Tool = strings.TrimSpace(raw.Tool)
	}
	if meta.IsDefined("package_manager") {
		cfg.PackageManager = deps.PackageManager(strings.TrimSpace(raw.PackageManager))
	}
	if meta.IsDefined("install_command") {
		cfg.InstallCommand = normalizeArgs(raw.InstallCommand)
	}
	if meta.IsDefined("verify") {
		cfg.Verify = raw.Verify
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if v := strings.TrimSpace(raw.Source); v != "" {
		cfg.Source = v
	}
	if v := strings.TrimSpace(raw.Root); v != "" {
		cfg.Root = v
	}
	if v := strings.TrimSpace(raw.Backend); v != "" {
		cfg.Backend = raster.Backend(v)
	}
	if v := strings.TrimSpace(raw.Tool); v != "" {
		cfg.Tool = v
	}
	if v := strings.TrimSpace(raw.PackageManager); v != "" {
		cfg.PackageManager = deps.PackageManager(v)
	}
	if args := normalizeArgs(raw.InstallCommand); len(args) > 0 {
		cfg.InstallCommand = args
	}
	if v := strings.TrimSpace(raw.Verify); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: ICONCTL_VERIFY=%q: %v", ErrInvalidConfig, raw.Verify, err)
		}
		cfg.Verify = b
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Root) == "" {
		return fmt.Errorf("%w: missing root", ErrInvalidConfig)
	}
	if _, err := raster.New(cfg.Backend, cfg.Tool, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(cfg.InstallCommand) == 0 {
		if _, err := deps.InstallCommand(cfg.PackageManager); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func normalizeArgs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, arg := range in {
		v := strings.TrimSpace(arg)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
