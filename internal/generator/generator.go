package generator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/iconctl/internal/manifest"
	"github.com/danmuck/iconctl/internal/raster"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingSource = errors.New("generator: source image not found")
	ErrInvalidConfig = errors.New("generator: invalid config")
)

// DependencyChecker is the tool-availability gate; see deps.Checker.
type DependencyChecker interface {
	Ensure() error
}

type Config struct {
	Title      string
	Source     string
	Root       string
	Specs      []manifest.IconSpec
	Rasterizer raster.Rasterizer
	// Checker may be nil when the rasterizer needs no host tool.
	Checker DependencyChecker
	Verify  bool
	Out     io.Writer
}

// Generator runs the two fatal gates and then the batch.
type Generator struct {
	title   string
	source  string
	specs   []manifest.IconSpec
	checker DependencyChecker
	batch   *Batch
	out     io.Writer
}

func New(cfg Config) (*Generator, error) {
	source := strings.TrimSpace(cfg.Source)
	if source == "" {
		return nil, fmt.Errorf("%w: missing source", ErrInvalidConfig)
	}
	if cfg.Rasterizer == nil {
		return nil, fmt.Errorf("%w: missing rasterizer", ErrInvalidConfig)
	}
	specs := cfg.Specs
	if specs == nil {
		specs = manifest.Default()
	}
	if err := manifest.Validate(specs); err != nil {
		return nil, err
	}

	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		root = "."
	}
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = "Generating app icons..."
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	return &Generator{
		title:   title,
		source:  source,
		specs:   append([]manifest.IconSpec(nil), specs...),
		checker: cfg.Checker,
		out:     out,
		batch: &Batch{
			Source:     source,
			Root:       root,
			Rasterizer: cfg.Rasterizer,
			Verify:     cfg.Verify,
			Out:        out,
		},
	}, nil
}

// Run returns an error only for fatal gate failures; per-icon failures are
// in the report.
func (g *Generator) Run() (Report, error) {
	if g.checker != nil {
		if err := g.checker.Ensure(); err != nil {
			log.Error().Err(err).Msg("generator.deps check failed")
			return Report{}, err
		}
	}
	if err := ValidateSource(g.source); err != nil {
		log.Error().Err(err).Msg("generator.source check failed")
		return Report{}, err
	}

	fmt.Fprintln(g.out, g.title)
	fmt.Fprintf(g.out, "Source: %s\n", g.source)
	fmt.Fprintf(g.out, "Total icons to generate: %d\n", len(g.specs))
	fmt.Fprintln(g.out)

	report := g.batch.Run(g.specs)
	log.Info().
		Int("succeeded", report.Succeeded).
		Int("total", report.Total).
		Msg("generator.batch complete")
	return report, nil
}

// ValidateSource fails when path is absent or is a directory.
func ValidateSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: SVG file not found at %s", ErrMissingSource, path)
		}
		return fmt.Errorf("%w: %s: %v", ErrMissingSource, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissingSource, path)
	}
	return nil
}

// ExitCode maps a run outcome to the process status.
func ExitCode(report Report, err error) int {
	if err != nil || !report.AllSucceeded() {
		return 1
	}
	return 0
}
