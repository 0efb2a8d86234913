package generator

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/danmuck/iconctl/internal/manifest"
	"github.com/danmuck/iconctl/internal/raster"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one icon; Err is nil on success.
type Result struct {
	Spec      manifest.IconSpec
	Succeeded bool
	Err       error
}

type Report struct {
	Results   []Result
	Succeeded int
	Total     int
}

func (r Report) AllSucceeded() bool {
	return r.Succeeded == r.Total
}

func (r Report) Failed() []Result {
	out := make([]Result, 0, r.Total-r.Succeeded)
	for _, res := range r.Results {
		if !res.Succeeded {
			out = append(out, res)
		}
	}
	return out
}

// Batch rasterizes a manifest sequentially. A failed icon is recorded and
// the loop moves on.
type Batch struct {
	Source     string
	Root       string
	Rasterizer raster.Rasterizer
	Verify     bool
	Out        io.Writer
}

func (b *Batch) Run(specs []manifest.IconSpec) Report {
	report := Report{
		Results: make([]Result, 0, len(specs)),
		Total:   len(specs),
	}
	for _, spec := range specs {
		res := b.generate(spec)
		report.Results = append(report.Results, res)
		if res.Succeeded {
			report.Succeeded++
			fmt.Fprintf(b.Out, "✓ Generated %s (%dx%d)\n", spec.Path, spec.Size, spec.Size)
			continue
		}
		fmt.Fprintf(b.Out, "✗ Failed to generate %s: %v\n", spec.Path, res.Err)
	}

	fmt.Fprintln(b.Out)
	fmt.Fprintf(b.Out, "Icon generation complete: %s\n", Summary(report))
	if report.AllSucceeded() {
		fmt.Fprintln(b.Out, "✓ All icons generated successfully!")
	} else {
		fmt.Fprintln(b.Out, "✗ Some icons failed to generate")
	}
	return report
}

// Summary renders "<ok>/<total> successful".
func Summary(r Report) string {
	return fmt.Sprintf("%d/%d successful", r.Succeeded, r.Total)
}

func (b *Batch) generate(spec manifest.IconSpec) Result {
	dst := filepath.Join(b.Root, filepath.FromSlash(spec.Path))
	logger := log.With().Str("path", spec.Path).Int("size", spec.Size).Logger()

	if err := b.Rasterizer.Rasterize(b.Source, dst, spec.Size); err != nil {
		logger.Debug().Err(err).Msg("generator.icon failed")
		return Result{Spec: spec, Err: err}
	}
	if b.Verify {
		if err := raster.VerifyPNG(dst, spec.Size); err != nil {
			logger.Debug().Err(err).Msg("generator.icon verify failed")
			return Result{Spec: spec, Err: err}
		}
	}
	logger.Debug().Msg("generator.icon generated")
	return Result{Spec: spec, Succeeded: true}
}
