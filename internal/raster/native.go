package raster

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// NativeRasterizer renders SVG in-process with oksvg, so no host tool is
// needed. The drawing keeps its aspect ratio and is centred on a transparent
// square canvas.
type NativeRasterizer struct{}

func (NativeRasterizer) Rasterize(src string, dst string, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrConversionFailed, size)
	}
	if err := ensureParent(dst); err != nil {
		return err
	}

	img, err := renderSVG(src, size)
	if err != nil {
		return err
	}
	return writePNG(dst, img)
}

func renderSVG(src string, size int) (*image.RGBA, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConversionFailed, src, err)
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = float64(size), float64(size)
	}
	scale := float64(size) / max(w, h)
	outW := w * scale
	outH := h * scale
	icon.SetTarget((float64(size)-outW)/2, (float64(size)-outH)/2, outW, outH)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	dasher := rasterx.NewDasher(size, size, scanner)
	icon.Draw(dasher, 1.0)
	return img, nil
}

// writePNG replaces dst via a sibling temp file so a failed encode never
// leaves a truncated icon behind.
func writePNG(dst string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".iconctl-*.png")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode %s: %v", ErrConversionFailed, dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	return nil
}
