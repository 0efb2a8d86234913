package raster

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danmuck/iconctl/internal/tools"
	"github.com/rs/zerolog/log"
)

var (
	ErrConversionFailed   = errors.New("raster: conversion failed")
	ErrSizeMismatch       = errors.New("raster: output size mismatch")
	ErrUnsupportedBackend = errors.New("raster: unsupported backend")
)

type Backend string

const (
	BackendRsvg   Backend = "rsvg"
	BackendNative Backend = "native"
)

// Rasterizer renders src as a size×size PNG at dst, creating parent
// directories and overwriting any existing file.
type Rasterizer interface {
	Rasterize(src string, dst string, size int) error
}

// New selects the rasterizer for backend. tool and runner only matter for
// the rsvg backend.
func New(backend Backend, tool string, runner tools.CommandRunner) (Rasterizer, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(string(backend)))) {
	case "", BackendRsvg:
		return NewRsvgConverter(tool, runner), nil
	case BackendNative:
		return NativeRasterizer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}

// NeedsExternalTool reports whether backend shells out to a host binary.
func NeedsExternalTool(backend Backend) bool {
	b := Backend(strings.ToLower(strings.TrimSpace(string(backend))))
	return b == "" || b == BackendRsvg
}

// RsvgConverter drives rsvg-convert (or a compatible CLI) once per icon.
type RsvgConverter struct {
	tool   string
	runner tools.CommandRunner
}

func NewRsvgConverter(tool string, runner tools.CommandRunner) *RsvgConverter {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		tool = "rsvg-convert"
	}
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &RsvgConverter{tool: tool, runner: runner}
}

func (c *RsvgConverter) Rasterize(src string, dst string, size int) error {
	if err := ensureParent(dst); err != nil {
		return err
	}
	n := strconv.Itoa(size)
	args := []string{"-w", n, "-h", n, src, "-o", dst}
	log.Debug().Str("cmd", c.tool).Strs("args", args).Msg("raster.rsvg exec")

	stdout, stderr, exitCode, err := c.runner.Run(c.tool, args...)
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s (exit=%d)", ErrConversionFailed, tools.Diagnostic(stdout, stderr, err), exitCode)
}

// VerifyPNG decodes only the header of path and checks it is size×size.
func VerifyPNG(path string, size int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %s is not a valid png: %v", ErrConversionFailed, path, err)
	}
	if cfg.Width != size || cfg.Height != size {
		return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrSizeMismatch, path, cfg.Width, cfg.Height, size, size)
	}
	return nil
}

func ensureParent(dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", ErrConversionFailed, dir, err)
	}
	return nil
}
