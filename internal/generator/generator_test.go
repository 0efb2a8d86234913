package generator

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/iconctl/internal/manifest"
	"github.com/danmuck/iconctl/internal/raster"
	"github.com/danmuck/iconctl/internal/testutil/testlog"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 12">
<rect x="0" y="0" width="24" height="12" fill="#2060c0"/>
</svg>`

type fakeChecker struct {
	calls int
	err   error
}

func (c *fakeChecker) Ensure() error {
	c.calls++
	return c.err
}

type recordingRasterizer struct {
	calls []string
	fail  map[string]error
}

func (r *recordingRasterizer) Rasterize(src string, dst string, size int) error {
	r.calls = append(r.calls, dst)
	if err, ok := r.fail[filepath.Base(filepath.Dir(dst))+"/"+filepath.Base(dst)]; ok {
		return err
	}
	return nil
}

func setupSource(t *testing.T) (string, string) {
	t.Helper()
	workspace := t.TempDir()
	src := filepath.Join(workspace, "assets", "smartpos_icon.svg")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir assets: %v", err)
	}
	if err := os.WriteFile(src, []byte(testSVG), 0o644); err != nil {
		t.Fatalf("write svg: %v", err)
	}
	return workspace, src
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func TestRunAllSucceedWithNativeBackend(t *testing.T) {
	testlog.Start(t)
	workspace, src := setupSource(t)
	var out bytes.Buffer
	gen, err := New(Config{
		Source:     src,
		Root:       workspace,
		Rasterizer: raster.NativeRasterizer{},
		Verify:     true,
		Out:        &out,
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	report, err := gen.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code := ExitCode(report, err); code != 0 {
		t.Fatalf("unexpected exit code: %d\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "25/25 successful") {
		t.Fatalf("missing summary line:\n%s", out.String())
	}
	if got := strings.Count(out.String(), "✓ Generated "); got != 25 {
		t.Fatalf("unexpected progress line count: %d", got)
	}
	for _, spec := range manifest.Default() {
		if err := raster.VerifyPNG(filepath.Join(workspace, filepath.FromSlash(spec.Path)), spec.Size); err != nil {
			t.Fatalf("verify %s: %v", spec.Path, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	testlog.Start(t)
	workspace, src := setupSource(t)
	specs := []manifest.IconSpec{
		{Platform: manifest.PlatformWeb, Path: "web/icons/Icon-192.png", Size: 192},
		{Platform: manifest.PlatformWeb, Path: "web/favicon.png", Size: 32},
	}
	run := func() {
		gen, err := New(Config{
			Source:     src,
			Root:       workspace,
			Specs:      specs,
			Rasterizer: raster.NativeRasterizer{},
			Verify:     true,
			Out:        &bytes.Buffer{},
		})
		if err != nil {
			t.Fatalf("new generator: %v", err)
		}
		report, err := gen.Run()
		if code := ExitCode(report, err); code != 0 {
			t.Fatalf("unexpected exit code %d: %v", code, err)
		}
	}

	run()
	first, err := os.ReadFile(filepath.Join(workspace, "web", "favicon.png"))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	filesAfterFirst := countFiles(t, filepath.Join(workspace, "web"))

	run()
	second, err := os.ReadFile(filepath.Join(workspace, "web", "favicon.png"))
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("second run changed output bytes")
	}
	if got := countFiles(t, filepath.Join(workspace, "web")); got != filesAfterFirst || got != 2 {
		t.Fatalf("unexpected file count after rerun: %d (first %d)", got, filesAfterFirst)
	}
}

func TestRunOneUnwritablePathContinues(t *testing.T) {
	testlog.Start(t)
	workspace, src := setupSource(t)

	// mipmap-hdpi exists as a regular file, so its directory cannot be created.
	blocker := filepath.Join(workspace, "android", "app", "src", "main", "res", "mipmap-hdpi")
	if err := os.MkdirAll(filepath.Dir(blocker), 0o755); err != nil {
		t.Fatalf("mkdir res: %v", err)
	}
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	var out bytes.Buffer
	gen, err := New(Config{
		Source:     src,
		Root:       workspace,
		Rasterizer: raster.NativeRasterizer{},
		Verify:     true,
		Out:        &out,
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	report, err := gen.Run()
	if err != nil {
		t.Fatalf("per-icon failure must not be fatal: %v", err)
	}
	if code := ExitCode(report, err); code != 1 {
		t.Fatalf("unexpected exit code: %d", code)
	}
	if report.Total != 25 || len(report.Results) != 25 {
		t.Fatalf("every icon should be attempted: total=%d results=%d", report.Total, len(report.Results))
	}
	if !strings.Contains(out.String(), "24/25 successful") {
		t.Fatalf("missing partial summary:\n%s", out.String())
	}
	failed := report.Failed()
	if len(failed) != 1 || !strings.Contains(failed[0].Spec.Path, "mipmap-hdpi") {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if !errors.Is(failed[0].Err, raster.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", failed[0].Err)
	}
	if !strings.Contains(out.String(), "✗ Failed to generate android/app/src/main/res/mipmap-hdpi/ic_launcher.png") {
		t.Fatalf("missing failure progress line:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "✗ Some icons failed to generate") {
		t.Fatalf("missing failure verdict:\n%s", out.String())
	}
}

func TestRunMissingSourceIsFatal(t *testing.T) {
	testlog.Start(t)
	workspace := t.TempDir()
	rasterizer := &recordingRasterizer{}
	var out bytes.Buffer
	gen, err := New(Config{
		Source:     filepath.Join(workspace, "assets", "missing.svg"),
		Root:       filepath.Join(workspace, "out"),
		Rasterizer: rasterizer,
		Out:        &out,
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	report, err := gen.Run()
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.svg") {
		t.Fatalf("error should name the path: %v", err)
	}
	if code := ExitCode(report, err); code != 1 {
		t.Fatalf("unexpected exit code: %d", code)
	}
	if len(rasterizer.calls) != 0 {
		t.Fatalf("no conversion may run, got %d", len(rasterizer.calls))
	}
	if _, err := os.Stat(filepath.Join(workspace, "out")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output root must not be created: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no progress output expected:\n%s", out.String())
	}
}

func TestRunMissingCapabilityIsFatalBeforeConversion(t *testing.T) {
	testlog.Start(t)
	workspace, src := setupSource(t)
	checker := &fakeChecker{err: errors.New("rsvg-convert unavailable")}
	rasterizer := &recordingRasterizer{}
	gen, err := New(Config{
		Source:     src,
		Root:       workspace,
		Rasterizer: rasterizer,
		Checker:    checker,
		Out:        &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	report, err := gen.Run()
	if err == nil {
		t.Fatalf("expected fatal dependency error")
	}
	if code := ExitCode(report, err); code != 1 {
		t.Fatalf("unexpected exit code: %d", code)
	}
	if checker.calls != 1 {
		t.Fatalf("unexpected checker calls: %d", checker.calls)
	}
	if len(rasterizer.calls) != 0 {
		t.Fatalf("no conversion may run, got %d", len(rasterizer.calls))
	}
}

func TestRunDependencyGateRunsBeforeSourceGate(t *testing.T) {
	testlog.Start(t)
	checker := &fakeChecker{err: errors.New("unavailable")}
	gen, err := New(Config{
		Source:     filepath.Join(t.TempDir(), "missing.svg"),
		Rasterizer: &recordingRasterizer{},
		Checker:    checker,
		Out:        &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if _, err := gen.Run(); errors.Is(err, ErrMissingSource) {
		t.Fatalf("dependency gate should fail first, got %v", err)
	}
}

func TestRunWithFakeRasterizerOrderAndOutput(t *testing.T) {
	testlog.Start(t)
	workspace, src := setupSource(t)
	rasterizer := &recordingRasterizer{
		fail: map[string]error{
			"web/favicon.png": errors.New("Error reading SVG"),
		},
	}
	checker := &fakeChecker{}
	var out bytes.Buffer
	gen, err := New(Config{
		Title:      "Generating SmartPOS app icons...",
		Source:     src,
		Root:       workspace,
		Rasterizer: rasterizer,
		Checker:    checker,
		Out:        &out,
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	report, err := gen.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Succeeded != 24 || report.AllSucceeded() {
		t.Fatalf("unexpected report: %d/%d", report.Succeeded, report.Total)
	}
	if len(rasterizer.calls) != 25 {
		t.Fatalf("unexpected call count: %d", len(rasterizer.calls))
	}
	specs := manifest.Default()
	for i, dst := range rasterizer.calls {
		if want := filepath.Join(workspace, filepath.FromSlash(specs[i].Path)); dst != want {
			t.Fatalf("call %d = %q, want %q", i, dst, want)
		}
	}

	lines := strings.Split(out.String(), "\n")
	if lines[0] != "Generating SmartPOS app icons..." {
		t.Fatalf("unexpected title: %q", lines[0])
	}
	if lines[1] != "Source: "+src {
		t.Fatalf("unexpected source line: %q", lines[1])
	}
	if lines[2] != "Total icons to generate: 25" {
		t.Fatalf("unexpected total line: %q", lines[2])
	}
	if !strings.Contains(out.String(), "✗ Failed to generate web/favicon.png: Error reading SVG") {
		t.Fatalf("missing failure line:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Icon generation complete: 24/25 successful") {
		t.Fatalf("missing summary:\n%s", out.String())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{Rasterizer: &recordingRasterizer{}}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing source, got %v", err)
	}
	if _, err := New(Config{Source: "a.svg"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing rasterizer, got %v", err)
	}
	_, err := New(Config{
		Source:     "a.svg",
		Rasterizer: &recordingRasterizer{},
		Specs: []manifest.IconSpec{
			{Path: "web/a.png", Size: 16},
			{Path: "web/a.png", Size: 32},
		},
	})
	if !errors.Is(err, manifest.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestValidateSourceRejectsDirectory(t *testing.T) {
	if err := ValidateSource(t.TempDir()); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	if got := Summary(Report{Succeeded: 3, Total: 5}); got != "3/5 successful" {
		t.Fatalf("unexpected summary: %q", got)
	}
}
