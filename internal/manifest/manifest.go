package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrInvalidSpec = errors.New("manifest: invalid icon spec")

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// IconSpec is one square PNG to produce, relative to the output root.
type IconSpec struct {
	Platform Platform
	Path     string
	Size     int
}

const (
	androidRes  = "android/app/src/main/res"
	iosIconSet  = "ios/Runner/Assets.xcassets/AppIcon.appiconset"
	webIconsDir = "web/icons"
)

// Android launcher densities.
var androidIcons = []IconSpec{
	android("mdpi", 48),
	android("hdpi", 72),
	android("xhdpi", 96),
	android("xxhdpi", 144),
	android("xxxhdpi", 192),
}

// iOS appiconset slots; pixel sizes repeat across slots on purpose.
var iosIcons = []IconSpec{
	ios("20x20", 1, 20),
	ios("20x20", 2, 40),
	ios("20x20", 3, 60),
	ios("29x29", 1, 29),
	ios("29x29", 2, 58),
	ios("29x29", 3, 87),
	ios("40x40", 1, 40),
	ios("40x40", 2, 80),
	ios("40x40", 3, 120),
	ios("60x60", 2, 120),
	ios("60x60", 3, 180),
	ios("76x76", 1, 76),
	ios("76x76", 2, 152),
	ios("83.5x83.5", 2, 167),
	ios("1024x1024", 1, 1024),
}

var webIcons = []IconSpec{
	{Platform: PlatformWeb, Path: webIconsDir + "/Icon-192.png", Size: 192},
	{Platform: PlatformWeb, Path: webIconsDir + "/Icon-512.png", Size: 512},
	{Platform: PlatformWeb, Path: webIconsDir + "/Icon-maskable-192.png", Size: 192},
	{Platform: PlatformWeb, Path: webIconsDir + "/Icon-maskable-512.png", Size: 512},
	{Platform: PlatformWeb, Path: "web/favicon.png", Size: 32},
}

func android(density string, size int) IconSpec {
	return IconSpec{
		Platform: PlatformAndroid,
		Path:     fmt.Sprintf("%s/mipmap-%s/ic_launcher.png", androidRes, density),
		Size:     size,
	}
}

func ios(slot string, scale int, size int) IconSpec {
	return IconSpec{
		Platform: PlatformIOS,
		Path:     fmt.Sprintf("%s/Icon-App-%s@%dx.png", iosIconSet, slot, scale),
		Size:     size,
	}
}

// Default returns the full ordered manifest: Android, then iOS, then web.
// The returned slice is a fresh copy.
func Default() []IconSpec {
	out := make([]IconSpec, 0, len(androidIcons)+len(iosIcons)+len(webIcons))
	out = append(out, androidIcons...)
	out = append(out, iosIcons...)
	out = append(out, webIcons...)
	return out
}

// ForPlatform filters specs down to one platform, keeping order.
func ForPlatform(specs []IconSpec, platform Platform) []IconSpec {
	out := make([]IconSpec, 0, len(specs))
	for _, spec := range specs {
		if spec.Platform == platform {
			out = append(out, spec)
		}
	}
	return out
}

// Validate checks every spec and rejects duplicate output paths.
func Validate(specs []IconSpec) error {
	seen := make(map[string]int, len(specs))
	for i, spec := range specs {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("icon[%d]: %w", i, err)
		}
		key := path.Clean(spec.Path)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: icon[%d] path=%q duplicates icon[%d]", ErrInvalidSpec, i, spec.Path, prev)
		}
		seen[key] = i
	}
	return nil
}

func (s IconSpec) Validate() error {
	p := strings.TrimSpace(s.Path)
	if p == "" {
		return fmt.Errorf("%w: missing path", ErrInvalidSpec)
	}
	if path.IsAbs(p) {
		return fmt.Errorf("%w: path must be relative: %q", ErrInvalidSpec, s.Path)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: path escapes output root: %q", ErrInvalidSpec, s.Path)
	}
	if s.Size <= 0 {
		return fmt.Errorf("%w: size must be positive: path=%q size=%d", ErrInvalidSpec, s.Path, s.Size)
	}
	return nil
}
