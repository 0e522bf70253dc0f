// Package captchaforge is a self-contained CAPTCHA engine: layout and
// rendering, a warm pool of pre-generated instances served by a
// background producer/refresher, and an authenticated single-use token
// protocol binding a rendered image to its solution.
package captchaforge

import (
	"fmt"
	"time"

	"captchaforge/render"
)

// Format is the output image encoding. It is a direct alias of
// render.Format so Settings never forces callers to convert between a
// root-level and a render-level format type.
type Format = render.Format

const (
	FormatBMP  = render.FormatBMP
	FormatGIF  = render.FormatGIF
	FormatICO  = render.FormatICO
	FormatJPEG = render.FormatJPEG
	FormatPNG  = render.FormatPNG
	FormatTIFF = render.FormatTIFF
	FormatWEBP = render.FormatWEBP
	FormatPDF  = render.FormatPDF
)

// defaultCharacterSet excludes glyphs that are easily confused at small
// sizes: 0/O, 1/l/I, and q/Q (which render close to g/o in several
// bundled CAPTCHA fonts).
const defaultCharacterSet = "23456789ABCDEFGHJKLMNPRSTUVWXYZabcdefghijkmnprstuvwxyz"

// Settings is an immutable-by-convention snapshot of CAPTCHA
// configuration. Callers should treat a Settings value as read-only
// after Validate succeeds; Set returns a new, independently validated
// copy rather than mutating receivers shared across goroutines.
type Settings struct {
	Width, Height int
	Format        Format

	Text         string
	TextLength   int
	CharacterSet []rune

	Fonts []string

	HorizontalShiftPercent int
	VerticalShiftPercent   int
	FontSizeShiftPercent   int

	OverlapEnabled bool
	MaxNoise       int

	MinBrightnessDiff float64
	MinHueDiff        float64

	CaseSensitive bool
	Lifetime      time.Duration
	PoolSize      int

	// RateLimit preserves the spec's dual meaning verbatim: an integer
	// value >= 1 means "at most N regenerations per rolling minute";
	// a non-integer, non-zero value means "sleep this many seconds
	// between regenerations"; zero means unlimited.
	RateLimit float64

	derivedSizes map[string]int
}

// Default returns the baseline Settings described by the external
// interface. Fonts is intentionally empty: no embeddable TrueType
// binaries ship with this module (unlike the three bundled fonts the
// spec's defaults describe), so the host must supply real font file
// paths via Set before constructing an Engine.
func Default() Settings {
	return Settings{
		Width:                  750,
		Height:                 250,
		Format:                 FormatPNG,
		Text:                   "",
		TextLength:             6,
		CharacterSet:           []rune(defaultCharacterSet),
		Fonts:                  nil,
		HorizontalShiftPercent: 65,
		VerticalShiftPercent:   65,
		FontSizeShiftPercent:   25,
		OverlapEnabled:         false,
		MaxNoise:               25,
		MinBrightnessDiff:      65,
		MinHueDiff:             250,
		CaseSensitive:          false,
		Lifetime:               600 * time.Second,
		PoolSize:               500,
		RateLimit:              0,
	}
}

// Get returns an independent copy of s: slices are cloned so the
// caller cannot mutate the receiver's backing arrays.
func (s Settings) Get() Settings {
	out := s
	out.CharacterSet = append([]rune(nil), s.CharacterSet...)
	out.Fonts = append([]string(nil), s.Fonts...)
	return out
}

// Set applies the named updates to a copy of s, then fully re-validates
// and re-derives font sizes before returning it. s itself is untouched.
// Unknown setting names return a ConfigError.
func (s Settings) Set(updates map[string]any, metrics render.FontMetrics) (Settings, error) {
	next := s.Get()
	for key, val := range updates {
		if err := next.applyUpdate(key, val); err != nil {
			return Settings{}, err
		}
	}
	if err := next.Validate(metrics); err != nil {
		return Settings{}, err
	}
	return next, nil
}

func (s *Settings) applyUpdate(key string, val any) error {
	switch key {
	case "WIDTH":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.Width = v
	case "HEIGHT":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.Height = v
	case "FORMAT":
		v, ok := val.(string)
		if !ok {
			return &ConfigError{Field: key, Reason: "must be a string"}
		}
		s.Format = Format(v)
	case "TEXT":
		v, ok := val.(string)
		if !ok {
			return &ConfigError{Field: key, Reason: "must be a string"}
		}
		s.Text = v
	case "TEXT_LENGTH":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.TextLength = v
	case "CHARACTER_SET":
		v, ok := val.(string)
		if !ok {
			return &ConfigError{Field: key, Reason: "must be a string"}
		}
		s.CharacterSet = []rune(v)
	case "FONTS":
		v, ok := val.([]string)
		if !ok {
			return &ConfigError{Field: key, Reason: "must be a []string"}
		}
		s.Fonts = append([]string(nil), v...)
	case "CHARACTER_HORIZONTAL_SHIFT_PERCENTAGE":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.HorizontalShiftPercent = v
	case "CHARACTER_VERTICAL_SHIFT_PERCENTAGE":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.VerticalShiftPercent = v
	case "FONT_SIZE_SHIFT_PERCENTAGE":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.FontSizeShiftPercent = v
	case "CHARACTER_OVERLAP_ENABLED":
		v, ok := val.(bool)
		if !ok {
			return &ConfigError{Field: key, Reason: "must be a bool"}
		}
		s.OverlapEnabled = v
	case "MAXIMUM_NOISE":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.MaxNoise = v
	case "MINIMUM_COLOR_BRIGHTNESS_DIFFERENCE":
		v, err := asFloat(key, val)
		if err != nil {
			return err
		}
		s.MinBrightnessDiff = v
	case "MINIMUM_COLOR_HUE_DIFFERENCE":
		v, err := asFloat(key, val)
		if err != nil {
			return err
		}
		s.MinHueDiff = v
	case "CASE_SENSITIVE":
		v, ok := val.(bool)
		if !ok {
			return &ConfigError{Field: key, Reason: "must be a bool"}
		}
		s.CaseSensitive = v
	case "LIFETIME":
		v, err := asFloat(key, val)
		if err != nil {
			return err
		}
		s.Lifetime = time.Duration(v * float64(time.Second))
	case "POOL_SIZE":
		v, err := asInt(key, val)
		if err != nil {
			return err
		}
		s.PoolSize = v
	case "RATE_LIMIT":
		v, err := asFloat(key, val)
		if err != nil {
			return err
		}
		s.RateLimit = v
	default:
		return &ConfigError{Field: key, Reason: "unknown setting"}
	}
	return nil
}

func asInt(key string, val any) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, &ConfigError{Field: key, Reason: "must be an integer"}
	}
}

func asFloat(key string, val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, &ConfigError{Field: key, Reason: "must be a number"}
	}
}

// Validate checks every field invariant the spec describes and
// re-derives per-font sizes via metrics. It must be called (directly
// or through Set) after any field mutation before the Settings is used
// to construct an Engine or Instance.
func (s *Settings) Validate(metrics render.FontMetrics) error {
	if s.Height > s.Width {
		return &ConfigError{Field: "HEIGHT", Reason: "must be <= WIDTH"}
	}
	if s.Width <= 0 || s.Height <= 0 {
		return &ConfigError{Field: "WIDTH/HEIGHT", Reason: "must be positive"}
	}
	switch s.Format {
	case FormatBMP, FormatGIF, FormatICO, FormatJPEG, FormatPNG, FormatTIFF, FormatWEBP, FormatPDF:
	default:
		return &ConfigError{Field: "FORMAT", Reason: fmt.Sprintf("unsupported format %q", s.Format)}
	}
	if s.Text == "" && s.TextLength < 3 {
		return &ConfigError{Field: "TEXT_LENGTH", Reason: "must be >= 3"}
	}
	if err := validateUniqueRunes(s.CharacterSet); err != nil {
		return err
	}
	if len(s.Fonts) == 0 {
		return &ConfigError{Field: "FONTS", Reason: "must list at least one font path"}
	}
	for _, f := range s.Fonts {
		if !fontPathExists(f) {
			return &ConfigError{Field: "FONTS", Reason: fmt.Sprintf("font path does not resolve: %s", f)}
		}
	}
	if s.HorizontalShiftPercent < 0 || s.HorizontalShiftPercent > 100 {
		return &ConfigError{Field: "CHARACTER_HORIZONTAL_SHIFT_PERCENTAGE", Reason: "must be in [0,100]"}
	}
	if s.VerticalShiftPercent < 0 || s.VerticalShiftPercent > 100 {
		return &ConfigError{Field: "CHARACTER_VERTICAL_SHIFT_PERCENTAGE", Reason: "must be in [0,100]"}
	}
	if s.FontSizeShiftPercent < 0 || s.FontSizeShiftPercent > 100 {
		return &ConfigError{Field: "FONT_SIZE_SHIFT_PERCENTAGE", Reason: "must be in [0,100]"}
	}
	if s.MaxNoise < 0 {
		return &ConfigError{Field: "MAXIMUM_NOISE", Reason: "must be >= 0"}
	}
	if s.MinBrightnessDiff > 200 {
		return &ConfigError{Field: "MINIMUM_COLOR_BRIGHTNESS_DIFFERENCE", Reason: "must be <= 200"}
	}
	if s.MinHueDiff > 600 {
		return &ConfigError{Field: "MINIMUM_COLOR_HUE_DIFFERENCE", Reason: "must be <= 600"}
	}
	if s.Lifetime < 0 {
		return &ConfigError{Field: "LIFETIME", Reason: "must be >= 0"}
	}
	if s.PoolSize < 1 {
		return &ConfigError{Field: "POOL_SIZE", Reason: "must be >= 1"}
	}
	if s.RateLimit < 0 {
		return &ConfigError{Field: "RATE_LIMIT", Reason: "must be >= 0"}
	}

	sizes, err := render.DeriveFontSizes(s.ToRenderParams(), metrics)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnusable, err)
	}
	s.derivedSizes = sizes
	return nil
}

func validateUniqueRunes(set []rune) error {
	if len(set) == 0 {
		return &ConfigError{Field: "CHARACTER_SET", Reason: "must not be empty"}
	}
	seen := make(map[rune]bool, len(set))
	for _, r := range set {
		if seen[r] {
			return &ConfigError{Field: "CHARACTER_SET", Reason: fmt.Sprintf("duplicate character %q", r)}
		}
		seen[r] = true
	}
	return nil
}

// ToRenderParams projects s onto the renderer-facing Params type. It
// must be called after Validate populates derivedSizes; calling it
// beforehand yields a Params with a nil DerivedSizes map, which causes
// render.Layout to fall back to a zero default size.
func (s Settings) ToRenderParams() render.Params {
	return render.Params{
		Width:                  s.Width,
		Height:                 s.Height,
		Format:                 s.Format,
		Text:                   s.Text,
		TextLength:             s.TextLength,
		CharacterSet:           s.CharacterSet,
		Fonts:                  s.Fonts,
		DerivedSizes:           s.derivedSizes,
		HorizontalShiftPercent: s.HorizontalShiftPercent,
		VerticalShiftPercent:   s.VerticalShiftPercent,
		FontSizeShiftPercent:   s.FontSizeShiftPercent,
		OverlapEnabled:         s.OverlapEnabled,
		MaxNoise:               s.MaxNoise,
		MinBrightnessDiff:      s.MinBrightnessDiff,
		MinHueDiff:             s.MinHueDiff,
	}
}
