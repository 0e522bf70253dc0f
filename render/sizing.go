package render

import (
	"fmt"
	"math"
)

// DeriveFontSizes computes, for each font path in params.Fonts, the
// largest integer point size whose widest glyph in params.CharacterSet,
// repeated (text length + 1) times, still fits within params.Width —
// then scales that size down by FontSizeShiftPercent. The result is the
// default per-character size; Layout then picks each character's actual
// size by jittering it uniformly by up to ±FontSizeShiftPercent, so a
// single character can be drawn larger or smaller than this value.
//
// This mirrors the width-driven sizing used by bitmap/placeholder image
// generators, generalized to real per-glyph bounding boxes taken from
// the FontMetrics collaborator rather than an average-character-width
// heuristic.
func DeriveFontSizes(params Params, metrics FontMetrics) (map[string]int, error) {
	if metrics == nil {
		return nil, fmt.Errorf("render: DeriveFontSizes: nil FontMetrics")
	}

	n := params.TextLength
	if params.Text != "" {
		n = len([]rune(params.Text))
	}
	if n <= 0 {
		return nil, fmt.Errorf("render: DeriveFontSizes: non-positive text length %d", n)
	}
	if len(params.CharacterSet) == 0 {
		return nil, fmt.Errorf("render: DeriveFontSizes: empty character set")
	}

	sizes := make(map[string]int, len(params.Fonts))
	for _, fontPath := range params.Fonts {
		size, err := deriveSizeForFont(fontPath, params, metrics, n)
		if err != nil {
			return nil, err
		}
		sizes[fontPath] = size
	}
	return sizes, nil
}

func deriveSizeForFont(fontPath string, params Params, metrics FontMetrics, textLen int) (int, error) {
	widestAt := func(size int) (int, error) {
		widest := 0
		for _, r := range params.CharacterSet {
			gm, err := metrics.Glyph(fontPath, size, r)
			if err != nil {
				return 0, fmt.Errorf("render: measure glyph %q at size %d in %s: %w", r, size, fontPath, err)
			}
			if w := gm.HalfWidth * 2; w > widest {
				widest = w
			}
		}
		return widest, nil
	}

	// Binary search the largest size for which the widest glyph,
	// repeated (textLen+1) times, fits inside the image width.
	lo, hi := 1, params.Height*8
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		w, err := widestAt(mid)
		if err != nil {
			return 0, err
		}
		if w*(textLen+1) <= params.Width {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("%w: font %s at width %d", ErrUnusable, fontPath, params.Width)
	}

	shifted := int(math.Round(float64(best) * (1 - float64(params.FontSizeShiftPercent)/100)))
	if shifted <= 0 {
		return 0, fmt.Errorf("%w: font %s shifted size %d", ErrUnusable, fontPath, shifted)
	}
	return shifted, nil
}
