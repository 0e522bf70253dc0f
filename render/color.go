package render

import "image/color"

// VisualRand is the general-purpose (non-cryptographic) PRNG surface
// the layout algorithm uses for everything that is not security
// sensitive: color sampling, position/size jitter, and noise shapes.
// *rand.Rand from math/rand/v2 satisfies this directly.
type VisualRand interface {
	IntN(n int) int
	Float64() float64
}

// brightness is the perceptual luma weighting the spec mandates
// (ITU-R BT.601-style integer-weighted sum, scaled to [0,255]).
func brightness(c color.RGBA) float64 {
	return (299*float64(c.R) + 587*float64(c.G) + 114*float64(c.B)) / 1000
}

func brightnessDiff(a, b color.RGBA) float64 {
	d := brightness(a) - brightness(b)
	if d < 0 {
		return -d
	}
	return d
}

func hueDiff(a, b color.RGBA) float64 {
	return absInt16(int(a.R)-int(b.R)) + absInt16(int(a.G)-int(b.G)) + absInt16(int(a.B)-int(b.B))
}

func absInt16(v int) float64 {
	if v < 0 {
		v = -v
	}
	return float64(v)
}

func rgbOf(c [3]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}
}

func randomColor(rng VisualRand) color.RGBA {
	return color.RGBA{
		R: uint8(rng.IntN(256)),
		G: uint8(rng.IntN(256)),
		B: uint8(rng.IntN(256)),
		A: 255,
	}
}

// pickCompliantColor rejection-samples a uniform RGB color against bg
// until it clears both the brightness and hue contrast floors, or
// maxAttempts draws are exhausted. It reports how many draws it took.
func pickCompliantColor(rng VisualRand, bg color.RGBA, minBrightness, minHue float64, maxAttempts int) (color.RGBA, int, bool) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c := randomColor(rng)
		if brightnessDiff(c, bg) >= minBrightness && hueDiff(c, bg) >= minHue {
			return c, attempt, true
		}
	}
	return color.RGBA{}, maxAttempts, false
}
