// Package render implements the pure CAPTCHA layout and rendering
// algorithm: text selection, per-character placement with anti-overlap
// correction, contrast-constrained color selection, and noise layering.
// It touches no concrete image library directly — all rasterization and
// encoding is delegated to a Backend, so the layout logic itself can be
// exercised against a deterministic fake in tests.
package render

import (
	"image/color"
)

// Format identifies one of the output image encodings a Backend must
// support.
type Format string

const (
	FormatBMP  Format = "BMP"
	FormatGIF  Format = "GIF"
	FormatICO  Format = "ICO"
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatTIFF Format = "TIFF"
	FormatWEBP Format = "WEBP"
	FormatPDF  Format = "PDF"
)

// GlyphMetrics is the bounding-box half-extent of a single rasterized
// glyph, used by the anti-overlap pass and by derived font sizing.
type GlyphMetrics struct {
	HalfWidth  int
	HalfHeight int
}

// FontMetrics answers glyph-shape questions without rasterizing
// anything, so the layout algorithm can run the anti-overlap pass and
// derive font sizes purely from metrics.
type FontMetrics interface {
	// Glyph returns the half-width/half-height bounding box of r when
	// drawn with the font at fontPath at the given point size.
	Glyph(fontPath string, size int, r rune) (GlyphMetrics, error)
}

// Canvas is an opaque, backend-owned drawing surface.
type Canvas interface {
	// Bounds reports the canvas's pixel dimensions.
	Bounds() (width, height int)
}

// Backend is the external raster collaborator: canvas allocation,
// character drawing, noise primitives, and multi-format encoding. The
// default implementation lives in internal/rasterdefault; hosts may
// supply their own.
type Backend interface {
	FontMetrics

	// NewCanvas allocates a width x height canvas filled with bg.
	NewCanvas(width, height int, bg color.RGBA) (Canvas, error)

	// DrawChar rasterizes r at fontPath/size, centered at (x, y) with a
	// middle-middle anchor, filled with fill.
	DrawChar(c Canvas, r rune, fontPath string, size int, x, y int, fill color.RGBA) error

	// DrawArc strokes an arc of the given radius centered at (cx, cy)
	// from startDeg to endDeg (degrees, [0,360)) with the given stroke
	// width and color.
	DrawArc(c Canvas, cx, cy, radius int, startDeg, endDeg float64, strokeWidth int, col color.RGBA) error

	// DrawLine strokes a line from (x1,y1) to (x2,y2).
	DrawLine(c Canvas, x1, y1, x2, y2, strokeWidth int, col color.RGBA) error

	// DrawPoints sets each (x,y) pair in pts to col.
	DrawPoints(c Canvas, pts [][2]int, col color.RGBA) error

	// Encode serializes the canvas in the given format.
	Encode(c Canvas, format Format) ([]byte, error)
}
