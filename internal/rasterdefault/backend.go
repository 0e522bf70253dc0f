// Package rasterdefault is the default render.Backend: TrueType glyph
// metrics and drawing via golang/freetype + fogleman/gg, with
// multi-format encoding spanning the standard library and a few
// third-party codecs for formats it doesn't cover.
package rasterdefault

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"captchaforge/render"
)

type faceKey struct {
	path string
	size int
}

// Backend is the default raster collaborator. It caches parsed
// TrueType fonts and built faces across calls, since the same handful
// of font paths and derived sizes are reused for every character drawn
// across the whole pool.
type Backend struct {
	mu        sync.Mutex
	fonts     map[string]*truetype.Font
	faces     map[faceKey]font.Face
}

// New constructs an empty Backend. Font files are loaded lazily on
// first use and cached for the Backend's lifetime.
func New() *Backend {
	return &Backend{
		fonts: make(map[string]*truetype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

func (b *Backend) parsedFont(path string) (*truetype.Font, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if f, ok := b.fonts[path]; ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rasterdefault: read font %s: %w", path, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rasterdefault: parse font %s: %w", path, err)
	}
	b.fonts[path] = f
	return f, nil
}

func (b *Backend) face(path string, size int) (font.Face, error) {
	key := faceKey{path, size}

	b.mu.Lock()
	if f, ok := b.faces[key]; ok {
		b.mu.Unlock()
		return f, nil
	}
	b.mu.Unlock()

	ttf, err := b.parsedFont(path)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})

	b.mu.Lock()
	b.faces[key] = face
	b.mu.Unlock()
	return face, nil
}

// Glyph implements render.FontMetrics using the font's real glyph
// bounding box, converted to the half-width/half-height extent the
// anti-overlap pass and derived sizing need.
func (b *Backend) Glyph(fontPath string, size int, r rune) (render.GlyphMetrics, error) {
	face, err := b.face(fontPath, size)
	if err != nil {
		return render.GlyphMetrics{}, err
	}
	bounds, _, ok := face.GlyphBounds(r)
	if !ok {
		return render.GlyphMetrics{}, fmt.Errorf("rasterdefault: glyph %q not present in %s", r, fontPath)
	}
	width := (bounds.Max.X - bounds.Min.X).Ceil()
	height := (bounds.Max.Y - bounds.Min.Y).Ceil()
	halfW, halfH := width/2, height/2
	if halfW < 1 {
		halfW = 1
	}
	if halfH < 1 {
		halfH = 1
	}
	return render.GlyphMetrics{HalfWidth: halfW, HalfHeight: halfH}, nil
}

// canvas wraps a *gg.Context; DrawPoints reaches through to the
// underlying *image.RGBA directly since gg has no per-pixel API.
type canvas struct {
	dc *gg.Context
}

func (c *canvas) Bounds() (int, int) { return c.dc.Width(), c.dc.Height() }

func (b *Backend) NewCanvas(width, height int, bg color.RGBA) (render.Canvas, error) {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &canvas{dc: dc}, nil
}

func (b *Backend) DrawChar(c render.Canvas, r rune, fontPath string, size int, x, y int, fill color.RGBA) error {
	cv, ok := c.(*canvas)
	if !ok {
		return fmt.Errorf("rasterdefault: DrawChar: not a rasterdefault canvas")
	}
	face, err := b.face(fontPath, size)
	if err != nil {
		return err
	}
	cv.dc.SetFontFace(face)
	cv.dc.SetColor(fill)
	cv.dc.DrawStringAnchored(string(r), float64(x), float64(y), 0.5, 0.5)
	return nil
}

func (b *Backend) DrawArc(c render.Canvas, cx, cy, radius int, startDeg, endDeg float64, strokeWidth int, col color.RGBA) error {
	cv, ok := c.(*canvas)
	if !ok {
		return fmt.Errorf("rasterdefault: DrawArc: not a rasterdefault canvas")
	}
	cv.dc.SetLineWidth(float64(strokeWidth))
	cv.dc.SetColor(col)
	cv.dc.DrawArc(float64(cx), float64(cy), float64(radius), degToRad(startDeg), degToRad(endDeg))
	cv.dc.Stroke()
	return nil
}

func (b *Backend) DrawLine(c render.Canvas, x1, y1, x2, y2, strokeWidth int, col color.RGBA) error {
	cv, ok := c.(*canvas)
	if !ok {
		return fmt.Errorf("rasterdefault: DrawLine: not a rasterdefault canvas")
	}
	cv.dc.SetLineWidth(float64(strokeWidth))
	cv.dc.SetColor(col)
	cv.dc.DrawLine(float64(x1), float64(y1), float64(x2), float64(y2))
	cv.dc.Stroke()
	return nil
}

func (b *Backend) DrawPoints(c render.Canvas, pts [][2]int, col color.RGBA) error {
	cv, ok := c.(*canvas)
	if !ok {
		return fmt.Errorf("rasterdefault: DrawPoints: not a rasterdefault canvas")
	}
	img, ok := cv.dc.Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("rasterdefault: DrawPoints: canvas image is not RGBA")
	}
	w, h := cv.Bounds()
	for _, p := range pts {
		if p[0] < 0 || p[0] >= w || p[1] < 0 || p[1] >= h {
			continue
		}
		img.Set(p[0], p[1], col)
	}
	return nil
}

func degToRad(deg float64) float64 {
	const pi = 3.14159265358979323846
	return deg * pi / 180
}
