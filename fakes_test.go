package captchaforge

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"captchaforge/render"
)

// fakeMetrics gives every glyph a half-size of half its point size
// (at least 1), enough for Validate's
// DeriveFontSizes call and for full Engine construction without real
// font binaries.
type fakeMetrics struct{}

func (fakeMetrics) Glyph(fontPath string, size int, r rune) (render.GlyphMetrics, error) {
	half := size / 2
	if half < 1 {
		half = 1
	}
	return render.GlyphMetrics{HalfWidth: half, HalfHeight: half}, nil
}

type fakeCanvas struct{ w, h int }

func (c *fakeCanvas) Bounds() (int, int) { return c.w, c.h }

type fakeBackend struct {
	fakeMetrics
}

func (b *fakeBackend) NewCanvas(width, height int, bg color.RGBA) (render.Canvas, error) {
	return &fakeCanvas{w: width, h: height}, nil
}
func (b *fakeBackend) DrawChar(c render.Canvas, r rune, fontPath string, size int, x, y int, fill color.RGBA) error {
	return nil
}
func (b *fakeBackend) DrawArc(c render.Canvas, cx, cy, radius int, startDeg, endDeg float64, strokeWidth int, col color.RGBA) error {
	return nil
}
func (b *fakeBackend) DrawLine(c render.Canvas, x1, y1, x2, y2, strokeWidth int, col color.RGBA) error {
	return nil
}
func (b *fakeBackend) DrawPoints(c render.Canvas, pts [][2]int, col color.RGBA) error {
	return nil
}
func (b *fakeBackend) Encode(c render.Canvas, format render.Format) ([]byte, error) {
	return []byte("fake-image"), nil
}

// cyclicSecure cycles through a fixed sequence so tests get
// deterministic solutions without weakening production randomness.
type cyclicSecure struct {
	seq []int
	i   int
}

func (c *cyclicSecure) IntN(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	v := c.seq[c.i%len(c.seq)] % n
	c.i++
	return v, nil
}

type fixedVisual struct{ f float64 }

func (v fixedVisual) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return n / 2
}
func (v fixedVisual) Float64() float64 { return v.f }

// tempFont returns a path that satisfies Settings.Validate's
// fontPathExists check without needing a real TrueType binary; nothing
// in this package's tests asks the fake backend to parse it.
func tempFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake.ttf")
	if err := os.WriteFile(path, []byte("not-a-real-font"), 0644); err != nil {
		t.Fatalf("writing fake font: %v", err)
	}
	return path
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	s := Default()
	s.Fonts = []string{tempFont(t)}
	s.PoolSize = 4
	return s
}
