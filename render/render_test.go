package render

import (
	"errors"
	"image/color"
	"math/rand/v2"
	"testing"
)

// fakeCanvas/fakeBackend are minimal Backend fakes recording what was
// drawn, the same way the corpus's mockEmbeddingService/mockLLMService
// fakes record calls instead of doing real work.
type fakeCanvas struct {
	width, height int
	chars         int
	arcs, lines   int
	pointBatches  int
}

func (c *fakeCanvas) Bounds() (int, int) { return c.width, c.height }

type fakeBackend struct {
	fakeMetrics
	encoded []byte
}

func (b *fakeBackend) NewCanvas(width, height int, bg color.RGBA) (Canvas, error) {
	return &fakeCanvas{width: width, height: height}, nil
}

func (b *fakeBackend) DrawChar(c Canvas, r rune, fontPath string, size int, x, y int, fill color.RGBA) error {
	c.(*fakeCanvas).chars++
	return nil
}

func (b *fakeBackend) DrawArc(c Canvas, cx, cy, radius int, startDeg, endDeg float64, strokeWidth int, col color.RGBA) error {
	c.(*fakeCanvas).arcs++
	return nil
}

func (b *fakeBackend) DrawLine(c Canvas, x1, y1, x2, y2, strokeWidth int, col color.RGBA) error {
	c.(*fakeCanvas).lines++
	return nil
}

func (b *fakeBackend) DrawPoints(c Canvas, pts [][2]int, col color.RGBA) error {
	c.(*fakeCanvas).pointBatches++
	return nil
}

func (b *fakeBackend) Encode(c Canvas, format Format) ([]byte, error) {
	return b.encoded, nil
}

func TestRenderProducesSolutionAndBlob(t *testing.T) {
	params := testParams()
	backend := &fakeBackend{encoded: []byte("fake-png-bytes")}
	secure := &cyclicSecure{vals: []int{0, 1, 2}}
	visual := rand.New(rand.NewPCG(5, 6))

	solution, blob, stats, err := Render(params, backend, secure, visual)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(solution) != params.TextLength {
		t.Errorf("solution length = %d, want %d", len(solution), params.TextLength)
	}
	if string(blob) != "fake-png-bytes" {
		t.Errorf("blob = %q, want the encoded fake bytes", blob)
	}
	if stats.ImageSize != len(blob) {
		t.Errorf("stats.ImageSize = %d, want %d", stats.ImageSize, len(blob))
	}
}

// stuckVisual always draws the exact background color, so
// pickCompliantColor can never clear a non-zero contrast floor. It
// isolates the noise-drawing contrast path from the per-character one.
type stuckVisual struct{}

func (stuckVisual) IntN(n int) int {
	if n == 256 {
		return 10
	}
	return 0
}

func (stuckVisual) Float64() float64 { return 0 }

func TestDrawNoiseReturnsRetryExhaustedInsteadOfUncontrastedFallback(t *testing.T) {
	params := testParams()
	params.MaxNoise = 1
	params.MinBrightnessDiff = 1
	params.MinHueDiff = 1
	backend := &fakeBackend{}
	canvas, err := backend.NewCanvas(params.Width, params.Height, color.RGBA{})
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}

	bg := [3]uint8{10, 10, 10}
	if _, err := drawNoise(params, backend, canvas, bg, stuckVisual{}); !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("drawNoise error = %v, want ErrRetryExhausted (no uncontrasted-color fallback is allowed)", err)
	}
}

func TestRenderRetriesOnColorExhaustion(t *testing.T) {
	params := testParams()
	// An unsatisfiable contrast floor forces every per-character
	// rejection-sampling loop to exhaust its budget.
	params.MinBrightnessDiff = 10000
	backend := &fakeBackend{encoded: []byte("x")}
	secure := &cyclicSecure{vals: []int{0}}
	visual := rand.New(rand.NewPCG(1, 1))

	_, _, _, err := Render(params, backend, secure, visual)
	if err == nil {
		t.Fatal("expected an error once both the per-character and whole-image retry budgets are exhausted")
	}
}
