package render

import (
	"errors"
	"fmt"
)

// maxRenderAttempts bounds how many times the whole image is retried
// after a contrast rejection-sampling loop (for a character color or a
// noise color) exhausts maxColorAttempts. Exhausting this budget too is the only case that
// surfaces ErrRetryExhausted to the caller.
const maxRenderAttempts = 25

// Stats summarizes one successful Render call, feeding the Instance's
// per-generation counters.
type Stats struct {
	PositionCorrections int
	ColorRetries        int
	FontSizeSum         int
	NoiseLayers         int
	ImageSize           int
}

// Render lays out and draws one CAPTCHA, retrying the whole layout
// (never just the failed character) whenever the contrast rejection
// loop is exhausted, up to maxRenderAttempts.
func Render(params Params, backend Backend, secure SecureRand, visual VisualRand) (string, []byte, Stats, error) {
	var lastErr error
	for attempt := 0; attempt < maxRenderAttempts; attempt++ {
		result, err := Layout(params, backend, secure, visual)
		if err != nil {
			if errors.Is(err, ErrRetryExhausted) {
				lastErr = err
				continue
			}
			return "", nil, Stats{}, err
		}

		blob, noiseLayers, err := drawAndEncode(params, backend, result, visual)
		if err != nil {
			if errors.Is(err, ErrRetryExhausted) {
				lastErr = err
				continue
			}
			return "", nil, Stats{}, fmt.Errorf("render: draw and encode: %w", err)
		}

		return result.Solution, blob, Stats{
			PositionCorrections: result.PositionCorrections,
			ColorRetries:        result.ColorRetries,
			FontSizeSum:         result.FontSizeSum,
			NoiseLayers:         noiseLayers,
			ImageSize:           len(blob),
		}, nil
	}
	return "", nil, Stats{}, fmt.Errorf("%w: %d attempts, last cause: %v", ErrRetryExhausted, maxRenderAttempts, lastErr)
}

func drawAndEncode(params Params, backend Backend, result LayoutResult, visual VisualRand) ([]byte, int, error) {
	canvas, err := backend.NewCanvas(params.Width, params.Height, rgbOf(result.Background))
	if err != nil {
		return nil, 0, fmt.Errorf("new canvas: %w", err)
	}

	for _, p := range result.Placements {
		if err := backend.DrawChar(canvas, p.Char, p.FontPath, p.Size, p.X, p.Y, rgbOf(p.Color)); err != nil {
			return nil, 0, fmt.Errorf("draw char %q: %w", p.Char, err)
		}
	}

	noiseLayers, err := drawNoise(params, backend, canvas, result.Background, visual)
	if err != nil {
		return nil, 0, err
	}

	blob, err := backend.Encode(canvas, params.Format)
	if err != nil {
		return nil, 0, fmt.Errorf("encode: %w", err)
	}
	return blob, noiseLayers, nil
}

const (
	noiseKindArc = iota
	noiseKindLine
	noiseKindPoints
	noiseKindNone
	noiseKindCount
)

const maxNoisePoints = 300

func drawNoise(params Params, backend Backend, canvas Canvas, bg [3]uint8, visual VisualRand) (int, error) {
	layers := 0
	bgColor := rgbOf(bg)
	for i := 0; i < params.MaxNoise; i++ {
		switch visual.IntN(noiseKindCount) {
		case noiseKindNone:
			continue
		case noiseKindArc:
			x1, y1 := randomPoint(visual, params.Width, params.Height)
			x2, y2 := randomPoint(visual, params.Width, params.Height)
			cx, cy := (x1+x2)/2, (y1+y2)/2
			radius := (absDiff(x1, x2) + absDiff(y1, y2)) / 2
			if radius == 0 {
				radius = 1
			}
			startDeg := visual.Float64() * 360
			endDeg := visual.Float64() * 360
			col, _, ok := pickCompliantColor(visual, bgColor, params.MinBrightnessDiff, params.MinHueDiff, maxColorAttempts)
			if !ok {
				return layers, ErrRetryExhausted
			}
			if err := backend.DrawArc(canvas, cx, cy, radius, startDeg, endDeg, 1+visual.IntN(4), col); err != nil {
				return layers, fmt.Errorf("draw noise arc: %w", err)
			}
			layers++
		case noiseKindLine:
			x1, y1 := randomPoint(visual, params.Width, params.Height)
			x2, y2 := randomPoint(visual, params.Width, params.Height)
			col, _, ok := pickCompliantColor(visual, bgColor, params.MinBrightnessDiff, params.MinHueDiff, maxColorAttempts)
			if !ok {
				return layers, ErrRetryExhausted
			}
			if err := backend.DrawLine(canvas, x1, y1, x2, y2, 1+visual.IntN(4), col); err != nil {
				return layers, fmt.Errorf("draw noise line: %w", err)
			}
			layers++
		case noiseKindPoints:
			col, _, ok := pickCompliantColor(visual, bgColor, params.MinBrightnessDiff, params.MinHueDiff, maxColorAttempts)
			if !ok {
				return layers, ErrRetryExhausted
			}
			count := 1 + visual.IntN(maxNoisePoints)
			pts := make([][2]int, count)
			for j := range pts {
				x, y := randomPoint(visual, params.Width, params.Height)
				pts[j] = [2]int{x, y}
			}
			if err := backend.DrawPoints(canvas, pts, col); err != nil {
				return layers, fmt.Errorf("draw noise points: %w", err)
			}
			layers++
		}
	}
	return layers, nil
}

func randomPoint(visual VisualRand, width, height int) (int, int) {
	return visual.IntN(width), visual.IntN(height)
}

func absDiff(a, b int) int {
	if a < b {
		return b - a
	}
	return a - b
}
