package render

import (
	"fmt"
	"math"
)

// maxColorAttempts bounds the per-character contrast rejection-sampling
// loop. Exhausting it aborts the whole image, not just the character —
// the caller (Render) retries the entire layout.
const maxColorAttempts = 10000

// SecureRand is the CSPRNG surface the layout algorithm uses for the
// two draws the spec calls security sensitive: solution characters and
// font-path selection.
type SecureRand interface {
	IntN(n int) (int, error)
}

// CharacterPlacement is one glyph's resolved placement, matching the
// data model: character, resolved (font, size), center (x, y), fill
// color, plus the half-extent metrics the anti-overlap pass computed
// for it.
type CharacterPlacement struct {
	Char       rune
	FontPath   string
	Size       int
	X, Y       int
	Color      [3]uint8
	HalfWidth  int
	HalfHeight int
}

// LayoutResult is everything one render pass over a Params produces
// before drawing: the chosen solution, background color, final
// placements, and the counters the Instance surfaces as stats.
type LayoutResult struct {
	Solution            string
	Background          [3]uint8
	Placements          []CharacterPlacement
	PositionCorrections int
	ColorRetries        int
	FontSizeSum         int
}

// Layout runs the deterministic-up-to-randomness placement algorithm:
// background, solution text, per-character font/size/position/color,
// then (unless overlap is allowed) the anti-overlap correction pass.
// It returns ErrRetryExhausted if the per-character contrast loop ran
// out of draws — the caller should retry the whole layout, not patch
// up the character in place, matching the spec's "abort the entire
// image" failure mode.
func Layout(params Params, metrics FontMetrics, secure SecureRand, visual VisualRand) (LayoutResult, error) {
	if len(params.Fonts) == 0 {
		return LayoutResult{}, fmt.Errorf("render: Layout: no fonts configured")
	}

	bg := [3]uint8{uint8(visual.IntN(256)), uint8(visual.IntN(256)), uint8(visual.IntN(256))}
	bgColor := rgbOf(bg)

	solution, err := chooseSolution(params, secure)
	if err != nil {
		return LayoutResult{}, err
	}
	chars := []rune(solution)
	n := len(chars)

	placements := make([]CharacterPlacement, n)
	colorRetries := 0
	fontSizeSum := 0
	anchorSpacing := float64(params.Width) / float64(n+1)
	prevX := -1

	for i, ch := range chars {
		fontIdx, err := secure.IntN(len(params.Fonts))
		if err != nil {
			return LayoutResult{}, fmt.Errorf("render: Layout: pick font: %w", err)
		}
		fontPath := params.Fonts[fontIdx]

		defaultSize := params.DerivedSizes[fontPath]
		sizeOffsetPct := uniformSigned(visual, params.FontSizeShiftPercent)
		size := int(math.Round(float64(defaultSize) * (1 + sizeOffsetPct/100)))
		if size < 1 {
			size = 1
		}
		fontSizeSum += size

		// Horizontal shift is expressed relative to the even anchor
		// spacing so CHARACTER_HORIZONTAL_SHIFT_PERCENTAGE=100 means
		// "can drift as far as the neighboring anchor".
		anchorX := anchorSpacing * float64(i+1)
		hShiftPct := uniformSigned(visual, params.HorizontalShiftPercent)
		x := int(math.Round(anchorX + anchorSpacing*hShiftPct/100))
		if x <= prevX {
			x = prevX + 1
		}
		prevX = x

		// Vertical shift is expressed relative to half the image
		// height, since there is only one vertical anchor (mid-image)
		// rather than a spacing between anchors.
		vShiftPct := uniformSigned(visual, params.VerticalShiftPercent)
		y := int(math.Round(float64(params.Height)/2 + float64(params.Height)/2*vShiftPct/100))

		c, attempts, ok := pickCompliantColor(visual, bgColor, params.MinBrightnessDiff, params.MinHueDiff, maxColorAttempts)
		if !ok {
			return LayoutResult{}, ErrRetryExhausted
		}
		colorRetries += attempts - 1

		gm, err := metrics.Glyph(fontPath, size, ch)
		if err != nil {
			return LayoutResult{}, fmt.Errorf("render: Layout: measure %q: %w", ch, err)
		}

		placements[i] = CharacterPlacement{
			Char:       ch,
			FontPath:   fontPath,
			Size:       size,
			X:          x,
			Y:          y,
			Color:      [3]uint8{c.R, c.G, c.B},
			HalfWidth:  gm.HalfWidth,
			HalfHeight: gm.HalfHeight,
		}
	}

	corrections := 0
	if !params.OverlapEnabled && n > 0 {
		corrections = correctOverlaps(placements, params.Width, params.Height)
	}

	return LayoutResult{
		Solution:            solution,
		Background:          bg,
		Placements:          placements,
		PositionCorrections: corrections,
		ColorRetries:        colorRetries,
		FontSizeSum:         fontSizeSum,
	}, nil
}

func chooseSolution(params Params, secure SecureRand) (string, error) {
	if params.Text != "" {
		return params.Text, nil
	}
	runes := make([]rune, params.TextLength)
	for i := range runes {
		idx, err := secure.IntN(len(params.CharacterSet))
		if err != nil {
			return "", fmt.Errorf("render: Layout: pick character: %w", err)
		}
		runes[i] = params.CharacterSet[idx]
	}
	return string(runes), nil
}

func uniformSigned(rng VisualRand, shiftPercent int) float64 {
	if shiftPercent == 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * float64(shiftPercent)
}

// correctOverlaps implements the anti-overlap pass from a median index
// outward, pushing overlapping neighbors apart and, if either end still
// overflows the canvas, shifting a run of characters up to the largest
// gap found across *both* scans. A single largest-gap/index pair is
// threaded through the left scan and the right scan, and that same
// value is reused for both the left-cutoff and the right-cutoff fix —
// a gap discovered on one side can determine the correction applied to
// the other. Ties (including a zero-size gap) favor the later scan
// position, matching the source's unconditional overwrite on ">=".
func correctOverlaps(placements []CharacterPlacement, width, height int) int {
	n := len(placements)
	corrections := 0
	median := (n - 1) / 2

	largestGap := 0
	indexLargestGapToRight := median

	for i := median; i > 0; i-- {
		leftEdge := placements[i].X - placements[i].HalfWidth
		rightEdgeOfNeighbor := placements[i-1].X + placements[i-1].HalfWidth
		if rightEdgeOfNeighbor > leftEdge {
			overlap := rightEdgeOfNeighbor - leftEdge
			placements[i-1].X -= overlap
			corrections++
		} else {
			gapSize := leftEdge - rightEdgeOfNeighbor
			if gapSize >= largestGap {
				largestGap = gapSize
				indexLargestGapToRight = i - 1
			}
		}
	}

	for i := median; i < n-1; i++ {
		rightEdge := placements[i].X + placements[i].HalfWidth
		leftEdgeOfNeighbor := placements[i+1].X - placements[i+1].HalfWidth
		if leftEdgeOfNeighbor < rightEdge {
			overlap := rightEdge - leftEdgeOfNeighbor
			placements[i+1].X += overlap
			corrections++
		} else {
			gapSize := leftEdgeOfNeighbor - rightEdge
			if gapSize >= largestGap {
				largestGap = gapSize
				indexLargestGapToRight = i
			}
		}
	}

	if leftEdge := placements[0].X - placements[0].HalfWidth; leftEdge < 0 {
		overflow := -leftEdge
		for i := 0; i <= indexLargestGapToRight; i++ {
			placements[i].X += overflow
		}
		corrections++
	}

	if rightEdge := placements[n-1].X + placements[n-1].HalfWidth; rightEdge > width {
		overflow := rightEdge - width
		for i := indexLargestGapToRight + 1; i < n; i++ {
			placements[i].X -= overflow
		}
		corrections++
	}

	for i := range placements {
		top := placements[i].Y - placements[i].HalfHeight
		bottom := placements[i].Y + placements[i].HalfHeight
		switch {
		case top < 0:
			placements[i].Y += -top
			corrections++
		case bottom > height:
			placements[i].Y -= bottom - height
			corrections++
		}
	}

	return corrections
}
