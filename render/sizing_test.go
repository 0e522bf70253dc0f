package render

import "testing"

func TestDeriveFontSizesFitsWidth(t *testing.T) {
	params := testParams()
	params.FontSizeShiftPercent = 0

	sizes, err := DeriveFontSizes(params, fakeMetrics{})
	if err != nil {
		t.Fatalf("DeriveFontSizes: %v", err)
	}
	for _, fontPath := range params.Fonts {
		size, ok := sizes[fontPath]
		if !ok {
			t.Fatalf("missing derived size for %s", fontPath)
		}
		if size <= 0 {
			t.Fatalf("derived size for %s = %d, want > 0", fontPath, size)
		}
		widest := 0
		for _, r := range params.CharacterSet {
			gm, _ := fakeMetrics{}.Glyph(fontPath, size, r)
			if w := gm.HalfWidth * 2; w > widest {
				widest = w
			}
		}
		if widest*(params.TextLength+1) > params.Width {
			t.Errorf("font %s: widest*textLen+1 = %d exceeds width %d", fontPath, widest*(params.TextLength+1), params.Width)
		}
	}
}

func TestDeriveFontSizesUnusableWhenTooNarrow(t *testing.T) {
	params := testParams()
	params.Width = 1
	params.TextLength = 50

	_, err := DeriveFontSizes(params, fakeMetrics{})
	if err == nil {
		t.Fatal("expected an error for an unsatisfiable width")
	}
}

func TestDeriveFontSizesAppliesShift(t *testing.T) {
	base := testParams()
	base.FontSizeShiftPercent = 0
	shifted := testParams()
	shifted.FontSizeShiftPercent = 50

	baseSizes, err := DeriveFontSizes(base, fakeMetrics{})
	if err != nil {
		t.Fatalf("DeriveFontSizes(base): %v", err)
	}
	shiftedSizes, err := DeriveFontSizes(shifted, fakeMetrics{})
	if err != nil {
		t.Fatalf("DeriveFontSizes(shifted): %v", err)
	}
	for _, fontPath := range base.Fonts {
		if shiftedSizes[fontPath] >= baseSizes[fontPath] {
			t.Errorf("font %s: shifted size %d should be smaller than base size %d",
				fontPath, shiftedSizes[fontPath], baseSizes[fontPath])
		}
	}
}
