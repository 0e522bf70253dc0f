package render

// Params is the renderer-facing subset of the root package's Settings.
// It is a distinct type rather than a reuse of Settings so this package
// never imports the root captchaforge package (Settings needs
// engine-level fields — pool size, rate limit, lifetime — that have no
// meaning to the pure layout algorithm, and a shared type would create
// an import cycle between the root package and its own render
// collaborator).
type Params struct {
	Width, Height int
	Format        Format

	// Text, if non-empty, fixes the solution text. Otherwise TextLength
	// characters are drawn uniformly from CharacterSet.
	Text         string
	TextLength   int
	CharacterSet []rune

	// Fonts lists candidate font file paths; DerivedSizes gives, per
	// font path, the default per-character size computed by
	// DeriveFontSizes from Width/TextLength/CharacterSet, which Layout
	// jitters by up to ±FontSizeShiftPercent for each character.
	Fonts        []string
	DerivedSizes map[string]int

	HorizontalShiftPercent int
	VerticalShiftPercent   int
	FontSizeShiftPercent   int

	OverlapEnabled bool
	MaxNoise       int

	MinBrightnessDiff float64
	MinHueDiff        float64
}
