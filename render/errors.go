package render

import "errors"

// ErrUnusable indicates the derived font size collapsed to zero or
// negative for the current width/text-length/character-set/shift
// combination — the Settings that produced it cannot render anything.
var ErrUnusable = errors.New("render: settings unusable, derived font size is non-positive")

// ErrRetryExhausted indicates that contrast rejection sampling ran out
// of draws before finding a compliant color. Layout (character colors)
// and the noise pass (noise colors) return it for a single attempt;
// Render retries the whole image on it and returns it, wrapped, only
// once every whole-image attempt has failed that way.
var ErrRetryExhausted = errors.New("render: retry budget exhausted finding a compliant color")
