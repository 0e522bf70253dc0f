package captchaforge

import (
	"time"

	"captchaforge/internal/applog"
	"captchaforge/internal/csprng"
	"captchaforge/internal/rasterdefault"
	"captchaforge/render"

	mrand "math/rand/v2"
)

// engineConfig holds the collaborators an Engine needs beyond Settings.
// Every field has a working zero-config default so New(settings) alone
// is enough to get a running Engine; Options override individual pieces
// for hosts that want a custom raster backend, a file logger, or a
// fixed clock under test.
type engineConfig struct {
	backend render.Backend
	secure  render.SecureRand
	visual  render.VisualRand
	logger  *applog.Logger
	now     func() time.Time
}

func defaultEngineConfig() engineConfig {
	seed1, seed2 := seedPair()
	return engineConfig{
		backend: rasterdefault.New(),
		secure:  csprng.Uniform{Source: csprng.Default},
		visual:  mrand.New(mrand.NewPCG(seed1, seed2)),
		logger:  nil,
		now:     time.Now,
	}
}

// seedPair draws two 64-bit seeds from the CSPRNG so each Engine's
// general-purpose PRNG starts from an unpredictable point, without
// making the PRNG itself cryptographically strong (it doesn't need to
// be; only the solution and font draws do).
func seedPair() (uint64, uint64) {
	b, err := csprng.Bytes(csprng.Default, 16)
	if err != nil {
		// The CSPRNG failing here means it will fail everywhere else
		// too; fall back to a fixed seed rather than panicking, since
		// visual jitter has no security requirement.
		return 1, 2
	}
	var a, c uint64
	for i := 0; i < 8; i++ {
		a = a<<8 | uint64(b[i])
		c = c<<8 | uint64(b[i+8])
	}
	return a, c
}

// Option configures an Engine at construction time.
type Option func(*engineConfig)

// WithBackend overrides the raster backend, e.g. to swap in a GPU-backed
// or remote rendering implementation.
func WithBackend(b render.Backend) Option {
	return func(c *engineConfig) { c.backend = b }
}

// WithSecureRand overrides the CSPRNG used for solution and font
// selection. Intended for tests that need deterministic output.
func WithSecureRand(s render.SecureRand) Option {
	return func(c *engineConfig) { c.secure = s }
}

// WithVisualRand overrides the general-purpose PRNG used for jitter,
// color sampling, and noise shapes.
func WithVisualRand(v render.VisualRand) Option {
	return func(c *engineConfig) { c.visual = v }
}

// WithLogger attaches a file logger for failures and warnings raised
// while filling or refreshing the pool (failed renders, regenerations
// and reconfigurations, a full fresh channel during a settings
// update). Without one, those
// warnings are silently dropped, matching the nil-safe Logger contract.
func WithLogger(l *applog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// WithClock overrides the Engine's notion of "now", used for token
// sealing/opening and uptime reporting. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) { c.now = now }
}
