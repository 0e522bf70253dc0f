package captchaforge

import "time"

// EngineStats is a point-in-time snapshot of Engine activity. Per-hour
// rates are computed against uptime and have no meaning for an Engine
// that has run less than a few minutes.
type EngineStats struct {
	Uptime time.Duration

	Issued             int64
	ValidationAttempts int64
	SuccessfulSolves   int64

	IssuedPerHour             float64
	ValidationAttemptsPerHour float64
	SuccessfulSolvesPerHour   float64

	Shutdown bool

	// SampledInstances is how many pool Instances contributed to the
	// averages below; PrintStats samples the fresh pool rather than
	// tracking per-Instance stats globally, so this is usually less
	// than PoolSize and can be zero under heavy concurrent Get traffic.
	SampledInstances           int
	AverageNoiseLayers         float64
	AveragePositionCorrections float64
	AverageColorRetries        float64
	AverageFontSize            float64
	AverageImageSize           float64
}
