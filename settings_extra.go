package captchaforge

import (
	"os"
	"time"

	"captchaforge/render"
)

func fontPathExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EfficiencyReport is the informational-only output of CompareEfficiency.
type EfficiencyReport struct {
	AGenerations int
	BGenerations int
	ADuration    time.Duration
	BDuration    time.Duration
}

// CompareEfficiency runs two Settings back to back, each getting half
// of budget's wall-clock time to generate as many Instances as it can,
// and reports how many each managed. It exists purely to help a host
// tune Settings; its output is informational, never a correctness
// check.
func CompareEfficiency(a, b Settings, backend render.Backend, secure render.SecureRand, visual render.VisualRand, budget time.Duration) (EfficiencyReport, error) {
	half := budget / 2

	aCount, aDur, err := runFor(a, backend, secure, visual, half)
	if err != nil {
		return EfficiencyReport{}, err
	}
	bCount, bDur, err := runFor(b, backend, secure, visual, half)
	if err != nil {
		return EfficiencyReport{}, err
	}
	return EfficiencyReport{
		AGenerations: aCount,
		BGenerations: bCount,
		ADuration:    aDur,
		BDuration:    bDur,
	}, nil
}

func runFor(s Settings, backend render.Backend, secure render.SecureRand, visual render.VisualRand, budget time.Duration) (int, time.Duration, error) {
	deadline := time.Now().Add(budget)
	params := s.ToRenderParams()
	count := 0
	start := time.Now()
	for time.Now().Before(deadline) {
		if _, _, _, err := render.Render(params, backend, secure, visual); err != nil {
			return count, time.Since(start), err
		}
		count++
	}
	return count, time.Since(start), nil
}
