package captchaforge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"captchaforge/internal/applog"
	"captchaforge/internal/instance"
	"captchaforge/internal/tokencodec"
	"captchaforge/render"
)

// Engine owns the warm pool of pre-generated Instances and the three
// background tasks that keep it full, recycle spent Instances, and
// arbitrate single-use token consumption: a Generator, a Refresher, and
// a Validator, matching the producer/consumer shape the spec's
// concurrency model describes.
type Engine struct {
	backend render.Backend
	secure  render.SecureRand
	visual  render.VisualRand
	logger  *applog.Logger
	now     func() time.Time

	codec *tokencodec.Codec

	mu       sync.Mutex
	settings Settings

	fresh            chan *instance.Instance
	used             chan *instance.Instance
	toValidate       chan []byte
	validationResult chan bool
	settingsUpdate   chan Settings
	stop             chan struct{}

	wg       sync.WaitGroup
	inFlight sync.WaitGroup

	// validateMu serializes the send/receive pair that makes up one
	// Validate call against the Validator task, and doubles as the
	// barrier Shutdown takes to guarantee no Validate is mid-flight
	// before it closes toValidate/validationResult.
	validateMu sync.Mutex

	createdAt time.Time

	shutdownFlag atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error

	issued             atomic.Int64
	validationAttempts atomic.Int64
	successfulSolves   atomic.Int64
}

// syncSecure serializes access to a render.SecureRand shared across the
// workers of the initial pool fill in New, the Generator's reconfigure
// drain, and the Refresher's regenerations, which render concurrently.
type syncSecure struct {
	mu    sync.Mutex
	inner render.SecureRand
}

func (s *syncSecure) IntN(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.IntN(n)
}

// syncVisual is syncSecure's counterpart for the general-purpose PRNG.
type syncVisual struct {
	mu    sync.Mutex
	inner render.VisualRand
}

func (v *syncVisual) IntN(n int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inner.IntN(n)
}

func (v *syncVisual) Float64() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inner.Float64()
}

// New constructs an Engine from settings, validating it and filling the
// initial pool before returning. settings.PoolSize fixes the capacity
// of both the fresh and used channels for the Engine's lifetime;
// Reconfigure refuses any later change to it.
func New(settings Settings, opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := settings.Validate(cfg.backend); err != nil {
		return nil, err
	}

	key, err := tokencodec.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("captchaforge: new: generate token key: %w", err)
	}
	codec, err := tokencodec.New(key)
	if err != nil {
		return nil, fmt.Errorf("captchaforge: new: token codec: %w", err)
	}

	e := &Engine{
		backend:          cfg.backend,
		secure:           &syncSecure{inner: cfg.secure},
		visual:           &syncVisual{inner: cfg.visual},
		logger:           cfg.logger,
		now:              cfg.now,
		codec:            codec,
		settings:         settings,
		fresh:            make(chan *instance.Instance, settings.PoolSize),
		used:             make(chan *instance.Instance, settings.PoolSize),
		toValidate:       make(chan []byte, 1),
		validationResult: make(chan bool, 1),
		settingsUpdate:   make(chan Settings, 1),
		stop:             make(chan struct{}, 3),
		createdAt:        cfg.now(),
	}

	e.fillInitialPool()

	e.wg.Add(3)
	go e.generatorLoop()
	go e.refresherLoop()
	go e.validatorLoop()

	return e, nil
}

func (e *Engine) newInstance(s Settings) (*instance.Instance, error) {
	return instance.New(instance.Config{
		Params:  s.ToRenderParams(),
		Backend: e.backend,
		Secure:  e.secure,
		Visual:  e.visual,
	})
}

// fillInitialPool renders settings.PoolSize Instances before New
// returns, spread across a small worker pool since each render is
// independent and the pool can be large. The fresh channel's capacity
// equals PoolSize, so every send below completes without blocking.
func (e *Engine) fillInitialPool() {
	const workers = 8
	n := e.settings.PoolSize
	jobs := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				inst, err := e.newInstance(e.settingsSnapshot())
				if err != nil {
					e.logger.Errorf("captchaforge: initial pool fill: %v", err)
					continue
				}
				e.fresh <- inst
			}
		}()
	}
	wg.Wait()
}

func (e *Engine) settingsSnapshot() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Get()
}

// Get pulls one ready Instance from the pool, seals its solution into a
// single-use token, optionally saves the image to savePath, and hands
// the spent Instance to the Refresher via the used channel. It returns
// ErrShutdown if the Engine has been shut down, either immediately or
// after unblocking from a pool wait that a concurrent Shutdown ended.
func (e *Engine) Get(savePath string) (blob []byte, token []byte, err error) {
	if e.shutdownFlag.Load() {
		return nil, nil, ErrShutdown
	}

	inst, ok := <-e.fresh
	if !ok {
		return nil, nil, ErrShutdown
	}

	e.inFlight.Add(1)
	defer e.inFlight.Done()

	blob = inst.Blob()
	solution := inst.Solution()

	token, err = e.codec.Seal([]byte(solution), e.now())
	if err != nil {
		return nil, nil, fmt.Errorf("captchaforge: get: seal token: %w", err)
	}

	if savePath != "" {
		if err := inst.Save(savePath); err != nil {
			return nil, nil, fmt.Errorf("captchaforge: get: save: %w", err)
		}
	}

	e.used <- inst
	e.issued.Add(1)
	return blob, token, nil
}

// Validate checks a token's signature and freshness, compares its
// plaintext solution against answer (respecting CASE_SENSITIVE), and —
// only if both checks pass — asks the Validator whether the token has
// already been consumed. A token is consumed exactly once: the second
// Validate call with the same token, even with the right answer, gets
// false. The only error it returns is ErrShutdown.
func (e *Engine) Validate(token []byte, answer string) (bool, error) {
	if e.shutdownFlag.Load() {
		return false, ErrShutdown
	}

	lifetime, caseSensitive := e.validationSettings()

	plaintext, err := e.codec.Open(token, lifetime, e.now())
	e.validationAttempts.Add(1)
	if err != nil {
		return false, nil
	}

	if !solutionMatches(string(plaintext), answer, caseSensitive) {
		return false, nil
	}

	e.validateMu.Lock()
	defer e.validateMu.Unlock()
	if e.shutdownFlag.Load() {
		return false, ErrShutdown
	}

	e.toValidate <- token
	fresh := <-e.validationResult
	if fresh {
		e.successfulSolves.Add(1)
	}
	return fresh, nil
}

func (e *Engine) validationSettings() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Lifetime, e.settings.CaseSensitive
}

func solutionMatches(solution, answer string, caseSensitive bool) bool {
	if caseSensitive {
		return solution == answer
	}
	return equalFold(solution, answer)
}

func equalFold(a, b string) bool {
	ar, br := []rune(a), []rune(b)
	if len(ar) != len(br) {
		return false
	}
	for i := range ar {
		if toLowerRune(ar[i]) != toLowerRune(br[i]) {
			return false
		}
	}
	return true
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// Reconfigure swaps in new Settings for every Instance in the pool. It
// rejects any change to POOL_SIZE, since that fixes the channel
// capacities for the Engine's lifetime, and blocks only long enough to
// enqueue the update — the Generator applies it within its next
// 1-second tick.
func (e *Engine) Reconfigure(newSettings Settings) error {
	if e.shutdownFlag.Load() {
		return ErrShutdown
	}

	current := e.settingsSnapshot()
	if newSettings.PoolSize != current.PoolSize {
		return &ConfigError{Field: "POOL_SIZE", Reason: "cannot be changed via Reconfigure"}
	}
	if err := newSettings.Validate(e.backend); err != nil {
		return err
	}

	e.settingsUpdate <- newSettings
	return nil
}

// Shutdown stops all three background tasks, then drains and closes the
// channels they own, in a fixed order: fresh (unblocking any parked
// Get), then used (once every in-flight Get has finished handing its
// spent Instance off), then the validator's request/response pair.
// Shutdown never force-kills a task; it always joins them first. It is
// idempotent: calling it more than once just returns the first call's
// result.
func (e *Engine) Shutdown() error {
	e.shutdownOnce.Do(func() {
		e.shutdownFlag.Store(true)

		e.validateMu.Lock()
		defer e.validateMu.Unlock()

		for i := 0; i < 3; i++ {
			e.stop <- struct{}{}
		}
		e.wg.Wait()

		close(e.fresh)
		for range e.fresh {
		}
		e.inFlight.Wait()
		close(e.used)
		for range e.used {
		}
		close(e.toValidate)
		close(e.validationResult)

		if e.logger != nil {
			e.shutdownErr = e.logger.Close()
		}
	})
	return e.shutdownErr
}

// generatorLoop fills the pool at startup (done by New before this
// loop starts) and, for the Engine's lifetime, applies settings updates
// by draining every Instance from fresh and used, reconfiguring each in
// place, and returning it to fresh.
func (e *Engine) generatorLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stop:
			return
		case newSettings := <-e.settingsUpdate:
			e.applySettingsUpdate(newSettings)
		case <-time.After(time.Second):
		}
	}
}

func (e *Engine) applySettingsUpdate(newSettings Settings) {
	params := newSettings.ToRenderParams()

	var drained []*instance.Instance
drain:
	for {
		select {
		case inst := <-e.fresh:
			drained = append(drained, inst)
		case inst := <-e.used:
			drained = append(drained, inst)
		default:
			break drain
		}
	}

	for _, inst := range drained {
		if err := inst.Reconfigure(params); err != nil {
			e.logger.Errorf("captchaforge: generator: reconfigure instance: %v", err)
		}
		select {
		case e.fresh <- inst:
		default:
			e.logger.Warnf("captchaforge: generator: fresh channel full while returning reconfigured instance")
		}
	}

	e.mu.Lock()
	e.settings = newSettings
	e.mu.Unlock()
}

// refresherLoop pops spent Instances from used (with a 1-second
// timeout), paces itself according to RATE_LIMIT, regenerates each in
// place, and returns it to fresh.
func (e *Engine) refresherLoop() {
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := newRegenLimiter(e.settingsSnapshot().RateLimit)
	lastRateLimit := e.settingsSnapshot().RateLimit

	for {
		select {
		case <-e.stop:
			return
		case inst := <-e.used:
			if rl := e.settingsSnapshot().RateLimit; rl != lastRateLimit {
				limiter = newRegenLimiter(rl)
				lastRateLimit = rl
			}
			limiter.wait(ctx)

			if err := inst.Generate(); err != nil {
				e.logger.Errorf("captchaforge: refresher: regenerate: %v", err)
			}
			select {
			case e.fresh <- inst:
			case <-e.stop:
				return
			}
		case <-time.After(time.Second):
		}
	}
}

// validatorLoop is the single actor for single-use token bookkeeping:
// it owns the consumed-token set outright, so no separate mutex is
// needed to protect it. It answers each toValidate request with
// whether the token was unseen (and marks it seen either way), and
// periodically forgets tokens that have since expired so the set does
// not grow without bound.
func (e *Engine) validatorLoop() {
	defer e.wg.Done()

	consumed := make(map[string]struct{})
	sweep := time.NewTicker(30 * time.Second)
	defer sweep.Stop()

	for {
		select {
		case <-e.stop:
			return
		case token := <-e.toValidate:
			key := string(token)
			_, seen := consumed[key]
			if !seen {
				consumed[key] = struct{}{}
			}
			select {
			case e.validationResult <- !seen:
			case <-e.stop:
				return
			}
		case <-sweep.C:
			lifetime := e.settingsSnapshot().Lifetime
			now := e.now()
			for key := range consumed {
				if _, err := e.codec.Open([]byte(key), lifetime, now); err != nil {
					delete(consumed, key)
				}
			}
		case <-time.After(time.Second):
		}
	}
}

// Stats returns a point-in-time snapshot of Engine activity, briefly
// sampling the fresh pool (returning every sampled Instance immediately
// afterward) to compute per-instance averages.
func (e *Engine) Stats() EngineStats {
	uptime := e.now().Sub(e.createdAt)
	hours := uptime.Hours()
	if hours <= 0 {
		hours = 1.0 / 3600
	}

	issued := e.issued.Load()
	attempts := e.validationAttempts.Load()
	solves := e.successfulSolves.Load()

	sampled := e.sampleFreshStats()

	return EngineStats{
		Uptime:                     uptime,
		Issued:                     issued,
		ValidationAttempts:         attempts,
		SuccessfulSolves:           solves,
		IssuedPerHour:              float64(issued) / hours,
		ValidationAttemptsPerHour:  float64(attempts) / hours,
		SuccessfulSolvesPerHour:    float64(solves) / hours,
		Shutdown:                   e.shutdownFlag.Load(),
		SampledInstances:           sampled.count,
		AverageNoiseLayers:         sampled.avg(sampled.noise),
		AveragePositionCorrections: sampled.avg(sampled.corrections),
		AverageColorRetries:        sampled.avg(sampled.retries),
		AverageFontSize:            sampled.avg(sampled.fontSize),
		AverageImageSize:           sampled.avg(sampled.imageSize),
	}
}

type statsSample struct {
	count                                               int
	noise, corrections, retries, fontSize, imageSize    float64
}

func (s statsSample) avg(sum float64) float64 {
	if s.count == 0 {
		return 0
	}
	return sum / float64(s.count)
}

func (e *Engine) sampleFreshStats() statsSample {
	var drained []*instance.Instance
	poolSize := e.settingsSnapshot().PoolSize
	deadline := time.Now().Add(5 * time.Second)

drainLoop:
	for len(drained) < poolSize {
		select {
		case inst := <-e.fresh:
			drained = append(drained, inst)
		default:
			break drainLoop
		}
		if time.Now().After(deadline) {
			break
		}
	}

	var s statsSample
	for _, inst := range drained {
		st := inst.Stats()
		s.noise += float64(st.NoiseLayers)
		s.corrections += float64(st.PositionCorrections)
		s.retries += float64(st.ColorRetries)
		s.fontSize += float64(st.FontSizeSum)
		s.imageSize += float64(st.ImageSize)
		select {
		case e.fresh <- inst:
		default:
		}
	}
	s.count = len(drained)
	return s
}

// PrintStats logs a one-line summary of Stats via the standard library
// logger, for hosts that want a quick health check without wiring up
// their own metrics consumer.
func (e *Engine) PrintStats() {
	st := e.Stats()
	log.Printf(
		"captchaforge: uptime=%s issued=%d (%.1f/hr) validations=%d (%.1f/hr) solves=%d (%.1f/hr) shutdown=%v sampled=%d avg_noise=%.2f avg_corrections=%.2f avg_color_retries=%.2f avg_font_size=%.1f avg_image_bytes=%.0f",
		st.Uptime.Round(time.Second), st.Issued, st.IssuedPerHour,
		st.ValidationAttempts, st.ValidationAttemptsPerHour,
		st.SuccessfulSolves, st.SuccessfulSolvesPerHour,
		st.Shutdown, st.SampledInstances,
		st.AverageNoiseLayers, st.AveragePositionCorrections, st.AverageColorRetries,
		st.AverageFontSize, st.AverageImageSize,
	)
}
