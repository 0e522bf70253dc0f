// Package instance implements the reusable CAPTCHA carrier: the last
// rendered blob, its plaintext solution, and the per-generation
// counters the Engine surfaces as statistics.
package instance

import (
	"fmt"
	"os"
	"sync"

	"captchaforge/render"
)

// Config bundles everything an Instance needs to render: the
// renderer-facing parameters and the three external collaborators
// (raster backend, CSPRNG, general PRNG).
type Config struct {
	Params  render.Params
	Backend render.Backend
	Secure  render.SecureRand
	Visual  render.VisualRand
}

// Stats is a snapshot of one Instance's counters plus the Params
// snapshot that produced them.
type Stats struct {
	Generation          int
	NoiseLayers         int
	PositionCorrections int
	ColorRetries        int
	FontSizeSum         int
	ImageSize           int
	Params              render.Params
}

// Instance owns one latest rendered blob and its solution. All methods
// are safe for concurrent use; the Engine hands an Instance to exactly
// one goroutine at a time by construction (it moves between channels),
// but the lock still protects Stats() snapshots taken concurrently with
// a background regenerate.
type Instance struct {
	mu sync.Mutex

	cfg Config

	blob     []byte
	solution string

	generation          int
	noiseLayers         int
	positionCorrections int
	colorRetries        int
	fontSizeSum         int
	imageSize           int
}

// New constructs an Instance from cfg and renders it once before
// returning, matching the spec's new(Settings) -> generate() lifecycle.
func New(cfg Config) (*Instance, error) {
	inst := &Instance{cfg: cfg}
	if err := inst.generateLocked(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Generate re-renders the Instance in place: a fresh solution and
// blob, reset per-generation counters, and an incremented generation
// count.
func (inst *Instance) Generate() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.generateLocked()
}

func (inst *Instance) generateLocked() error {
	solution, blob, stats, err := render.Render(inst.cfg.Params, inst.cfg.Backend, inst.cfg.Secure, inst.cfg.Visual)
	if err != nil {
		return fmt.Errorf("instance: generate: %w", err)
	}
	inst.solution = solution
	inst.blob = blob
	inst.positionCorrections = stats.PositionCorrections
	inst.colorRetries = stats.ColorRetries
	inst.fontSizeSum = stats.FontSizeSum
	inst.noiseLayers = stats.NoiseLayers
	inst.imageSize = stats.ImageSize
	inst.generation++
	return nil
}

// Blob returns the cached encoded image bytes from the last successful
// generate.
func (inst *Instance) Blob() []byte {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.blob
}

// Solution returns the plaintext solution from the last successful
// generate.
func (inst *Instance) Solution() string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.solution
}

// Save writes the cached blob to path, rendering first if the Instance
// has never successfully generated one.
func (inst *Instance) Save(path string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.blob == nil {
		if err := inst.generateLocked(); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, inst.blob, 0644); err != nil {
		return fmt.Errorf("instance: save %s: %w", path, err)
	}
	return nil
}

// Reconfigure atomically swaps in new Params and re-renders, discarding
// all prior placement/rendering state.
func (inst *Instance) Reconfigure(params render.Params) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.cfg.Params = params
	return inst.generateLocked()
}

// Stats returns a snapshot of the Instance's counters and the Params
// that produced them.
func (inst *Instance) Stats() Stats {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return Stats{
		Generation:          inst.generation,
		NoiseLayers:         inst.noiseLayers,
		PositionCorrections: inst.positionCorrections,
		ColorRetries:        inst.colorRetries,
		FontSizeSum:         inst.fontSizeSum,
		ImageSize:           inst.imageSize,
		Params:              inst.cfg.Params,
	}
}
