// Package engine owns the resolved session: the fallback loader that walks
// backend candidates, the single loaded pipeline handle, and the serialized
// generate/understand/upscale entry points.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"imaged/internal/gpu"
	"imaged/internal/policy"
)

// Config encapsulates everything the engine needs at construction.
type Config struct {
	Profile     policy.Profile
	Accelerator gpu.Accelerator
	Builder     PipelineBuilder
	Publisher   EventPublisher
}

// Engine is the process-wide resolved session. Exactly one exists per process;
// only Load mutates its state, request handlers only read it.
type Engine struct {
	mu       sync.RWMutex
	state    State
	profile  policy.Profile
	accel    gpu.Accelerator
	builder  PipelineBuilder
	pub      EventPublisher
	active   policy.Candidate
	pipeline Pipeline
	attempts []Attempt
	lastErr  string

	// genCh is the single in-flight generation slot. The pipeline handle is
	// non-reentrant; two inference calls must never run accelerator work
	// concurrently.
	genCh chan struct{}

	// seedFn draws a fresh seed for unseeded requests; swapped in tests.
	seedFn func() uint32

	generations uint64
	startTime   time.Time
	closeOnce   sync.Once
}

// New constructs an engine in the unloaded state.
func New(cfg Config) *Engine {
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Engine{
		state:     StateUnloaded,
		profile:   cfg.Profile,
		accel:     cfg.Accelerator,
		builder:   cfg.Builder,
		pub:       pub,
		genCh:     make(chan struct{}, 1),
		seedFn:    rand.Uint32,
		startTime: time.Now(),
	}
}

// Ready reports whether the session reached the ready state.
func (e *Engine) Ready() bool {
	return e.State() == StateReady
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Profile returns the compiled-in variant profile the engine serves.
func (e *Engine) Profile() policy.Profile { return e.profile }

// Accelerator returns the probe snapshot the engine was built with.
func (e *Engine) Accelerator() gpu.Accelerator { return e.accel }

// ActiveCandidate returns the resolved candidate; the zero value until ready.
func (e *Engine) ActiveCandidate() policy.Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// Attempts returns a copy of the candidate attempts made so far.
func (e *Engine) Attempts() []Attempt {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Attempt, len(e.attempts))
	copy(out, e.attempts)
	return out
}

// Close releases the pipeline handle exactly once, regardless of which state
// the session reached. Safe to call on a never-loaded or failed engine.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		p := e.pipeline
		e.pipeline = nil
		e.mu.Unlock()
		if p != nil {
			err = p.Close()
		}
		e.pub.Publish(Event{Name: "engine_closed"})
	})
	return err
}
