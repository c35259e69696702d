// Package render provides the concrete pipelines behind the engine: an
// external worker process for accelerated backends and a self-contained CPU
// path that keeps the daemon serving when no accelerator runtime is present.
package render

import (
	"context"
	"fmt"

	"imaged/internal/engine"
	"imaged/internal/gpu"
	"imaged/internal/policy"
)

// Options configures pipeline construction for one daemon.
type Options struct {
	Profile policy.Profile

	// WorkerBin is the accelerated inference worker binary. Empty means no
	// accelerated backend can load and the builder fails those candidates so
	// the loader falls through to cpu.
	WorkerBin string
	// WorkerHost is the loopback host the worker binds. Defaults to 127.0.0.1.
	WorkerHost string
	// WorkerPortStart/End bound the port range for spawned workers (0 means
	// any free port).
	WorkerPortStart int
	WorkerPortEnd   int
	// WorkerExtraArgs are passed through to the worker verbatim.
	WorkerExtraArgs []string

	// CaptionModelPath points at a GGUF vision-language export for the
	// understanding mode on the cpu path. Empty disables captions.
	CaptionModelPath string
	CaptionCtxSize   int
	CaptionThreads   int

	Publisher engine.EventPublisher
}

// Builder constructs pipelines per backend candidate.
type Builder struct {
	opts Options
}

// NewBuilder returns a PipelineBuilder for the given options.
func NewBuilder(opts Options) *Builder {
	if opts.WorkerHost == "" {
		opts.WorkerHost = "127.0.0.1"
	}
	if opts.Publisher == nil {
		opts.Publisher = engine.NoopPublisher()
	}
	return &Builder{opts: opts}
}

// Build dispatches on the candidate backend. Accelerated candidates require a
// configured worker binary; the cpu candidate always succeeds.
func (b *Builder) Build(ctx context.Context, cand policy.Candidate) (engine.Pipeline, error) {
	switch cand.Backend {
	case gpu.BackendCUDA, gpu.BackendDirectML:
		if b.opts.WorkerBin == "" {
			return nil, fmt.Errorf("%s backend requires an inference worker binary", cand.Backend)
		}
		return startWorkerPipeline(ctx, b.opts, cand)
	case gpu.BackendCPU:
		return newCPUPipeline(b.opts, cand), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cand.Backend)
	}
}

var _ engine.PipelineBuilder = (*Builder)(nil)
