package engine

import (
	"context"
	"image"

	"imaged/internal/policy"
)

// Job carries one generation request into a pipeline. Seed is always resolved
// before the pipeline sees it.
type Job struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
	CFGScale       float64
	Seed           uint32
	Images         []image.Image
}

// Pipeline is an opaque, non-reentrant model handle. The engine serializes all
// calls into it; implementations need no internal locking.
type Pipeline interface {
	// Close releases the handle and any accelerator memory it holds.
	Close() error
}

// Generator is implemented by pipelines that produce images from a Job.
type Generator interface {
	Generate(ctx context.Context, job Job) (image.Image, error)
}

// Captioner is implemented by pipelines with an understanding mode
// (image + prompt -> text).
type Captioner interface {
	Caption(ctx context.Context, img image.Image, prompt string) (string, error)
}

// Upscaler is implemented by super-resolution pipelines.
type Upscaler interface {
	Upscale(ctx context.Context, img image.Image, scale int, prompt string) (image.Image, error)
}

// PipelineBuilder constructs a pipeline for one backend candidate. A build
// error means the candidate is unusable (missing runtime, incompatible export,
// out of memory) and the loader advances to the next candidate.
type PipelineBuilder interface {
	Build(ctx context.Context, cand policy.Candidate) (Pipeline, error)
}

// BuilderFunc adapts a function to the PipelineBuilder interface.
type BuilderFunc func(ctx context.Context, cand policy.Candidate) (Pipeline, error)

func (f BuilderFunc) Build(ctx context.Context, cand policy.Candidate) (Pipeline, error) {
	return f(ctx, cand)
}
