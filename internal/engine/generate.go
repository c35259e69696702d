package engine

import (
	"context"
	"image"
	"sync/atomic"

	"imaged/internal/policy"
)

// GenerateRequest is the engine-level generation input. Seed < 0 means "draw a
// fresh random seed"; the resolved seed is always echoed in the result so a
// caller can reproduce the output.
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	GuidanceScale  *float64
	CFGScale       *float64
	Seed           int64
	Images         []image.Image
}

// GenerateResult is the engine-level generation output.
type GenerateResult struct {
	Image image.Image
	Seed  uint32
}

// acquire checks readiness and takes the single in-flight slot, blocking until
// the slot frees or ctx is done. The pipeline handle is snapshotted under the
// lock so a concurrent Close cannot nil it out from under the caller. The
// returned release func must be called exactly once.
func (e *Engine) acquire(ctx context.Context) (Pipeline, func(), error) {
	e.mu.RLock()
	st := e.state
	pipe := e.pipeline
	e.mu.RUnlock()
	if st != StateReady || pipe == nil {
		return nil, nil, notLoadedError{state: st}
	}
	select {
	case e.genCh <- struct{}{}:
		return pipe, func() { <-e.genCh }, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (e *Engine) resolveSeed(seed int64) uint32 {
	if seed < 0 {
		return e.seedFn()
	}
	return uint32(seed)
}

// Generate runs one text-to-image or image-edit job through the loaded
// pipeline. A runtime failure is returned to the caller; it never demotes the
// session out of ready.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	mode := policy.ModeGenerate
	if len(req.Images) > 0 {
		mode = policy.ModeEdit
	}
	if !e.profile.Supports(mode) {
		return GenerateResult{}, unsupportedModeError{mode: string(mode), variant: e.profile.ID}
	}
	if max := e.profile.MaxInputImages; len(req.Images) > max {
		return GenerateResult{}, ErrInvalidRequest("too many input images")
	}
	if req.Prompt == "" {
		return GenerateResult{}, ErrInvalidRequest("prompt is required")
	}

	pipe, release, err := e.acquire(ctx)
	if err != nil {
		return GenerateResult{}, err
	}
	defer release()

	gen, ok := pipe.(Generator)
	if !ok {
		return GenerateResult{}, unsupportedModeError{mode: string(mode), variant: e.profile.ID}
	}

	job := e.buildJob(req)
	img, err := gen.Generate(ctx, job)
	if err != nil {
		return GenerateResult{}, err
	}
	atomic.AddUint64(&e.generations, 1)
	e.pub.Publish(Event{Name: "generate_done", Fields: map[string]any{
		"seed":  job.Seed,
		"width": job.Width, "height": job.Height,
	}})
	return GenerateResult{Image: img, Seed: job.Seed}, nil
}

// buildJob applies profile defaults and resolves the seed.
func (e *Engine) buildJob(req GenerateRequest) Job {
	p := e.profile
	job := Job{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		Steps:          req.Steps,
		Seed:           e.resolveSeed(req.Seed),
		Images:         req.Images,
	}
	if job.Width <= 0 {
		job.Width = 1024
	}
	if job.Height <= 0 {
		job.Height = 1024
	}
	if job.Steps <= 0 {
		job.Steps = p.DefaultSteps
	}
	if req.GuidanceScale != nil {
		job.GuidanceScale = *req.GuidanceScale
	} else {
		job.GuidanceScale = p.DefaultGuidance
	}
	if req.CFGScale != nil {
		job.CFGScale = *req.CFGScale
	} else {
		job.CFGScale = p.DefaultCFG
	}
	if p.ForceZeroGuidance {
		// Distilled model: nonzero guidance degrades output, so the knob is
		// pinned regardless of what the caller sent.
		job.GuidanceScale = 0
	}
	return job
}

// Understand runs the image-understanding mode: image plus question in, text
// answer out.
func (e *Engine) Understand(ctx context.Context, img image.Image, prompt string) (string, error) {
	if !e.profile.Supports(policy.ModeUnderstand) {
		return "", unsupportedModeError{mode: string(policy.ModeUnderstand), variant: e.profile.ID}
	}
	if img == nil {
		return "", ErrInvalidRequest("image is required")
	}
	if prompt == "" {
		return "", ErrInvalidRequest("prompt is required")
	}

	pipe, release, err := e.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	cap, ok := pipe.(Captioner)
	if !ok {
		return "", ErrDependencyUnavailable("understanding model not available in this build")
	}
	text, err := cap.Caption(ctx, img, prompt)
	if err != nil {
		return "", err
	}
	atomic.AddUint64(&e.generations, 1)
	e.pub.Publish(Event{Name: "understand_done"})
	return text, nil
}

// Upscale runs the super-resolution mode. scale <= 0 takes the profile's
// factor.
func (e *Engine) Upscale(ctx context.Context, img image.Image, scale int, prompt string) (image.Image, error) {
	if !e.profile.Supports(policy.ModeUpscale) {
		return nil, unsupportedModeError{mode: string(policy.ModeUpscale), variant: e.profile.ID}
	}
	if img == nil {
		return nil, ErrInvalidRequest("image is required")
	}
	if scale <= 0 {
		scale = e.profile.UpscaleFactor
	}

	pipe, release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	up, ok := pipe.(Upscaler)
	if !ok {
		return nil, unsupportedModeError{mode: string(policy.ModeUpscale), variant: e.profile.ID}
	}
	out, err := up.Upscale(ctx, img, scale, prompt)
	if err != nil {
		return nil, err
	}
	atomic.AddUint64(&e.generations, 1)
	e.pub.Publish(Event{Name: "upscale_done", Fields: map[string]any{"scale": scale}})
	return out, nil
}

// Generations returns the count of completed inference calls.
func (e *Engine) Generations() uint64 {
	return atomic.LoadUint64(&e.generations)
}
