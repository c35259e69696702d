package render

import (
	"context"
	"fmt"
	"image"

	"imaged/internal/engine"
	"imaged/internal/policy"
)

// captioner is the understanding backend of the cpu pipeline. Present only in
// llama-tagged builds with a configured model.
type captioner interface {
	Caption(ctx context.Context, img image.Image, prompt string) (string, error)
	Close() error
}

// cpuPipeline is the always-loadable fallback. Generation is procedural,
// upscaling is resampling, understanding needs the optional caption model.
type cpuPipeline struct {
	profile policy.Profile
	cand    policy.Candidate
	gen     proceduralGenerator
	up      catmullRomUpscaler
	cap     captioner
	capErr  error
}

func newCPUPipeline(opts Options, cand policy.Candidate) *cpuPipeline {
	p := &cpuPipeline{profile: opts.Profile, cand: cand}
	if opts.Profile.Supports(policy.ModeUnderstand) {
		p.cap, p.capErr = newCaptioner(opts.CaptionModelPath, opts.CaptionCtxSize, opts.CaptionThreads)
	}
	return p
}

func (p *cpuPipeline) Generate(ctx context.Context, job engine.Job) (image.Image, error) {
	return p.gen.Generate(ctx, job)
}

func (p *cpuPipeline) Caption(ctx context.Context, img image.Image, prompt string) (string, error) {
	if p.cap == nil {
		if p.capErr != nil {
			return "", p.capErr
		}
		return "", engine.ErrDependencyUnavailable("caption model not loaded")
	}
	return p.cap.Caption(ctx, img, prompt)
}

func (p *cpuPipeline) Upscale(ctx context.Context, img image.Image, scale int, prompt string) (image.Image, error) {
	return p.up.Upscale(ctx, img, scale, prompt)
}

func (p *cpuPipeline) Close() error {
	if p.cap != nil {
		return p.cap.Close()
	}
	return nil
}

// describeImage reduces an image to coarse textual features for the caption
// prompt.
func describeImage(img image.Image) string {
	b := img.Bounds()
	var rSum, gSum, bSum, n uint64
	stepY := b.Dy() / 64
	if stepY < 1 {
		stepY = 1
	}
	stepX := b.Dx() / 64
	if stepX < 1 {
		stepX = 1
	}
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, _ := img.At(x, y).RGBA()
			rSum += uint64(r >> 8)
			gSum += uint64(g >> 8)
			bSum += uint64(bl >> 8)
			n++
		}
	}
	if n == 0 {
		return fmt.Sprintf("%dx%d, empty", b.Dx(), b.Dy())
	}
	r, g, bl := rSum/n, gSum/n, bSum/n
	tone := "dark"
	if (r+g+bl)/3 > 128 {
		tone = "bright"
	}
	hue := "gray"
	switch {
	case r > g && r > bl:
		hue = "red-dominant"
	case g > r && g > bl:
		hue = "green-dominant"
	case bl > r && bl > g:
		hue = "blue-dominant"
	}
	return fmt.Sprintf("%dx%d, %s, %s", b.Dx(), b.Dy(), tone, hue)
}
