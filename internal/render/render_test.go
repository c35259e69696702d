package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"imaged/internal/engine"
	"imaged/internal/gpu"
	"imaged/internal/imaging"
	"imaged/internal/policy"
)

func testJob(prompt string, seed uint32) engine.Job {
	return engine.Job{Prompt: prompt, Width: 64, Height: 48, Steps: 9, Seed: seed}
}

func TestGenerateDeterministic(t *testing.T) {
	var g proceduralGenerator
	ctx := context.Background()
	a, err := g.Generate(ctx, testJob("a red fox", 42))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := g.Generate(ctx, testJob("a red fox", 42))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pa, err := imaging.EncodePNG(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	pb, err := imaging.EncodePNG(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(pa, pb) {
		t.Fatalf("same seed and prompt must produce identical bytes")
	}
}

func TestGenerateSeedChangesOutput(t *testing.T) {
	var g proceduralGenerator
	ctx := context.Background()
	a, _ := g.Generate(ctx, testJob("a red fox", 1))
	b, _ := g.Generate(ctx, testJob("a red fox", 2))
	pa, _ := imaging.EncodePNG(a)
	pb, _ := imaging.EncodePNG(b)
	if bytes.Equal(pa, pb) {
		t.Fatalf("different seeds must diverge")
	}
}

func TestGeneratePromptChangesOutput(t *testing.T) {
	var g proceduralGenerator
	ctx := context.Background()
	a, _ := g.Generate(ctx, testJob("a red fox", 7))
	b, _ := g.Generate(ctx, testJob("a blue whale", 7))
	pa, _ := imaging.EncodePNG(a)
	pb, _ := imaging.EncodePNG(b)
	if bytes.Equal(pa, pb) {
		t.Fatalf("different prompts must diverge")
	}
}

func TestGenerateRespectsRequestedSize(t *testing.T) {
	var g proceduralGenerator
	job := engine.Job{Prompt: "x", Width: 320, Height: 200, Steps: 30, Seed: 3}
	img, err := g.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 200 {
		t.Fatalf("got %v", img.Bounds())
	}
}

func TestGenerateEditUsesInputImage(t *testing.T) {
	var g proceduralGenerator
	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	job := testJob("make it blue", 5)
	job.Images = []image.Image{src}
	img, err := g.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if img.Bounds().Dx() != job.Width || img.Bounds().Dy() != job.Height {
		t.Fatalf("edit output must use requested size, got %v", img.Bounds())
	}
}

func TestUpscaleDimensions(t *testing.T) {
	var u catmullRomUpscaler
	src := image.NewRGBA(image.Rect(0, 0, 50, 30))
	out, err := u.Upscale(context.Background(), src, 4, "")
	if err != nil {
		t.Fatalf("upscale: %v", err)
	}
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 120 {
		t.Fatalf("got %v", out.Bounds())
	}
}

func TestUpscaleRejectsBadScale(t *testing.T) {
	var u catmullRomUpscaler
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for _, scale := range []int{0, -1, 9} {
		if _, err := u.Upscale(context.Background(), src, scale, ""); err == nil {
			t.Fatalf("scale %d: expected error", scale)
		}
	}
}

func TestUpscaleRejectsOversizedOutput(t *testing.T) {
	var u catmullRomUpscaler
	src := image.NewRGBA(image.Rect(0, 0, 4096, 4096))
	if _, err := u.Upscale(context.Background(), src, 8, ""); err == nil {
		t.Fatalf("expected pixel budget error")
	}
}

func builderProfile(t *testing.T, variant string) policy.Profile {
	t.Helper()
	p, ok := policy.Lookup(variant)
	if !ok {
		t.Fatalf("unknown variant %q", variant)
	}
	return p
}

func TestBuilderCPUAlwaysLoads(t *testing.T) {
	b := NewBuilder(Options{Profile: builderProfile(t, "zimage")})
	p, err := b.Build(context.Background(), policy.Candidate{Backend: gpu.BackendCPU, Precision: policy.PrecisionFP32})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer p.Close()
	if _, ok := p.(engine.Generator); !ok {
		t.Fatalf("cpu pipeline must generate")
	}
}

func TestBuilderAcceleratedNeedsWorker(t *testing.T) {
	b := NewBuilder(Options{Profile: builderProfile(t, "flux2")})
	for _, backend := range []gpu.Backend{gpu.BackendCUDA, gpu.BackendDirectML} {
		if _, err := b.Build(context.Background(), policy.Candidate{Backend: backend, Precision: policy.PrecisionBF16}); err == nil {
			t.Fatalf("%s without worker binary must fail", backend)
		}
	}
}

func TestCPUPipelineCaptionUnavailableWithoutModel(t *testing.T) {
	b := NewBuilder(Options{Profile: builderProfile(t, "bagel")})
	p, err := b.Build(context.Background(), policy.Candidate{Backend: gpu.BackendCPU, Precision: policy.PrecisionFP32})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer p.Close()
	cap, ok := p.(engine.Captioner)
	if !ok {
		t.Fatalf("bagel cpu pipeline must expose captioning")
	}
	_, err = cap.Caption(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)), "what is this")
	if !engine.IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency-unavailable got %v", err)
	}
}

func TestDescribeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	got := describeImage(img)
	if got != "16x16, bright, gray" {
		t.Fatalf("got %q", got)
	}
}
