package render

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"math/rand"

	"golang.org/x/image/draw"

	"imaged/internal/engine"
)

// proceduralGenerator is the cpu fallback renderer. It derives every pixel
// from the prompt hash and the resolved seed, so identical inputs produce
// byte-identical images.
type proceduralGenerator struct{}

// jobSeed folds the textual conditioning into the numeric seed. Two jobs with
// the same seed but different prompts must not collide.
func jobSeed(job engine.Job) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(job.Prompt))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(job.NegativePrompt))
	return int64(h.Sum64() ^ uint64(job.Seed))
}

func (proceduralGenerator) Generate(ctx context.Context, job engine.Job) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(jobSeed(job)))

	out := valueNoise(rng, job.Width, job.Height, job.Steps)
	if len(job.Images) > 0 {
		// Edit mode: blend the procedural field over the source image so the
		// output visibly derives from the input.
		out = blendOver(job.Images[0], out, 0.35)
	}
	return out, nil
}

// valueNoise renders a smooth multi-octave noise field. steps drives the
// octave count so higher step counts yield finer detail, loosely mirroring
// what more denoising iterations buy a real diffusion model.
func valueNoise(rng *rand.Rand, w, h, steps int) *image.RGBA {
	octaves := 3
	if steps >= 20 {
		octaves = 4
	}
	if steps >= 40 {
		octaves = 5
	}

	// Base palette drawn once per job.
	base := [3]float64{rng.Float64(), rng.Float64(), rng.Float64()}
	tint := [3]float64{rng.Float64(), rng.Float64(), rng.Float64()}

	// Lattice of random gradients per octave.
	type lattice struct {
		cell int
		vals []float64
		cols int
	}
	lats := make([]lattice, octaves)
	cell := 128
	for o := range lats {
		cols := w/cell + 2
		rows := h/cell + 2
		vals := make([]float64, cols*rows)
		for i := range vals {
			vals[i] = rng.Float64()
		}
		lats[o] = lattice{cell: cell, vals: vals, cols: cols}
		cell /= 2
		if cell < 4 {
			cell = 4
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	amp := 1.0
	ampSum := 0.0
	for o := 0; o < octaves; o++ {
		ampSum += amp
		amp *= 0.5
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 0.0
			amp = 1.0
			for _, lat := range lats {
				cx := x / lat.cell
				cy := y / lat.cell
				fx := smoothstep(float64(x%lat.cell) / float64(lat.cell))
				fy := smoothstep(float64(y%lat.cell) / float64(lat.cell))
				i := cy*lat.cols + cx
				v00 := lat.vals[i]
				v10 := lat.vals[i+1]
				v01 := lat.vals[i+lat.cols]
				v11 := lat.vals[i+lat.cols+1]
				v += amp * lerp(lerp(v00, v10, fx), lerp(v01, v11, fx), fy)
				amp *= 0.5
			}
			v /= ampSum
			img.SetRGBA(x, y, color.RGBA{
				R: channel(base[0], tint[0], v),
				G: channel(base[1], tint[1], v),
				B: channel(base[2], tint[2], v),
				A: 255,
			})
		}
	}
	return img
}

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func channel(base, tint, v float64) uint8 {
	c := lerp(base, tint, v)
	return uint8(math.Round(math.Min(1, math.Max(0, c)) * 255))
}

// blendOver scales src to dst's bounds and mixes dst over it with the given
// alpha.
func blendOver(src image.Image, dst *image.RGBA, alpha float64) *image.RGBA {
	b := dst.Bounds()
	scaled := image.NewRGBA(b)
	draw.CatmullRom.Scale(scaled, b, src, src.Bounds(), draw.Src, nil)
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			s := scaled.RGBAAt(x, y)
			d := dst.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: mix(s.R, d.R, alpha),
				G: mix(s.G, d.G, alpha),
				B: mix(s.B, d.B, alpha),
				A: 255,
			})
		}
	}
	return out
}

func mix(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a)*(1-t) + float64(b)*t))
}
