package render

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// maxUpscalePixels bounds the output raster (width * height).
const maxUpscalePixels = 64 << 20

// catmullRomUpscaler is the cpu super-resolution path: bicubic-class
// resampling instead of a learned model. Deterministic and dependency-free.
type catmullRomUpscaler struct{}

func (catmullRomUpscaler) Upscale(ctx context.Context, img image.Image, scale int, _ string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale < 1 || scale > 8 {
		return nil, fmt.Errorf("unsupported scale factor %d", scale)
	}
	b := img.Bounds()
	w, h := b.Dx()*scale, b.Dy()*scale
	if w*h > maxUpscalePixels {
		return nil, fmt.Errorf("upscaled output %dx%d exceeds pixel budget", w, h)
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out, nil
}
