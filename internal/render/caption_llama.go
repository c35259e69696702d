//go:build llama

package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"imaged/internal/engine"
)

// llamaBuilt indicates this binary carries the cgo caption runtime.
var llamaBuilt = true

// llamaCaptioner answers understanding requests on the cpu path through a
// local GGUF export. The image is summarized into textual features before it
// reaches the language model; a projector-backed vision path needs the
// accelerated worker.
type llamaCaptioner struct {
	model   *llama.LLama
	threads int
}

func newCaptioner(modelPath string, ctxSize, threads int) (captioner, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, engine.ErrDependencyUnavailable("no caption model configured")
	}
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	if threads <= 0 {
		threads = 4
	}
	m, err := llama.New(modelPath, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	return &llamaCaptioner{model: m, threads: threads}, nil
}

func (c *llamaCaptioner) Caption(ctx context.Context, img image.Image, prompt string) (string, error) {
	if c.model == nil {
		return "", errors.New("caption model not initialized")
	}
	c.model.SetTokenCallback(func(string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	full := fmt.Sprintf("Image features: %s.\nQuestion: %s\nAnswer:", describeImage(img), prompt)
	text, err := c.model.Predict(full,
		llama.SetThreads(c.threads),
		llama.SetTokens(256),
		llama.SetStopWords("\n\n"),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *llamaCaptioner) Close() error {
	if c.model != nil {
		c.model.Free()
		c.model = nil
	}
	return nil
}
