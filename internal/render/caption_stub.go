//go:build !llama

package render

// Compiled when the 'llama' build tag is absent, keeping default builds
// CGO-free. The real captioner lives in caption_llama.go.

import (
	"imaged/internal/engine"
)

var llamaBuilt = false

func newCaptioner(modelPath string, ctxSize, threads int) (captioner, error) {
	return nil, engine.ErrDependencyUnavailable("caption support not built (missing 'llama' build tag)")
}
