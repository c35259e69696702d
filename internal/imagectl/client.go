// Package imagectl implements the companion CLI for a running imaged daemon:
// submit generation jobs, save results, inspect session status.
package imagectl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"imaged/internal/imaging"
	"imaged/pkg/types"
)

// Client talks to one imaged daemon.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a client for the given base URL. Calls carry context
// deadlines, so the transport itself has no timeout.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 0}}
}

// GenerateParams is the CLI-side job description.
type GenerateParams struct {
	Prompt         string
	NegativePrompt string
	Resolution     string
	Width          int
	Height         int
	Steps          int
	Seed           int64
	ImagePaths     []string
	Scale          int
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postForm(ctx context.Context, path string, p GenerateParams, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	writeField(mw, "prompt", p.Prompt)
	writeField(mw, "negative_prompt", p.NegativePrompt)
	writeField(mw, "resolution", p.Resolution)
	if p.Width > 0 {
		writeField(mw, "width", strconv.Itoa(p.Width))
	}
	if p.Height > 0 {
		writeField(mw, "height", strconv.Itoa(p.Height))
	}
	if p.Steps > 0 {
		writeField(mw, "num_inference_steps", strconv.Itoa(p.Steps))
	}
	if p.Scale > 0 {
		writeField(mw, "scale", strconv.Itoa(p.Scale))
	}
	writeField(mw, "seed", strconv.FormatInt(p.Seed, 10))
	for i, path := range p.ImagePaths {
		field := "image"
		if i > 0 {
			field = fmt.Sprintf("image%d", i+1)
		}
		if err := attachFile(mw, field, path); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func writeField(mw *multipart.Writer, key, val string) {
	if val != "" {
		_ = mw.WriteField(key, val)
	}
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fw, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

func decodeError(resp *http.Response) error {
	var e types.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}

// Health fetches /health.
func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.get(ctx, "/health", &out)
	return out, err
}

// Status fetches /status.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.get(ctx, "/status", &out)
	return out, err
}

// Generate submits a generation job. Preset selects /generate_preset.
func (c *Client) Generate(ctx context.Context, p GenerateParams, preset bool) (types.GenerateResponse, error) {
	path := "/generate"
	if preset {
		path = "/generate_preset"
	}
	var out types.GenerateResponse
	err := c.postForm(ctx, path, p, &out)
	return out, err
}

// Understand submits an understanding job.
func (c *Client) Understand(ctx context.Context, p GenerateParams) (types.UnderstandResponse, error) {
	var out types.UnderstandResponse
	err := c.postForm(ctx, "/understand", p, &out)
	return out, err
}

// Upscale submits a super-resolution job.
func (c *Client) Upscale(ctx context.Context, p GenerateParams) (types.UpscaleResponse, error) {
	var out types.UpscaleResponse
	err := c.postForm(ctx, "/upscale", p, &out)
	return out, err
}

// SaveDataURI decodes a data-URI PNG and writes it to path.
func SaveDataURI(uri, path string) error {
	img, err := imaging.DecodeDataURI(uri)
	if err != nil {
		return err
	}
	png, err := imaging.EncodePNG(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, png, 0o644)
}

// WaitReady polls /readyz until the daemon reports ready or the deadline
// passes.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/readyz", nil)
		if err != nil {
			return err
		}
		resp, err := c.HTTP.Do(req)
		if err == nil {
			code := resp.StatusCode
			resp.Body.Close()
			if code == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon not ready after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}
