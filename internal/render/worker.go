package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"imaged/internal/engine"
	"imaged/internal/imaging"
	"imaged/internal/policy"
)

const workerReadyTimeout = 120 * time.Second

// workerPipeline drives an external inference worker process over loopback
// HTTP. The worker owns the accelerator; this side only marshals jobs.
type workerPipeline struct {
	opts    Options
	cand    policy.Candidate
	baseURL string
	cmd     *exec.Cmd
	client  *http.Client

	// waitErrCh carries the single cmd.Wait result. Exactly one goroutine
	// reaps the child; startup and shutdown both receive from this channel
	// instead of calling Wait themselves.
	waitErrCh chan error

	mu     sync.Mutex
	closed bool
}

// workerJobRequest is the wire form of one job sent to the worker.
type workerJobRequest struct {
	Op             string   `json:"op"`
	Prompt         string   `json:"prompt,omitempty"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	Steps          int      `json:"steps,omitempty"`
	GuidanceScale  float64  `json:"guidance_scale"`
	CFGScale       float64  `json:"cfg_scale"`
	Seed           uint32   `json:"seed"`
	Scale          int      `json:"scale,omitempty"`
	Images         []string `json:"images,omitempty"`
}

type workerJobResponse struct {
	Image    string `json:"image,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// startWorkerPipeline spawns the worker for one candidate and waits until its
// health endpoint answers. A worker that exits or never becomes healthy fails
// the candidate.
func startWorkerPipeline(ctx context.Context, opts Options, cand policy.Candidate) (engine.Pipeline, error) {
	host := opts.WorkerHost
	var port int
	var err error
	if opts.WorkerPortStart > 0 && opts.WorkerPortEnd >= opts.WorkerPortStart {
		port, err = pickPortInRange(host, opts.WorkerPortStart, opts.WorkerPortEnd)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	model := opts.Profile.Model
	if cand.SubstituteModel != "" {
		model = cand.SubstituteModel
	}
	args := []string{
		"--model", model,
		"--backend", string(cand.Backend),
		"--precision", string(cand.Precision),
		"--host", host,
		"--port", fmt.Sprint(port),
	}
	if cand.Offload {
		args = append(args, "--offload")
	}
	if cand.RemoteEncoder {
		args = append(args, "--remote-encoder")
	}
	args = append(args, opts.WorkerExtraArgs...)

	cmd := exec.Command(opts.WorkerBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	opts.Publisher.Publish(engine.Event{Name: "worker_start", Fields: map[string]any{
		"pid": cmd.Process.Pid, "backend": string(cand.Backend), "precision": string(cand.Precision), "url": baseURL,
	}})

	// All calls carry context deadlines; no client-level timeout.
	client := &http.Client{Timeout: 0}
	p := &workerPipeline{
		opts:      opts,
		cand:      cand,
		baseURL:   baseURL,
		cmd:       cmd,
		client:    client,
		waitErrCh: make(chan error, 1),
	}
	go func() { p.waitErrCh <- cmd.Wait() }()

	deadline := time.Now().Add(workerReadyTimeout)
	for {
		if time.Now().After(deadline) {
			p.kill()
			opts.Publisher.Publish(engine.Event{Name: "worker_timeout", Fields: map[string]any{"pid": cmd.Process.Pid}})
			return nil, fmt.Errorf("worker not ready in time: %s", baseURL)
		}
		select {
		case werr := <-p.waitErrCh:
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			opts.Publisher.Publish(engine.Event{Name: "worker_exit", Fields: map[string]any{"pid": cmd.Process.Pid, "error": fmt.Sprint(werr)}})
			return nil, fmt.Errorf("worker exited before ready: %v; stderr tail: %s", werr, tail)
		case <-ctx.Done():
			p.kill()
			return nil, ctx.Err()
		default:
		}
		if p.healthy(1 * time.Second) {
			opts.Publisher.Publish(engine.Event{Name: "worker_ready", Fields: map[string]any{"pid": cmd.Process.Pid, "url": baseURL}})
			return p, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (p *workerPipeline) healthy(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *workerPipeline) call(ctx context.Context, jr workerJobRequest) (workerJobResponse, error) {
	body, err := json.Marshal(jr)
	if err != nil {
		return workerJobResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/job", bytes.NewReader(body))
	if err != nil {
		return workerJobResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return workerJobResponse{}, ctx.Err()
		}
		return workerJobResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return workerJobResponse{}, fmt.Errorf("worker http error: %s: %s", resp.Status, string(b))
	}
	var out workerJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return workerJobResponse{}, err
	}
	if out.Error != "" {
		return workerJobResponse{}, fmt.Errorf("worker: %s", out.Error)
	}
	return out, nil
}

func (p *workerPipeline) Generate(ctx context.Context, job engine.Job) (image.Image, error) {
	jr := workerJobRequest{
		Op:             "generate",
		Prompt:         job.Prompt,
		NegativePrompt: job.NegativePrompt,
		Width:          job.Width,
		Height:         job.Height,
		Steps:          job.Steps,
		GuidanceScale:  job.GuidanceScale,
		CFGScale:       job.CFGScale,
		Seed:           job.Seed,
	}
	for _, img := range job.Images {
		uri, err := imaging.EncodeDataURI(img)
		if err != nil {
			return nil, err
		}
		jr.Images = append(jr.Images, uri)
	}
	out, err := p.call(ctx, jr)
	if err != nil {
		return nil, err
	}
	return imaging.DecodeDataURI(out.Image)
}

func (p *workerPipeline) Caption(ctx context.Context, img image.Image, prompt string) (string, error) {
	uri, err := imaging.EncodeDataURI(img)
	if err != nil {
		return "", err
	}
	out, err := p.call(ctx, workerJobRequest{Op: "understand", Prompt: prompt, Images: []string{uri}})
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

func (p *workerPipeline) Upscale(ctx context.Context, img image.Image, scale int, prompt string) (image.Image, error) {
	uri, err := imaging.EncodeDataURI(img)
	if err != nil {
		return nil, err
	}
	out, err := p.call(ctx, workerJobRequest{Op: "upscale", Prompt: prompt, Scale: scale, Images: []string{uri}})
	if err != nil {
		return nil, err
	}
	return imaging.DecodeDataURI(out.Image)
}

// Close terminates the worker, SIGTERM first with a kill fallback.
func (p *workerPipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.waitErrCh:
	case <-time.After(2 * time.Second):
		p.kill()
	}
	p.opts.Publisher.Publish(engine.Event{Name: "worker_stop", Fields: map[string]any{"pid": p.cmd.Process.Pid}})
	return nil
}

func (p *workerPipeline) kill() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Kill()
	select {
	case <-p.waitErrCh:
	case <-time.After(2 * time.Second):
	}
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[lastColon+1:])
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, p))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}
