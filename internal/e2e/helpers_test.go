package e2e

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"imaged/internal/engine"
	"imaged/internal/gpu"
	"imaged/internal/httpapi"
	"imaged/internal/policy"
	"imaged/internal/render"
)

func cpuAccelerator() gpu.Accelerator {
	return gpu.Accelerator{
		Vendor:         gpu.VendorUnknown,
		Name:           "CPU",
		Backend:        gpu.BackendCPU,
		SystemMemoryGB: 16,
	}
}

// newServer stands up the full stack in-process: cpu probe, candidate
// selection, pipeline builder, engine load, and the real HTTP mux.
func newServer(t *testing.T, variant string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	profile, ok := policy.Lookup(variant)
	if !ok {
		t.Fatalf("unknown variant %q", variant)
	}
	accel := cpuAccelerator()
	candidates := policy.SelectCandidates(accel, profile)

	eng := engine.New(engine.Config{
		Profile:     profile,
		Accelerator: accel,
		Builder:     render.NewBuilder(render.Options{Profile: profile}),
		Publisher:   engine.NewMemoryPublisher(),
	})
	t.Cleanup(func() { _ = eng.Close() })
	if err := eng.Load(context.Background(), candidates); err != nil {
		t.Fatalf("load: %v", err)
	}

	srv := httptest.NewServer(httpapi.NewMux(eng))
	t.Cleanup(srv.Close)
	return srv, eng
}

// newDegradedServer loads against candidates that cannot be built so the
// engine ends up failed while the server keeps answering.
func newDegradedServer(t *testing.T, variant string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	profile, ok := policy.Lookup(variant)
	if !ok {
		t.Fatalf("unknown variant %q", variant)
	}
	// Accelerated candidates with no worker binary configured fail to build.
	candidates := []policy.Candidate{
		{Backend: gpu.BackendCUDA, Precision: policy.PrecisionBF16},
		{Backend: gpu.BackendCUDA, Precision: policy.PrecisionInt8},
	}
	eng := engine.New(engine.Config{
		Profile:     profile,
		Accelerator: cpuAccelerator(),
		Builder:     render.NewBuilder(render.Options{Profile: profile}),
		Publisher:   engine.NewMemoryPublisher(),
	})
	t.Cleanup(func() { _ = eng.Close() })
	if err := eng.Load(context.Background(), candidates); err == nil {
		t.Fatalf("expected load to fail without a worker binary")
	}

	srv := httptest.NewServer(httpapi.NewMux(eng))
	t.Cleanup(srv.Close)
	return srv, eng
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// httpPostForm posts a multipart form with string fields and optional file
// uploads (field name -> PNG bytes).
func httpPostForm(t *testing.T, url string, fields map[string]string, files map[string][]byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("create file %s: %v", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file %s: %v", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
