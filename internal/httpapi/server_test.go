package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imaged/internal/engine"
	"imaged/internal/gpu"
	"imaged/internal/imaging"
	"imaged/internal/policy"
	"imaged/pkg/types"
)

type mockService struct {
	health       types.HealthResponse
	status       types.StatusResponse
	ready        bool
	generateErr  error
	understand   string
	understandEr error
	upscaleErr   error
	lastReq      engine.GenerateRequest
}

func (m *mockService) Generate(ctx context.Context, req engine.GenerateRequest) (engine.GenerateResult, error) {
	m.lastReq = req
	if m.generateErr != nil {
		return engine.GenerateResult{}, m.generateErr
	}
	w, h := req.Width, req.Height
	if w <= 0 {
		w = 1024
	}
	if h <= 0 {
		h = 1024
	}
	seed := uint32(999)
	if req.Seed >= 0 {
		seed = uint32(req.Seed)
	}
	return engine.GenerateResult{Image: image.NewRGBA(image.Rect(0, 0, w, h)), Seed: seed}, nil
}

func (m *mockService) Understand(ctx context.Context, img image.Image, prompt string) (string, error) {
	if m.understandEr != nil {
		return "", m.understandEr
	}
	return m.understand, nil
}

func (m *mockService) Upscale(ctx context.Context, img image.Image, scale int, prompt string) (image.Image, error) {
	if m.upscaleErr != nil {
		return nil, m.upscaleErr
	}
	if scale <= 0 {
		scale = 4
	}
	b := img.Bounds()
	return image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale)), nil
}

func (m *mockService) Health() types.HealthResponse   { return m.health }
func (m *mockService) Status() types.StatusResponse   { return m.status }
func (m *mockService) Ready() bool                    { return m.ready }
func (m *mockService) Profile() policy.Profile        { p, _ := policy.Lookup("bagel"); return p }
func (m *mockService) ActiveCandidate() policy.Candidate {
	return policy.Candidate{Backend: gpu.BackendCUDA, Precision: policy.PrecisionInt8}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAlwaysAnswers(t *testing.T) {
	svc := &mockService{health: types.HealthResponse{Status: "model_not_loaded", Backend: "unavailable"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "model_not_loaded" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "ready", Variant: "bagel"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Variant != "bagel" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestGenerateJSON(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/generate", `{"prompt":"a cat","seed":42,"width":64,"height":48}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Success || body.Seed != 42 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if !strings.HasPrefix(body.Image, "data:image/png;base64,") {
		t.Fatalf("image not a data URI: %.40q", body.Image)
	}
	if body.Backend != "cuda" || body.Quantization != "int8" {
		t.Fatalf("resolved candidate not echoed: %+v", body)
	}
	if body.Width != 64 || body.Height != 48 {
		t.Fatalf("unexpected size: %+v", body)
	}
}

func TestGenerateOmittedSeedIsAuto(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/generate", `{"prompt":"a cat"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastReq.Seed != -1 {
		t.Fatalf("omitted seed must map to auto, got %d", svc.lastReq.Seed)
	}
}

func TestGenerateMultipart(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("prompt", "edit this")
	_ = mw.WriteField("seed", "7")
	fw, err := mw.CreateFormFile("image", "in.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	png, err := imaging.EncodePNG(image.NewRGBA(image.Rect(0, 0, 16, 16)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := fw.Write(png); err != nil {
		t.Fatalf("write: %v", err)
	}
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(svc.lastReq.Images) != 1 {
		t.Fatalf("uploaded image not decoded, got %d", len(svc.lastReq.Images))
	}
	if svc.lastReq.Seed != 7 {
		t.Fatalf("seed not parsed, got %d", svc.lastReq.Seed)
	}
}

func TestGenerateWrongContentType(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("prompt=hi"))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGeneratePreset(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/generate_preset", `{"prompt":"a cat","resolution":"16:9"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastReq.Width != 1280 || svc.lastReq.Height != 720 {
		t.Fatalf("preset not applied: %dx%d", svc.lastReq.Width, svc.lastReq.Height)
	}
}

func TestGeneratePresetUnknown(t *testing.T) {
	r := NewMux(&mockService{})
	w := postJSON(t, r, "/generate_preset", `{"prompt":"a cat","resolution":"21:9"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGenerateNotLoadedMapsTo503(t *testing.T) {
	p, _ := policy.Lookup("bagel")
	e := engine.New(engine.Config{Profile: p})
	_, notLoaded := e.Generate(context.Background(), engine.GenerateRequest{Prompt: "x"})
	r := NewMux(&mockService{generateErr: notLoaded})
	w := postJSON(t, r, "/generate", `{"prompt":"a cat"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGenerateInvalidRequestMapsTo400(t *testing.T) {
	r := NewMux(&mockService{generateErr: engine.ErrInvalidRequest("prompt is required")})
	w := postJSON(t, r, "/generate", `{"prompt":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGenerateRuntimeErrorMapsTo500(t *testing.T) {
	r := NewMux(&mockService{generateErr: errors.New("accelerator fault")})
	w := postJSON(t, r, "/generate", `{"prompt":"a cat"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestUnderstandDependencyUnavailableMapsTo503(t *testing.T) {
	r := NewMux(&mockService{understandEr: engine.ErrDependencyUnavailable("caption support not built")})
	w := postJSON(t, r, "/understand", `{"prompt":"what is this"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestUnderstandJSON(t *testing.T) {
	uri := mustDataURI(t)
	r := NewMux(&mockService{understand: "a gray square"})
	w := postJSON(t, r, "/understand", `{"prompt":"what is this","images":["`+uri+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.UnderstandResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Success || body.Response != "a gray square" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestUpscaleJSON(t *testing.T) {
	uri := mustDataURI(t)
	r := NewMux(&mockService{})
	w := postJSON(t, r, "/upscale", `{"images":["`+uri+`"],"scale":4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.UpscaleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.OriginalSize != [2]int{16, 16} || body.UpscaledSize != [2]int{64, 64} {
		t.Fatalf("unexpected sizes: %+v", body)
	}
	if body.Scale != 4 {
		t.Fatalf("unexpected scale: %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func mustDataURI(t *testing.T) string {
	t.Helper()
	uri, err := imaging.EncodeDataURI(image.NewRGBA(image.Rect(0, 0, 16, 16)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return uri
}
