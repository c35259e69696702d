package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"imaged/internal/engine"
	"imaged/internal/imaging"
	"imaged/internal/policy"
	"imaged/pkg/types"
)

// generateForm is the parsed request body, common to the JSON and multipart
// encodings.
type generateForm struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt"`
	Resolution     string   `json:"resolution"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Steps          int      `json:"num_inference_steps"`
	GuidanceScale  *float64 `json:"guidance_scale"`
	CFGScale       *float64 `json:"cfg_scale"`
	Seed           *int64   `json:"seed"`
	Scale          int      `json:"scale"`
	// Images carry data-URI encoded PNGs in the JSON encoding; uploads in the
	// multipart encoding land here after decoding too.
	Images []string `json:"images"`

	decoded []image.Image
}

// parseForm reads either multipart/form-data or application/json into a
// generateForm and decodes any attached images.
func parseForm(r *http.Request) (*generateForm, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "application/json":
		return parseJSONForm(r)
	case ct == "multipart/form-data":
		return parseMultipartForm(r)
	default:
		return nil, fmt.Errorf("Content-Type must be multipart/form-data or application/json")
	}
}

func parseJSONForm(r *http.Request) (*generateForm, error) {
	var f generateForm
	if err := decodeJSONBody(r, &f); err != nil {
		return nil, err
	}
	for _, uri := range f.Images {
		img, err := imaging.DecodeDataURI(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid image: %v", err)
		}
		f.decoded = append(f.decoded, img)
	}
	return &f, nil
}

func parseMultipartForm(r *http.Request) (*generateForm, error) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %v", err)
	}
	f := &generateForm{
		Prompt:         r.FormValue("prompt"),
		NegativePrompt: r.FormValue("negative_prompt"),
		Resolution:     r.FormValue("resolution"),
	}
	var err error
	if f.Width, err = formInt(r, "width"); err != nil {
		return nil, err
	}
	if f.Height, err = formInt(r, "height"); err != nil {
		return nil, err
	}
	if f.Steps, err = formInt(r, "num_inference_steps"); err != nil {
		return nil, err
	}
	if f.Scale, err = formInt(r, "scale"); err != nil {
		return nil, err
	}
	if f.GuidanceScale, err = formFloat(r, "guidance_scale"); err != nil {
		return nil, err
	}
	if f.CFGScale, err = formFloat(r, "cfg_scale"); err != nil {
		return nil, err
	}
	if v := r.FormValue("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q", v)
		}
		f.Seed = &n
	}

	// File uploads under image, image1, image2; a data-URI string form value
	// named image is accepted as an alternative.
	for _, field := range []string{"image", "image1", "image2"} {
		img, ok, err := formImage(r, field)
		if err != nil {
			return nil, err
		}
		if ok {
			f.decoded = append(f.decoded, img)
		}
	}
	if len(f.decoded) == 0 {
		if v := r.FormValue("image"); v != "" {
			img, err := imaging.DecodeDataURI(v)
			if err != nil {
				return nil, fmt.Errorf("invalid image: %v", err)
			}
			f.decoded = append(f.decoded, img)
		}
	}
	return f, nil
}

func formInt(r *http.Request, key string) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func formFloat(r *http.Request, key string) (*float64, error) {
	v := r.FormValue(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, v)
	}
	return &n, nil
}

func formImage(r *http.Request, field string) (image.Image, bool, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		// Absent field is fine; only a present-but-unreadable upload errors.
		return nil, false, nil
	}
	defer file.Close()
	img, err := imaging.Decode(file)
	if err != nil {
		return nil, false, fmt.Errorf("invalid %s upload: %v", field, err)
	}
	return img, true, nil
}

// handleGenerate godoc
// @Summary      Generate or edit an image
// @Description  Text-to-image when no input image is attached, image edit otherwise. Seed -1 draws a fresh seed, echoed back in the response.
// @Accept       multipart/form-data
// @Produce      json
// @Param        prompt formData string true "Prompt"
// @Param        seed   formData int    false "Seed (-1 for auto)"
// @Success      200 {object} types.GenerateResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /generate [post]
func handleGenerate(svc Service, preset bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		f, err := parseForm(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		req := engine.GenerateRequest{
			Prompt:         f.Prompt,
			NegativePrompt: f.NegativePrompt,
			Width:          f.Width,
			Height:         f.Height,
			Steps:          f.Steps,
			GuidanceScale:  f.GuidanceScale,
			CFGScale:       f.CFGScale,
			Seed:           -1,
			Images:         f.decoded,
		}
		if f.Seed != nil {
			req.Seed = *f.Seed
		}
		if preset {
			res := f.Resolution
			if res == "" {
				res = "1:1"
			}
			wh, ok := policy.ResolutionPresets[res]
			if !ok {
				writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown resolution preset %q", res))
				return
			}
			req.Width, req.Height = wh[0], wh[1]
		}

		ctx, cancel := requestContext(r)
		defer cancel()
		out, err := svc.Generate(ctx, req)
		if err != nil {
			writeEngineError(w, r, "generate", err, start)
			return
		}
		uri, err := imaging.EncodeDataURI(out.Image)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode image")
			return
		}
		cand := svc.ActiveCandidate()
		b := out.Image.Bounds()
		observeGeneration("generate", time.Since(start))
		logRequestEnd(r, "generate", http.StatusOK, start)
		writeJSON(w, http.StatusOK, typesGenerateResponse(uri, out.Seed, cand, b.Dx(), b.Dy()))
	}
}

// handleUnderstand godoc
// @Summary      Answer a question about an image
// @Accept       multipart/form-data
// @Produce      json
// @Param        prompt formData string true "Question"
// @Success      200 {object} types.UnderstandResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /understand [post]
func handleUnderstand(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		f, err := parseForm(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		var img image.Image
		if len(f.decoded) > 0 {
			img = f.decoded[0]
		}
		ctx, cancel := requestContext(r)
		defer cancel()
		text, err := svc.Understand(ctx, img, f.Prompt)
		if err != nil {
			writeEngineError(w, r, "understand", err, start)
			return
		}
		observeGeneration("understand", time.Since(start))
		logRequestEnd(r, "understand", http.StatusOK, start)
		writeJSON(w, http.StatusOK, typesUnderstandResponse(text, svc.ActiveCandidate()))
	}
}

// handleUpscale godoc
// @Summary      Upscale an image
// @Accept       multipart/form-data
// @Produce      json
// @Param        scale formData int false "Scale factor (defaults to the model's factor)"
// @Success      200 {object} types.UpscaleResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /upscale [post]
func handleUpscale(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		f, err := parseForm(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		var img image.Image
		if len(f.decoded) > 0 {
			img = f.decoded[0]
		}
		ctx, cancel := requestContext(r)
		defer cancel()
		out, err := svc.Upscale(ctx, img, f.Scale, f.Prompt)
		if err != nil {
			writeEngineError(w, r, "upscale", err, start)
			return
		}
		uri, err := imaging.EncodeDataURI(out)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode image")
			return
		}
		var orig [2]int
		if img != nil {
			orig = [2]int{img.Bounds().Dx(), img.Bounds().Dy()}
		}
		ob := out.Bounds()
		scale := f.Scale
		if scale <= 0 && orig[0] > 0 {
			scale = ob.Dx() / orig[0]
		}
		observeGeneration("upscale", time.Since(start))
		logRequestEnd(r, "upscale", http.StatusOK, start)
		writeJSON(w, http.StatusOK, typesUpscaleResponse(uri, orig, [2]int{ob.Dx(), ob.Dy()}, scale, svc.ActiveCandidate()))
	}
}

// requestContext joins the server base context with the request context and
// applies the configured generation timeout.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, joinCancel := joinContexts(serverBaseCtx, r.Context())
	if generateTimeout > 0 {
		tctx, tcancel := context.WithTimeout(ctx, time.Duration(generateTimeout)*time.Second)
		return tctx, func() { tcancel(); joinCancel() }
	}
	return ctx, joinCancel
}

// decodeJSONBody decodes a JSON request body, rejecting unknown trailing data.
func decodeJSONBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func logRequestEnd(r *http.Request, op string, status int, start time.Time) {
	if requestLogLevel(r) < LevelInfo || zlog == nil {
		return
	}
	z := zlog.Info().Str("op", op).Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("request end")
}

func typesGenerateResponse(uri string, seed uint32, cand policy.Candidate, w, h int) types.GenerateResponse {
	return types.GenerateResponse{
		Success:      true,
		Image:        uri,
		Seed:         seed,
		Backend:      string(cand.Backend),
		Quantization: string(cand.Precision),
		Width:        w,
		Height:       h,
	}
}

func typesUnderstandResponse(text string, cand policy.Candidate) types.UnderstandResponse {
	return types.UnderstandResponse{Success: true, Response: text, Backend: string(cand.Backend)}
}

func typesUpscaleResponse(uri string, orig, up [2]int, scale int, cand policy.Candidate) types.UpscaleResponse {
	return types.UpscaleResponse{
		Success:      true,
		Image:        uri,
		OriginalSize: orig,
		UpscaledSize: up,
		Scale:        scale,
		Backend:      string(cand.Backend),
	}
}
