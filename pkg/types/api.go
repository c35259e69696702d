package types

// GenerateResponse is returned by POST /generate and POST /generate_preset.
type GenerateResponse struct {
	// True when generation succeeded.
	// example: true
	Success bool `json:"success" example:"true"`
	// Generated image as a data-URI encoded PNG.
	// example: data:image/png;base64,iVBORw0...
	Image string `json:"image" example:"data:image/png;base64,iVBORw0..."`
	// Resolved seed used for this generation. Resubmitting it reproduces the image.
	// example: 1234567890
	Seed uint32 `json:"seed" example:"1234567890"`
	// Backend identifier the session resolved to (cuda, directml, cpu).
	// example: cuda
	Backend string `json:"backend" example:"cuda"`
	// Resolved precision tier (bf16, int8, nf4, fp32).
	// example: int8
	Quantization string `json:"quantization" example:"int8"`
	// Output width in pixels.
	// example: 1024
	Width int `json:"width" example:"1024"`
	// Output height in pixels.
	// example: 1024
	Height int `json:"height" example:"1024"`
}

// UnderstandResponse is returned by POST /understand.
type UnderstandResponse struct {
	// True when understanding succeeded.
	// example: true
	Success bool `json:"success" example:"true"`
	// Text answer produced from the image and prompt.
	// example: A cat sitting on a windowsill.
	Response string `json:"response" example:"A cat sitting on a windowsill."`
	// Backend identifier.
	// example: cuda
	Backend string `json:"backend" example:"cuda"`
}

// UpscaleResponse is returned by POST /upscale.
type UpscaleResponse struct {
	// True when upscaling succeeded.
	// example: true
	Success bool `json:"success" example:"true"`
	// Upscaled image as a data-URI encoded PNG.
	Image string `json:"image"`
	// Input size as [width, height].
	// example: [512,512]
	OriginalSize [2]int `json:"original_size" example:"512,512"`
	// Output size as [width, height].
	// example: [2048,2048]
	UpscaledSize [2]int `json:"upscaled_size" example:"2048,2048"`
	// Scale factor applied.
	// example: 4
	Scale int `json:"scale" example:"4"`
	// Backend identifier.
	// example: cpu
	Backend string `json:"backend" example:"cpu"`
}

// AcceleratorSummary describes the probed accelerator for /health and /status.
type AcceleratorSummary struct {
	// Accelerator vendor (nvidia, amd, intel, unknown).
	// example: nvidia
	Vendor string `json:"vendor" example:"nvidia"`
	// Device name as reported by the driver or OS enumeration.
	// example: NVIDIA GeForce RTX 4090
	Name string `json:"name" example:"NVIDIA GeForce RTX 4090"`
	// Total device memory in GB; 0 when unknown.
	// example: 24
	MemoryGB float64 `json:"memory_gb" example:"24"`
	// True when the device is an integrated GPU.
	// example: false
	Integrated bool `json:"is_integrated" example:"false"`
	// Host RAM in GB, reported for cpu-backend sessions.
	// example: 64
	SystemMemoryGB float64 `json:"system_memory_gb,omitempty" example:"64"`
}

// HealthResponse is returned by GET /health. It always answers, even when the
// model failed to load.
type HealthResponse struct {
	// "ok" when the session is ready, "model_not_loaded" otherwise.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Model identifier this server variant serves.
	// example: black-forest-labs/FLUX.2-dev
	Model string `json:"model" example:"black-forest-labs/FLUX.2-dev"`
	// Resolved backend, or "unavailable" when loading failed.
	// example: cuda
	Backend string `json:"backend" example:"cuda"`
	// Resolved precision tier.
	// example: nf4
	Quantization string `json:"quantization,omitempty" example:"nf4"`
	// Probed accelerator summary.
	Accelerator AcceleratorSummary `json:"accelerator"`
}

// LoadAttempt records one candidate attempt made by the fallback loader.
type LoadAttempt struct {
	// Backend of the attempted candidate.
	// example: cuda
	Backend string `json:"backend" example:"cuda"`
	// Precision of the attempted candidate.
	// example: bf16
	Quantization string `json:"quantization" example:"bf16"`
	// True when CPU offload was requested for the attempt.
	// example: false
	Offload bool `json:"offload,omitempty" example:"false"`
	// Empty on success, otherwise the load error.
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Session lifecycle state (unloaded, loading, ready, failed).
	// example: ready
	State string `json:"state" example:"ready"`
	// Server variant identifier (bagel, flux2, qwen-edit, zimage, upscale).
	// example: flux2
	Variant string `json:"variant" example:"flux2"`
	// Model identifier.
	Model string `json:"model"`
	// Resolved backend when ready.
	Backend string `json:"backend,omitempty"`
	// Resolved precision when ready.
	Quantization string `json:"quantization,omitempty"`
	// True when the resolved candidate streams weights between host and device.
	Offload bool `json:"offload,omitempty"`
	// Probed accelerator summary.
	Accelerator AcceleratorSummary `json:"accelerator"`
	// Candidate attempts in the order the loader tried them.
	Attempts []LoadAttempt `json:"attempts"`
	// Last error observed by the loader (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total generations served.
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: prompt is required
	Error string `json:"error" example:"prompt is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
