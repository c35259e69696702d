package engine

import (
	"time"

	"imaged/pkg/types"
)

// Health projects the session into the always-answering health payload.
func (e *Engine) Health() types.HealthResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()

	resp := types.HealthResponse{
		Status:      "model_not_loaded",
		Model:       e.profile.Model,
		Backend:     "unavailable",
		Accelerator: e.acceleratorSummary(),
	}
	if e.state == StateReady {
		resp.Status = "ok"
		resp.Backend = string(e.active.Backend)
		resp.Quantization = string(e.active.Precision)
	}
	return resp
}

// Status projects the session into the full diagnostic payload.
func (e *Engine) Status() types.StatusResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	resp := types.StatusResponse{
		State:            string(e.state),
		Variant:          e.profile.ID,
		Model:            e.profile.Model,
		Accelerator:      e.acceleratorSummary(),
		Attempts:         make([]types.LoadAttempt, 0, len(e.attempts)),
		LastError:        e.lastErr,
		UptimeSeconds:    int64(now.Sub(e.startTime).Seconds()),
		ServerTimeUnix:   now.Unix(),
		GenerationsTotal: e.Generations(),
	}
	if e.state == StateReady {
		resp.Backend = string(e.active.Backend)
		resp.Quantization = string(e.active.Precision)
		resp.Offload = e.active.Offload
	}
	for _, a := range e.attempts {
		la := types.LoadAttempt{
			Backend:      string(a.Candidate.Backend),
			Quantization: string(a.Candidate.Precision),
			Offload:      a.Candidate.Offload,
		}
		if a.Err != nil {
			la.Error = a.Err.Error()
		}
		resp.Attempts = append(resp.Attempts, la)
	}
	return resp
}

// acceleratorSummary must be called with e.mu held (read or write).
func (e *Engine) acceleratorSummary() types.AcceleratorSummary {
	return types.AcceleratorSummary{
		Vendor:         string(e.accel.Vendor),
		Name:           e.accel.Name,
		MemoryGB:       e.accel.MemoryGB,
		Integrated:     e.accel.Integrated,
		SystemMemoryGB: e.accel.SystemMemoryGB,
	}
}
