package engine

import (
	"context"
	"errors"

	"imaged/internal/policy"
)

// ErrAlreadyLoaded is returned when Load is called a second time; the loader
// runs at most once per process lifetime.
var ErrAlreadyLoaded = errors.New("load already performed")

// Load walks the candidate list in order and resolves the session. Each failed
// candidate is recorded and the walk advances; only the final candidate's
// failure becomes the returned error. On exhaustion the session enters the
// failed state but the process keeps serving (health stays reachable,
// generation answers "model not loaded").
func (e *Engine) Load(ctx context.Context, candidates []policy.Candidate) error {
	e.mu.Lock()
	if e.state != StateUnloaded {
		e.mu.Unlock()
		return ErrAlreadyLoaded
	}
	e.state = StateLoading
	e.mu.Unlock()

	var lastErr error
	for _, cand := range candidates {
		e.pub.Publish(Event{Name: "load_attempt", Fields: candidateFields(cand)})
		p, err := e.builder.Build(ctx, cand)
		e.mu.Lock()
		e.attempts = append(e.attempts, Attempt{Candidate: cand, Err: err})
		e.mu.Unlock()
		if err != nil {
			lastErr = err
			f := candidateFields(cand)
			f["error"] = err.Error()
			e.pub.Publish(Event{Name: "load_attempt_failed", Fields: f})
			continue
		}
		e.mu.Lock()
		e.pipeline = p
		e.active = cand
		e.state = StateReady
		e.lastErr = ""
		e.mu.Unlock()
		e.pub.Publish(Event{Name: "load_ready", Fields: candidateFields(cand)})
		return nil
	}

	err := exhaustedError{attempts: len(candidates), last: lastErr}
	e.mu.Lock()
	e.state = StateFailed
	e.lastErr = err.Error()
	e.mu.Unlock()
	e.pub.Publish(Event{Name: "load_failed", Fields: map[string]any{"attempts": len(candidates), "error": err.Error()}})
	return err
}

func candidateFields(c policy.Candidate) map[string]any {
	f := map[string]any{
		"backend":   string(c.Backend),
		"precision": string(c.Precision),
	}
	if c.Offload {
		f["offload"] = true
	}
	if c.RemoteEncoder {
		f["remote_encoder"] = true
	}
	if c.SubstituteModel != "" {
		f["substitute_model"] = c.SubstituteModel
	}
	return f
}
