package policy

import "imaged/internal/gpu"

// Candidate is one hypothesized (backend, precision, offload) configuration
// for the loader to attempt. It is not yet validated against the actual
// runtime or model availability.
type Candidate struct {
	Backend   gpu.Backend
	Precision Precision
	// Offload streams model parts between device and host memory to fit
	// constrained capacity, at a latency cost.
	Offload bool
	// RemoteEncoder marks a dependency on an externally hosted text encoder.
	RemoteEncoder bool
	// SubstituteModel carries the second-level model substitution used on the
	// DirectML path; it is a detail of the candidate, not a new candidate.
	SubstituteModel string
}

// SelectCandidates maps (accelerator, profile) to an ordered candidate list,
// descending fidelity. Pure and deterministic; it never fails — when capacity
// is below every tier the lowest tier is still returned and insufficiency is
// discovered at load time.
func SelectCandidates(acc gpu.Accelerator, p Profile) []Candidate {
	switch acc.Backend {
	case gpu.BackendCUDA:
		return cudaCandidates(acc, p)
	case gpu.BackendDirectML:
		return []Candidate{
			{Backend: gpu.BackendDirectML, Precision: PrecisionFP32, SubstituteModel: p.SubstituteModel},
			{Backend: gpu.BackendCPU, Precision: PrecisionFP32},
		}
	default:
		return []Candidate{{Backend: gpu.BackendCPU, Precision: PrecisionFP32}}
	}
}

// cudaCandidates picks the highest-fidelity tier whose requirement fits the
// detected capacity and appends every strictly lower tier as fallback.
func cudaCandidates(acc gpu.Accelerator, p Profile) []Candidate {
	if len(p.Tiers) == 0 {
		return []Candidate{{Backend: gpu.BackendCUDA, Precision: PrecisionBF16, Offload: offloadFor(acc, p)}}
	}
	start := -1
	for i, tier := range p.Tiers {
		if acc.MemoryGB >= tier.MinMemoryGB {
			start = i
			break
		}
	}
	if start < 0 {
		// Below every tier: return the lowest tier and let the load fail.
		start = len(p.Tiers) - 1
	}
	out := make([]Candidate, 0, len(p.Tiers)-start)
	for _, tier := range p.Tiers[start:] {
		out = append(out, Candidate{
			Backend:       gpu.BackendCUDA,
			Precision:     tier.Precision,
			Offload:       offloadFor(acc, p),
			RemoteEncoder: tier.RemoteEncoder,
		})
	}
	return out
}

func offloadFor(acc gpu.Accelerator, p Profile) bool {
	return p.OffloadBelowGB > 0 && acc.MemoryGB < p.OffloadBelowGB
}
