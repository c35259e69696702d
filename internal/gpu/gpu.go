// Package gpu probes the host for an accelerator and reports vendor, name and
// memory capacity. Probing never fails: when no accelerator API is usable the
// probe reports an unknown vendor with the cpu backend and zero device memory.
package gpu

import "fmt"

// Vendor identifies the accelerator manufacturer.
type Vendor string

const (
	VendorNVIDIA  Vendor = "nvidia"
	VendorAMD     Vendor = "amd"
	VendorIntel   Vendor = "intel"
	VendorUnknown Vendor = "unknown"
)

// Backend identifies the execution path the accelerator supports.
type Backend string

const (
	BackendCUDA     Backend = "cuda"
	BackendDirectML Backend = "directml"
	BackendCPU      Backend = "cpu"
)

// Accelerator is an immutable snapshot of the probed device, taken once per
// process start.
type Accelerator struct {
	Vendor         Vendor
	Name           string
	MemoryGB       float64
	Backend        Backend
	Integrated     bool
	SystemMemoryGB float64
}

// String renders a human-readable device summary for logs and /health.
func (a Accelerator) String() string {
	s := a.Name
	if a.MemoryGB > 0 {
		s += fmt.Sprintf(" (%.1fGB)", a.MemoryGB)
	}
	if a.Integrated {
		s += " (integrated)"
	}
	switch a.Backend {
	case BackendCUDA:
		return s + " - CUDA"
	case BackendDirectML:
		return s + " - DirectML"
	default:
		return s + " - CPU"
	}
}
