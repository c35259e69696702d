// Package policy maps a probed accelerator and a compiled-in model profile to
// an ordered list of backend candidates for the loader to attempt.
package policy

// Precision is a quantization/numeric-format tier.
type Precision string

const (
	PrecisionBF16 Precision = "bf16"
	PrecisionFP16 Precision = "fp16"
	PrecisionInt8 Precision = "int8"
	PrecisionNF4  Precision = "nf4"
	PrecisionFP32 Precision = "fp32"
)

// Mode is one operation shape a model variant supports.
type Mode string

const (
	ModeGenerate   Mode = "generate"
	ModeEdit       Mode = "edit"
	ModeUnderstand Mode = "understand"
	ModeUpscale    Mode = "upscale"
)

// Tier is one precision level of a profile, in descending fidelity order.
type Tier struct {
	Precision Precision
	// MinMemoryGB is the device memory required to run this tier.
	MinMemoryGB float64
	// RemoteEncoder marks tiers that depend on an externally hosted text
	// encoder instead of a local one.
	RemoteEncoder bool
}

// Profile is the static, compiled-in description of one server variant.
type Profile struct {
	ID    string
	Model string
	// Tiers in descending fidelity order; empty means the variant has no
	// memory-tiered quantization (single full-precision attempt).
	Tiers []Tier
	// OffloadBelowGB enables CPU offload on a selected tier when device
	// memory is below this threshold (0 disables).
	OffloadBelowGB float64
	// SubstituteModel names the compatible export used on the DirectML path
	// when the exact model has none.
	SubstituteModel string
	Modes           []Mode

	DefaultSteps      int
	DefaultGuidance   float64
	DefaultCFG        float64
	ForceZeroGuidance bool
	MaxInputImages    int
	UpscaleFactor     int
}

// Supports reports whether the variant wires the given operation mode.
func (p Profile) Supports(m Mode) bool {
	for _, mode := range p.Modes {
		if mode == m {
			return true
		}
	}
	return false
}

// ResolutionPresets maps aspect-ratio names to (width, height) pairs for
// variants that expose preset-based generation.
var ResolutionPresets = map[string][2]int{
	"1:1":  {1024, 1024},
	"16:9": {1280, 720},
	"9:16": {720, 1280},
	"4:3":  {1024, 768},
	"3:4":  {768, 1024},
	"2:1":  {1024, 512},
	"1:2":  {512, 1024},
}

// Compiled-in profiles, one per server variant.
var profiles = map[string]Profile{
	"bagel": {
		ID:    "bagel",
		Model: "ByteDance-Seed/BAGEL-7B-MoT",
		Tiers: []Tier{
			{Precision: PrecisionBF16, MinMemoryGB: 32},
			{Precision: PrecisionInt8, MinMemoryGB: 22},
			{Precision: PrecisionNF4, MinMemoryGB: 12},
		},
		Modes:           []Mode{ModeGenerate, ModeEdit, ModeUnderstand},
		DefaultSteps:    30,
		DefaultCFG:      7.0,
		DefaultGuidance: 1.0,
		MaxInputImages:  1,
	},
	"flux2": {
		ID:    "flux2",
		Model: "black-forest-labs/FLUX.2-dev",
		Tiers: []Tier{
			{Precision: PrecisionBF16, MinMemoryGB: 48},
			{Precision: PrecisionInt8, MinMemoryGB: 24},
			{Precision: PrecisionNF4, MinMemoryGB: 16, RemoteEncoder: true},
		},
		OffloadBelowGB:  32,
		Modes:           []Mode{ModeGenerate, ModeEdit},
		DefaultSteps:    30,
		DefaultGuidance: 4.0,
		MaxInputImages:  1,
	},
	"qwen-edit": {
		ID:    "qwen-edit",
		Model: "Qwen/Qwen-Image-Edit-2511",
		Tiers: []Tier{
			{Precision: PrecisionBF16, MinMemoryGB: 0},
		},
		SubstituteModel: "runwayml/stable-diffusion-v1-5",
		Modes:           []Mode{ModeGenerate, ModeEdit},
		DefaultSteps:    40,
		DefaultGuidance: 1.0,
		DefaultCFG:      4.0,
		MaxInputImages:  2,
	},
	"zimage": {
		ID:    "zimage",
		Model: "Tongyi-MAI/Z-Image-Turbo",
		Tiers: []Tier{
			{Precision: PrecisionBF16, MinMemoryGB: 16},
		},
		OffloadBelowGB:    20,
		Modes:             []Mode{ModeGenerate},
		DefaultSteps:      9,
		ForceZeroGuidance: true,
	},
	"upscale": {
		ID:    "upscale",
		Model: "RealESRGAN_x4plus",
		Tiers: []Tier{
			{Precision: PrecisionFP16, MinMemoryGB: 0},
		},
		SubstituteModel: "stabilityai/stable-diffusion-x4-upscaler",
		Modes:           []Mode{ModeUpscale},
		UpscaleFactor:   4,
	},
}

// Lookup returns the profile for a variant id.
func Lookup(variant string) (Profile, bool) {
	p, ok := profiles[variant]
	return p, ok
}

// Variants lists the known variant ids.
func Variants() []string {
	out := make([]string, 0, len(profiles))
	for id := range profiles {
		out = append(out, id)
	}
	return out
}
