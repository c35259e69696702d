package gpu

import "strings"

// Keyword tables for vendor classification of device names reported by OS
// enumeration. Matching is case-insensitive substring containment.
var (
	nvidiaKeywords = []string{"NVIDIA", "GEFORCE", "QUADRO", "TESLA"}
	amdKeywords    = []string{"AMD", "RADEON", "VEGA"}
	intelKeywords  = []string{"INTEL", "IRIS", "UHD", "ARC"}

	integratedKeywords = []string{"INTEGRATED", "UHD", "IRIS", "VEGA", "APU", "RADEON GRAPHICS"}
)

// ClassifyVendor maps a device name to a vendor by keyword match.
func ClassifyVendor(name string) Vendor {
	u := strings.ToUpper(name)
	if containsAny(u, nvidiaKeywords) {
		return VendorNVIDIA
	}
	if containsAny(u, amdKeywords) {
		return VendorAMD
	}
	if containsAny(u, intelKeywords) {
		return VendorIntel
	}
	return VendorUnknown
}

// IsIntegrated reports whether a device name looks like an integrated GPU.
func IsIntegrated(name string) bool {
	return containsAny(strings.ToUpper(name), integratedKeywords)
}

func containsAny(upper string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
