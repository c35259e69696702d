package gpu

import "testing"

func TestParseNvidiaSMI(t *testing.T) {
	name, gb, ok := parseNvidiaSMI("NVIDIA GeForce RTX 4090, 24564\n")
	if !ok {
		t.Fatalf("expected ok")
	}
	if name != "NVIDIA GeForce RTX 4090" {
		t.Fatalf("name=%q", name)
	}
	if gb < 23.9 || gb > 24.1 {
		t.Fatalf("memoryGB=%v", gb)
	}
}

func TestParseNvidiaSMI_MalformedMemory(t *testing.T) {
	name, gb, ok := parseNvidiaSMI("NVIDIA A100, [N/A]\n")
	if !ok || name != "NVIDIA A100" {
		t.Fatalf("name=%q ok=%v", name, ok)
	}
	if gb != 0 {
		t.Fatalf("expected 0 memory for malformed field, got %v", gb)
	}
}

func TestParseNvidiaSMI_Empty(t *testing.T) {
	if _, _, ok := parseNvidiaSMI("\n\n"); ok {
		t.Fatalf("expected not ok for empty output")
	}
}

func TestParseVideoControllerLine(t *testing.T) {
	name, gb := parseVideoControllerLine("AMD Radeon RX 580  8589934592")
	if name != "AMD Radeon RX 580" {
		t.Fatalf("name=%q", name)
	}
	if gb != 8.0 {
		t.Fatalf("memoryGB=%v", gb)
	}
}

func TestParseVideoControllerLine_MissingMemory(t *testing.T) {
	// No trailing numeric field: memory must default to 0, never error.
	name, gb := parseVideoControllerLine("Intel(R) Iris(R) Xe Graphics")
	if gb != 0 {
		t.Fatalf("memoryGB=%v want 0", gb)
	}
	if name == "" {
		t.Fatalf("name should be preserved")
	}
}

func TestParseVideoControllerLine_MalformedMemory(t *testing.T) {
	_, gb := parseVideoControllerLine("AMD Radeon Vega 8 notanumber")
	if gb != 0 {
		t.Fatalf("memoryGB=%v want 0", gb)
	}
}
