package gpu

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

// probeTimeout bounds every shell-out made while probing.
const probeTimeout = 5 * time.Second

// Probe inspects the host once and returns an accelerator snapshot. Order:
// CUDA device query via nvidia-smi, then OS device enumeration (ghw, with a
// wmic backstop on Windows), then the cpu fallback. Probe never fails; any
// error along the way degrades to the next step.
func Probe(ctx context.Context) Accelerator {
	if acc, ok := probeCUDA(ctx); ok {
		acc.SystemMemoryGB = systemMemoryGB()
		return acc
	}
	if acc, ok := probeDevices(ctx); ok {
		acc.SystemMemoryGB = systemMemoryGB()
		return acc
	}
	return Accelerator{
		Vendor:         VendorUnknown,
		Name:           "CPU",
		Backend:        BackendCPU,
		SystemMemoryGB: systemMemoryGB(),
	}
}

// probeCUDA queries NVIDIA devices through nvidia-smi. A missing binary, a
// timeout, or unparseable output all mean "no CUDA device".
func probeCUDA(ctx context.Context) (Accelerator, bool) {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return Accelerator{}, false
	}
	cctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(cctx, "nvidia-smi",
		"--query-gpu=name,memory.total",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		log.Debug().Err(err).Msg("nvidia-smi query failed")
		return Accelerator{}, false
	}
	name, memoryGB, ok := parseNvidiaSMI(string(out))
	if !ok {
		return Accelerator{}, false
	}
	return Accelerator{
		Vendor:   VendorNVIDIA,
		Name:     name,
		MemoryGB: memoryGB,
		Backend:  BackendCUDA,
	}, true
}

// parseNvidiaSMI parses the first line of a "name, memory.total" CSV query.
// memory.total is reported in MiB. A malformed memory field yields 0 rather
// than a failed probe.
func parseNvidiaSMI(out string) (name string, memoryGB float64, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		name = strings.TrimSpace(parts[0])
		if name == "" {
			return "", 0, false
		}
		if len(parts) >= 2 {
			if mib, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
				memoryGB = round1(mib / 1024)
			}
		}
		return name, memoryGB, true
	}
	return "", 0, false
}

// probeDevices enumerates video controllers through ghw and classifies each
// against the vendor keyword tables. Only AMD and Intel devices are usable on
// this path (NVIDIA without a working nvidia-smi has no compute stack).
func probeDevices(ctx context.Context) (Accelerator, bool) {
	info, err := ghw.GPU()
	if err == nil {
		for _, card := range info.GraphicsCards {
			if card == nil || card.DeviceInfo == nil || card.DeviceInfo.Product == nil {
				continue
			}
			name := card.DeviceInfo.Product.Name
			vendor := ClassifyVendor(name)
			if vendor != VendorAMD && vendor != VendorIntel {
				continue
			}
			var memoryGB float64
			if card.Node != nil && card.Node.Memory != nil && card.Node.Memory.TotalUsableBytes > 0 {
				memoryGB = round1(float64(card.Node.Memory.TotalUsableBytes) / (1 << 30))
			}
			return Accelerator{
				Vendor:     vendor,
				Name:       name,
				MemoryGB:   memoryGB,
				Backend:    BackendDirectML,
				Integrated: IsIntegrated(name),
			}, true
		}
	} else {
		log.Debug().Err(err).Msg("ghw GPU enumeration failed")
	}
	if runtime.GOOS == "windows" {
		return probeWMIC(ctx)
	}
	return Accelerator{}, false
}

// probeWMIC lists Win32_VideoController entries. A timeout or missing utility
// is treated as "no device found", not an error.
func probeWMIC(ctx context.Context) (Accelerator, bool) {
	cctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(cctx, "wmic",
		"path", "win32_VideoController", "get", "name,adapterram").Output()
	if err != nil {
		log.Debug().Err(err).Msg("wmic query failed")
		return Accelerator{}, false
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) < 2 {
		return Accelerator{}, false
	}
	for _, line := range lines[1:] { // skip header
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		vendor := ClassifyVendor(line)
		if vendor != VendorAMD && vendor != VendorIntel {
			continue
		}
		name, memoryGB := parseVideoControllerLine(line)
		return Accelerator{
			Vendor:     vendor,
			Name:       name,
			MemoryGB:   memoryGB,
			Backend:    BackendDirectML,
			Integrated: IsIntegrated(name),
		}, true
	}
	return Accelerator{}, false
}

// parseVideoControllerLine splits a "name adapterram" row. The trailing field
// is the adapter memory in bytes; when absent or malformed the memory defaults
// to 0 and the whole line is taken as the name.
func parseVideoControllerLine(line string) (name string, memoryGB float64) {
	name = strings.TrimSpace(line)
	idx := strings.LastIndexAny(name, " \t")
	if idx < 0 {
		return name, 0
	}
	bytesField := strings.TrimSpace(name[idx+1:])
	b, err := strconv.ParseInt(bytesField, 10, 64)
	if err != nil || b <= 0 {
		return name, 0
	}
	return strings.TrimSpace(name[:idx]), round1(float64(b) / (1 << 30))
}

func systemMemoryGB() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return round1(float64(vm.Total) / (1 << 30))
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
