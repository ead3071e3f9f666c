// Package device derives the hardware execution profile used by every model
// load and inference pass. The profile is computed once per process; absence
// of an accelerator is a supported configuration, not an error.
package device

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

type Kind string

const (
	CUDA Kind = "cuda"
	CPU  Kind = "cpu"
)

type Precision string

const (
	Half Precision = "half"
	Full Precision = "full"
)

// Profile is the immutable per-process execution profile.
type Profile struct {
	Device    Kind
	Precision Precision
	// FastMath reports whether the accelerator generation supports the
	// relaxed-precision matrix-multiply mode (TF32, compute capability 8.0+).
	FastMath     bool
	GPUName      string
	GPUMemoryMiB int
}

var (
	once   sync.Once
	cached Profile
)

// Detect returns the process-wide execution profile, probing the hardware on
// first use and reading the cached result afterwards. WHISPERD_DEVICE forces
// a device for CPU-only deployments and tests.
func Detect() Profile {
	once.Do(func() {
		cached = detect(os.Getenv("WHISPERD_DEVICE"), queryGPU)
	})
	return cached
}

type gpuInfo struct {
	name      string
	memoryMiB int
	capMajor  int
}

func detect(forced string, query func() (gpuInfo, bool)) Profile {
	switch forced {
	case "cpu":
		return cpuProfile()
	case "cuda":
		info, ok := query()
		if !ok {
			// Forced CUDA without a visible GPU still reports cuda so the
			// failure surfaces at model load, not here.
			return Profile{Device: CUDA, Precision: Half}
		}
		return cudaProfile(info)
	}

	info, ok := query()
	if !ok {
		return cpuProfile()
	}
	return cudaProfile(info)
}

func cpuProfile() Profile {
	return Profile{Device: CPU, Precision: Full}
}

func cudaProfile(info gpuInfo) Profile {
	return Profile{
		Device:       CUDA,
		Precision:    Half,
		FastMath:     info.capMajor >= 8,
		GPUName:      info.name,
		GPUMemoryMiB: info.memoryMiB,
	}
}

func queryGPU() (gpuInfo, bool) {
	out, err := exec.Command("nvidia-smi",
		"--query-gpu=name,memory.total,compute_cap",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return gpuInfo{}, false
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return gpuInfo{}, false
	}
	// One GPU device per process instance; only the first entry matters.
	return parseGPUQuery(lines[0])
}

func parseGPUQuery(line string) (gpuInfo, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return gpuInfo{}, false
	}

	info := gpuInfo{name: strings.TrimSpace(fields[0])}
	if info.name == "" {
		return gpuInfo{}, false
	}

	if mem, err := strconv.Atoi(strings.TrimSpace(fields[1])); err == nil {
		info.memoryMiB = mem
	}

	capParts := strings.SplitN(strings.TrimSpace(fields[2]), ".", 2)
	major, err := strconv.Atoi(capParts[0])
	if err != nil {
		return gpuInfo{}, false
	}
	info.capMajor = major

	return info, true
}
