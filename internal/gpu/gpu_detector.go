package gpu

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// GPUDetector probes for NVIDIA GPU devices usable by the whisper engine
type GPUDetector struct {
	logger *zap.Logger
}

// GPUInfo describes the detected GPU devices
type GPUInfo struct {
	Available     bool
	DeviceCount   int
	DeviceName    string
	DriverVersion string
}

// NewGPUDetector creates a new GPU detector instance
func NewGPUDetector(logger *zap.Logger) *GPUDetector {
	return &GPUDetector{
		logger: logger,
	}
}

// DetectGPU probes for GPU devices, first through nvidia-smi, then through
// CUDA environment variables. Absence of a GPU is not an error.
func (g *GPUDetector) DetectGPU() *GPUInfo {
	info := &GPUInfo{}

	if err := g.detectWithNvidiaSMI(info); err != nil {
		g.logger.Debug("nvidia-smi detection failed", zap.Error(err))
		if err := g.detectWithCUDAEnv(info); err != nil {
			g.logger.Debug("CUDA environment detection failed", zap.Error(err))
		}
	}

	g.logger.Info("GPU detection completed",
		zap.Bool("available", info.Available),
		zap.Int("device_count", info.DeviceCount),
		zap.String("device_name", info.DeviceName))

	return info
}

// detectWithNvidiaSMI queries device presence and details via nvidia-smi
func (g *GPUDetector) detectWithNvidiaSMI(info *GPUInfo) error {
	countCmd := exec.Command("nvidia-smi", "--list-gpus")
	countOutput, err := countCmd.Output()
	if err != nil {
		return fmt.Errorf("nvidia-smi command failed: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(countOutput)), "\n")
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return fmt.Errorf("no GPUs listed by nvidia-smi")
	}
	info.DeviceCount = len(lines)

	infoCmd := exec.Command("nvidia-smi", "--query-gpu=name,driver_version", "--format=csv,noheader,nounits", "--id=0")
	infoOutput, err := infoCmd.Output()
	if err != nil {
		return fmt.Errorf("nvidia-smi info query failed: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(strings.Split(string(infoOutput), "\n")[0]), ",")
	if len(parts) >= 2 {
		info.DeviceName = strings.TrimSpace(parts[0])
		info.DriverVersion = strings.TrimSpace(parts[1])
	}

	info.Available = info.DeviceCount > 0
	return nil
}

// detectWithCUDAEnv falls back to CUDA environment variables when nvidia-smi
// is unavailable, e.g. in containers without the utility installed
func (g *GPUDetector) detectWithCUDAEnv(info *GPUInfo) error {
	visibleDevices := os.Getenv("CUDA_VISIBLE_DEVICES")
	if visibleDevices == "" {
		return fmt.Errorf("no CUDA environment variables found")
	}
	if visibleDevices == "-1" {
		// Explicitly no devices visible
		return nil
	}

	info.DeviceCount = len(strings.Split(visibleDevices, ","))
	info.Available = info.DeviceCount > 0
	return nil
}

// Decide resolves the configured GPU policy into a concrete engine setting.
// "on" forces GPU use, "off" forces CPU, anything else autodetects.
func (g *GPUDetector) Decide(mode string) (useGPU bool, deviceID int) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "off":
		return false, -1
	case "on":
		return true, 0
	}

	info := g.DetectGPU()
	if !info.Available {
		return false, -1
	}
	return true, 0
}
