//go:build !whispercpp

package transcriber

import (
	"context"

	"go.uber.org/zap"
)

// NativeAvailable reports whether the whisper.cpp engine is compiled in.
func NativeAvailable() bool { return false }

// WhisperCppModel is a stub that satisfies the Model interface when the
// binary was built without the whispercpp tag
type WhisperCppModel struct {
	logger   *zap.Logger
	useGPU   bool
	deviceID int
}

// NewWhisperCppModel creates a stub model instance
func NewWhisperCppModel(logger *zap.Logger, useGPU bool, deviceID int) *WhisperCppModel {
	return &WhisperCppModel{
		logger:   logger,
		useGPU:   useGPU,
		deviceID: deviceID,
	}
}

// Load always fails because the native engine is absent
func (m *WhisperCppModel) Load(modelPath string) error {
	return ErrWhisperUnavailable
}

// Recognize always fails because the native engine is absent
func (m *WhisperCppModel) Recognize(ctx context.Context, samples []float32, opts Options) ([]Segment, error) {
	return nil, ErrWhisperUnavailable
}

// Close is a no-op on the stub
func (m *WhisperCppModel) Close() error { return nil }

// GPUStatus reports the configured GPU settings
func (m *WhisperCppModel) GPUStatus() (bool, int) {
	return m.useGPU, m.deviceID
}
