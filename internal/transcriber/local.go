package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"longscribe/internal/audio"
)

// ErrWhisperUnavailable is returned when the binary was built without the
// whispercpp tag and the native engine is requested.
var ErrWhisperUnavailable = errors.New("whisper.cpp engine not compiled in, rebuild with -tags whispercpp")

// Model abstracts the in-process speech recognition engine behind the
// local backend
type Model interface {
	Load(modelPath string) error
	Recognize(ctx context.Context, samples []float32, opts Options) ([]Segment, error)
	Close() error
	GPUStatus() (useGPU bool, deviceID int)
}

// LocalBackend runs recognition through an in-process whisper model. The
// model is loaded once and reused across windows.
type LocalBackend struct {
	logger *zap.Logger
	model  Model
	loaded bool
}

// NewLocalBackend creates a LocalBackend around the given model
func NewLocalBackend(logger *zap.Logger, model Model) *LocalBackend {
	return &LocalBackend{
		logger: logger,
		model:  model,
	}
}

// Name identifies the backend in logs and failure reasons
func (b *LocalBackend) Name() string {
	return "whisper.cpp"
}

// LoadModel loads the model weights from modelPath
func (b *LocalBackend) LoadModel(modelPath string) error {
	b.logger.Info("loading whisper model", zap.String("path", modelPath))

	if b.model == nil {
		return fmt.Errorf("whisper model not initialized")
	}
	if err := b.model.Load(modelPath); err != nil {
		return fmt.Errorf("failed to load whisper model from %s: %w", modelPath, err)
	}
	b.loaded = true

	useGPU, deviceID := b.model.GPUStatus()
	b.logger.Info("whisper model loaded",
		zap.String("path", modelPath),
		zap.Bool("use_gpu", useGPU),
		zap.Int("device_id", deviceID))
	return nil
}

// Transcribe recognizes the speech in the WAV file at audioPath
func (b *LocalBackend) Transcribe(ctx context.Context, audioPath string, opts Options) ([]Segment, error) {
	if !b.loaded {
		return nil, fmt.Errorf("whisper model not loaded")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio file %s: %w", audioPath, err)
	}

	recognized, err := b.model.Recognize(ctx, clip.Samples, opts)
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(recognized))
	for _, seg := range recognized {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		segments = append(segments, seg)
	}

	b.logger.Debug("local recognition completed",
		zap.String("path", audioPath),
		zap.Float64("clip_duration_sec", clip.Duration()),
		zap.Int("segments", len(segments)))

	return segments, nil
}

// Close releases the model resources
func (b *LocalBackend) Close() error {
	if b.model == nil {
		return nil
	}
	if err := b.model.Close(); err != nil {
		return fmt.Errorf("failed to close whisper model: %w", err)
	}
	b.loaded = false
	return nil
}
