package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"longscribe/internal/audio"
	"longscribe/internal/chunker"
)

// ChunkResult is the outcome of recognizing a single window. Exactly one of
// Segments or Err is meaningful.
type ChunkResult struct {
	Index    int
	Segments []TimelineSegment
	Err      error
}

// ChunkProcessor turns one window into timeline segments: it materializes
// the window's audio as a transient WAV file, runs the backend on it, and
// re-anchors the returned segments by the window offset.
type ChunkProcessor struct {
	logger  *zap.Logger
	backend Backend
	tempDir string
}

// NewChunkProcessor creates a ChunkProcessor writing window files under tempDir
func NewChunkProcessor(logger *zap.Logger, backend Backend, tempDir string) *ChunkProcessor {
	return &ChunkProcessor{
		logger:  logger,
		backend: backend,
		tempDir: tempDir,
	}
}

// ProcessWindow recognizes one window. Backend failures are captured in the
// returned ChunkResult instead of aborting the caller's run. The window's
// temporary WAV file is removed on every path.
func (p *ChunkProcessor) ProcessWindow(ctx context.Context, win chunker.Window, opts Options) ChunkResult {
	clipPath := filepath.Join(p.tempDir, fmt.Sprintf("window_%04d.wav", win.Index))

	if err := audio.WriteWAVFile(clipPath, win.Audio); err != nil {
		return ChunkResult{
			Index: win.Index,
			Err:   fmt.Errorf("failed to materialize window %d: %w", win.Index, err),
		}
	}
	defer func() {
		if err := os.Remove(clipPath); err != nil {
			p.logger.Warn("failed to remove window clip",
				zap.String("path", clipPath),
				zap.Error(err))
		}
	}()

	rawSegments, err := p.backend.Transcribe(ctx, clipPath, opts)
	if err != nil {
		p.logger.Warn("backend failed on window",
			zap.String("backend", p.backend.Name()),
			zap.Int("window", win.Index),
			zap.Error(err))
		return ChunkResult{
			Index: win.Index,
			Err:   fmt.Errorf("backend %s failed on window %d: %w", p.backend.Name(), win.Index, err),
		}
	}

	segments := make([]TimelineSegment, 0, len(rawSegments))
	for _, raw := range rawSegments {
		segments = append(segments, raw.OnTimeline(win.Offset))
	}

	p.logger.Debug("window recognized",
		zap.Int("window", win.Index),
		zap.Float64("offset_sec", win.Offset),
		zap.Int("segments", len(segments)))

	return ChunkResult{Index: win.Index, Segments: segments}
}
