package chunker

import (
	"fmt"

	"go.uber.org/zap"

	"longscribe/internal/audio"
)

// Window is one fixed-duration slice of a recording's waveform. Offset is the
// window's start position on the recording timeline in seconds.
type Window struct {
	Index  int
	Offset float64
	Audio  audio.Waveform
}

// Duration returns the length of the window's audio in seconds
func (w Window) Duration() float64 {
	return w.Audio.Duration()
}

// Chunker splits decoded waveforms into consecutive fixed-duration windows
type Chunker struct {
	logger           *zap.Logger
	chunkDurationSec float64
}

// NewChunker creates a Chunker producing windows of the given duration in seconds
func NewChunker(chunkDurationSec float64, logger *zap.Logger) (*Chunker, error) {
	if chunkDurationSec <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkDurationSec)
	}
	return &Chunker{
		logger:           logger,
		chunkDurationSec: chunkDurationSec,
	}, nil
}

// ChunkDurationSec returns the configured window duration in seconds
func (c *Chunker) ChunkDurationSec() float64 {
	return c.chunkDurationSec
}

// Split slices the waveform into ordered windows. Every window except the
// last covers exactly the configured duration; the last carries the
// remainder and is never empty. A zero-length waveform yields no windows.
func (c *Chunker) Split(w audio.Waveform) []Window {
	if len(w.Samples) == 0 {
		c.logger.Debug("waveform is empty, nothing to split")
		return nil
	}

	samplesPerWindow := int(c.chunkDurationSec * float64(w.SampleRate))
	if samplesPerWindow < 1 {
		samplesPerWindow = 1
	}

	total := len(w.Samples)
	windows := make([]Window, 0, (total+samplesPerWindow-1)/samplesPerWindow)

	for start := 0; start < total; start += samplesPerWindow {
		end := start + samplesPerWindow
		if end > total {
			end = total
		}

		index := len(windows)
		windows = append(windows, Window{
			Index:  index,
			Offset: float64(index) * c.chunkDurationSec,
			Audio: audio.Waveform{
				SampleRate: w.SampleRate,
				Samples:    w.Samples[start:end],
			},
		})
	}

	c.logger.Debug("waveform split into windows",
		zap.Int("windows", len(windows)),
		zap.Float64("chunk_duration_sec", c.chunkDurationSec),
		zap.Float64("total_duration_sec", w.Duration()))

	return windows
}
