package decoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"longscribe/internal/audio"
)

// mediaExtensions are the container formats accepted as input. Video
// containers are decoded audio-only.
var mediaExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mkv":  true,
	".mov":  true,
	".m4v":  true,
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
}

// SupportedExtension reports whether the file name carries a recognized
// media container extension
func SupportedExtension(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Decoder converts a media file into a mono 16 kHz waveform through an
// ffmpeg child process
type Decoder struct {
	logger     *zap.Logger
	ffmpegPath string
}

// NewDecoder creates a Decoder using the ffmpeg binary on PATH
func NewDecoder(logger *zap.Logger) *Decoder {
	return NewDecoderWithPath(logger, "ffmpeg")
}

// NewDecoderWithPath creates a Decoder using a specific ffmpeg binary
func NewDecoderWithPath(logger *zap.Logger, ffmpegPath string) *Decoder {
	return &Decoder{
		logger:     logger,
		ffmpegPath: ffmpegPath,
	}
}

// Decode extracts the audio track of the media file at mediaPath and returns
// it as a mono 16 kHz waveform. On failure no partial waveform is returned;
// the error carries the tail of ffmpeg's stderr for diagnosis.
func (d *Decoder) Decode(ctx context.Context, mediaPath string) (audio.Waveform, error) {
	if _, err := os.Stat(mediaPath); err != nil {
		return audio.Waveform{}, fmt.Errorf("failed to open media file: %w", err)
	}

	args := []string{
		"-nostdin",
		"-i", mediaPath,
		"-vn",          // Drop any video track
		"-ar", "16000", // Sample rate required by the recognition backends
		"-ac", "1", // Mono channel
		"-f", "s16le", // 16-bit little-endian PCM
		"-", // Write to stdout
	}

	d.logger.Info("decoding media file",
		zap.String("path", mediaPath),
		zap.String("ffmpeg", d.ffmpegPath))

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return audio.Waveform{}, fmt.Errorf("decode interrupted: %w", ctxErr)
		}
		return audio.Waveform{}, fmt.Errorf("ffmpeg failed to decode %s: %w: %s",
			mediaPath, err, stderrTail(stderr.Bytes()))
	}

	pcm := stdout.Bytes()
	waveform := audio.FromPCM16(pcm, audio.DefaultSampleRate)

	d.logger.Info("media file decoded",
		zap.String("path", mediaPath),
		zap.Int("pcm_bytes", len(pcm)),
		zap.Float64("duration_sec", waveform.Duration()))

	return waveform, nil
}

// stderrTail returns the last few lines of ffmpeg's stderr, where the
// actual failure reason ends up
func stderrTail(stderr []byte) string {
	const maxLines = 4
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
