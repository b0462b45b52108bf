package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"longscribe/internal/config"
	"longscribe/internal/transcriber"
)

// mockBackend is a scripted transcriber.Backend for application tests
type mockBackend struct {
	segments []transcriber.Segment
	err      error
	calls    int
	closed   bool
}

func (m *mockBackend) Name() string {
	return "mock"
}

func (m *mockBackend) Transcribe(ctx context.Context, audioPath string, opts transcriber.Options) ([]transcriber.Segment, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.segments, nil
}

func (m *mockBackend) Close() error {
	m.closed = true
	return nil
}

// writeFakeFFmpeg writes a shell script that emits the given seconds of
// silent 16 kHz mono PCM regardless of its arguments
func writeFakeFFmpeg(t *testing.T, seconds int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := fmt.Sprintf("#!/bin/sh\ndd if=/dev/zero bs=32000 count=%d 2>/dev/null\n", seconds)
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

// testConfig builds a configuration wired to a fake ffmpeg and short windows
func testConfig(t *testing.T, ffmpegSeconds int) *config.Configuration {
	t.Helper()
	cfg := config.NewConfiguration()
	cfg.Override("ffmpeg.path", writeFakeFFmpeg(t, ffmpegSeconds))
	cfg.Override("transcription.chunk_duration_sec", 1)
	return cfg
}

// writeMediaFile creates a placeholder media input file
func writeMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0644))
	return path
}

func TestNewApplicationWithConfig(t *testing.T) {
	t.Run("should build a remote backend when configured", func(t *testing.T) {
		// Arrange
		cfg := config.NewConfiguration()
		cfg.Override("backend.mode", "remote")
		cfg.Override("remote.url", "http://example.com/transcribe")

		// Act
		application, err := NewApplicationWithConfig(cfg, zaptest.NewLogger(t))

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "remote", application.backend.Name())
	})

	t.Run("should refuse remote mode without a URL", func(t *testing.T) {
		// Arrange
		cfg := config.NewConfiguration()
		cfg.Override("backend.mode", "remote")

		// Act
		_, err := NewApplicationWithConfig(cfg, zaptest.NewLogger(t))

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "remote.url is not configured")
	})

	t.Run("should refuse an unknown backend mode", func(t *testing.T) {
		// Arrange
		cfg := config.NewConfiguration()
		cfg.Override("backend.mode", "imaginary")

		// Act
		_, err := NewApplicationWithConfig(cfg, zaptest.NewLogger(t))

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown backend mode")
	})

	t.Run("should refuse an invalid task", func(t *testing.T) {
		// Arrange
		cfg := config.NewConfiguration()
		cfg.Override("transcription.task", "summarize")

		// Act
		_, err := NewApplicationWithConfig(cfg, zaptest.NewLogger(t))

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown task")
	})

	t.Run("should refuse a non-positive chunk duration", func(t *testing.T) {
		// Arrange
		cfg := config.NewConfiguration()
		cfg.Override("transcription.chunk_duration_sec", 0)

		// Act
		_, err := NewApplicationWithConfig(cfg, zaptest.NewLogger(t))

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})

	t.Run("should fail fast in local mode when the native engine is absent", func(t *testing.T) {
		if transcriber.NativeAvailable() {
			t.Skip("native whisper engine compiled in")
		}

		// Arrange - backend.mode defaults to local
		cfg := config.NewConfiguration()

		// Act
		_, err := NewApplicationWithConfig(cfg, zaptest.NewLogger(t))

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, transcriber.ErrWhisperUnavailable)
	})
}

func TestApplication_RunFile(t *testing.T) {
	t.Run("should write the merged transcript next to the input", func(t *testing.T) {
		// Arrange - 2 seconds of audio in 1 second windows
		backend := &mockBackend{segments: []transcriber.Segment{{Start: 0, End: 1, Text: "hello"}}}
		application, err := NewApplicationWithBackend(testConfig(t, 2), zaptest.NewLogger(t), backend)
		require.NoError(t, err)
		inputPath := writeMediaFile(t, "talk.mp3")

		// Act
		err = application.RunFile(context.Background(), inputPath, "")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 2, backend.calls)
		outputPath := filepath.Join(filepath.Dir(inputPath), "talk.txt")
		content, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		assert.Equal(t, "[00:00:00 - 00:00:01] hello\n[00:00:01 - 00:00:02] hello\n", string(content))
	})

	t.Run("should honor an explicit output path", func(t *testing.T) {
		// Arrange
		backend := &mockBackend{segments: []transcriber.Segment{{Start: 0, End: 1, Text: "hi"}}}
		application, err := NewApplicationWithBackend(testConfig(t, 1), zaptest.NewLogger(t), backend)
		require.NoError(t, err)
		outputPath := filepath.Join(t.TempDir(), "custom.txt")

		// Act
		err = application.RunFile(context.Background(), writeMediaFile(t, "talk.mp3"), outputPath)

		// Assert
		require.NoError(t, err)
		content, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		assert.Equal(t, "[00:00:00 - 00:00:01] hi\n", string(content))
	})

	t.Run("should reject unsupported media types", func(t *testing.T) {
		// Arrange
		backend := &mockBackend{}
		application, err := NewApplicationWithBackend(testConfig(t, 1), zaptest.NewLogger(t), backend)
		require.NoError(t, err)

		// Act
		err = application.RunFile(context.Background(), "/tmp/notes.txt", "")

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported media type")
		assert.Zero(t, backend.calls)
	})

	t.Run("should write an empty transcript for a file without audio", func(t *testing.T) {
		// Arrange - fake ffmpeg emits no PCM at all
		backend := &mockBackend{}
		application, err := NewApplicationWithBackend(testConfig(t, 0), zaptest.NewLogger(t), backend)
		require.NoError(t, err)
		inputPath := writeMediaFile(t, "silent.mp3")

		// Act
		err = application.RunFile(context.Background(), inputPath, "")

		// Assert
		require.NoError(t, err)
		assert.Zero(t, backend.calls, "backend should never run for empty audio")
		outputPath := filepath.Join(filepath.Dir(inputPath), "silent.txt")
		content, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		assert.Empty(t, content)
	})

	t.Run("should fail when every window fails but still write the file", func(t *testing.T) {
		// Arrange
		backend := &mockBackend{err: errors.New("recognition broken")}
		application, err := NewApplicationWithBackend(testConfig(t, 2), zaptest.NewLogger(t), backend)
		require.NoError(t, err)
		inputPath := writeMediaFile(t, "doomed.mp3")

		// Act
		err = application.RunFile(context.Background(), inputPath, "")

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all 2 windows failed")
		outputPath := filepath.Join(filepath.Dir(inputPath), "doomed.txt")
		content, readErr := os.ReadFile(outputPath)
		require.NoError(t, readErr)
		assert.Empty(t, content)
	})

	t.Run("should fail when the media file does not exist", func(t *testing.T) {
		// Arrange
		backend := &mockBackend{}
		application, err := NewApplicationWithBackend(testConfig(t, 1), zaptest.NewLogger(t), backend)
		require.NoError(t, err)

		// Act
		err = application.RunFile(context.Background(), "/nonexistent/talk.mp3", "")

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})

	t.Run("should write the segments debug file in debug mode", func(t *testing.T) {
		// Arrange
		cfg := testConfig(t, 1)
		cfg.Override("debug.enabled", true)
		backend := &mockBackend{segments: []transcriber.Segment{{Start: 0, End: 1, Text: "dbg"}}}
		application, err := NewApplicationWithBackend(cfg, zaptest.NewLogger(t), backend)
		require.NoError(t, err)
		outputPath := filepath.Join(t.TempDir(), "out.txt")

		// Act
		err = application.RunFile(context.Background(), writeMediaFile(t, "talk.mp3"), outputPath)

		// Assert
		require.NoError(t, err)
		debugPath := filepath.Join(filepath.Dir(outputPath), "out.segments.jsonl")
		content, err := os.ReadFile(debugPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"dbg"`)
	})
}

func TestApplication_DeriveOutputPath(t *testing.T) {
	t.Run("should swap the extension for txt next to the input", func(t *testing.T) {
		// Arrange
		application, err := NewApplicationWithBackend(config.NewConfiguration(), zaptest.NewLogger(t), &mockBackend{})
		require.NoError(t, err)

		// Act & Assert
		assert.Equal(t, filepath.Join("/media", "talk.txt"),
			application.deriveOutputPath(filepath.Join("/media", "talk.mp3")))
	})

	t.Run("should place transcripts in the configured output directory", func(t *testing.T) {
		// Arrange
		cfg := config.NewConfiguration()
		cfg.Override("output.dir", "/transcripts")
		application, err := NewApplicationWithBackend(cfg, zaptest.NewLogger(t), &mockBackend{})
		require.NoError(t, err)

		// Act & Assert
		assert.Equal(t, filepath.Join("/transcripts", "talk.txt"),
			application.deriveOutputPath(filepath.Join("/media", "talk.mp3")))
	})
}

func TestApplication_RunWatch(t *testing.T) {
	t.Run("should refuse to start without a watch directory", func(t *testing.T) {
		// Arrange
		application, err := NewApplicationWithBackend(config.NewConfiguration(), zaptest.NewLogger(t), &mockBackend{})
		require.NoError(t, err)

		// Act
		err = application.RunWatch(context.Background())

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "watch.dir")
	})

	t.Run("should transcribe files dropped into the watch directory", func(t *testing.T) {
		// Arrange
		watchDir := t.TempDir()
		cfg := testConfig(t, 1)
		cfg.Override("watch.dir", watchDir)
		backend := &mockBackend{segments: []transcriber.Segment{{Start: 0, End: 1, Text: "watched"}}}
		application, err := NewApplicationWithBackend(cfg, zaptest.NewLogger(t), backend)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- application.RunWatch(ctx)
		}()

		// Act
		mediaPath := filepath.Join(watchDir, "drop.mp3")
		require.NoError(t, os.WriteFile(mediaPath, []byte("media"), 0644))

		// Assert
		outputPath := filepath.Join(watchDir, "drop.txt")
		require.Eventually(t, func() bool {
			_, err := os.Stat(outputPath)
			return err == nil
		}, 10*time.Second, 100*time.Millisecond, "transcript should appear for the dropped file")

		content, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		assert.Equal(t, "[00:00:00 - 00:00:01] watched\n", string(content))

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watch mode should stop after cancellation")
		}
	})
}

func TestApplication_Shutdown(t *testing.T) {
	t.Run("should close a closable backend", func(t *testing.T) {
		// Arrange
		backend := &mockBackend{}
		application, err := NewApplicationWithBackend(config.NewConfiguration(), zaptest.NewLogger(t), backend)
		require.NoError(t, err)

		// Act
		err = application.Shutdown()

		// Assert
		require.NoError(t, err)
		assert.True(t, backend.closed)
	})
}
