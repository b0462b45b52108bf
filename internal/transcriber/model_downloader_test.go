package transcriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestModelDownloader_NormalizeModelName(t *testing.T) {
	t.Run("should lowercase and trim the name", func(t *testing.T) {
		d := NewModelDownloader(zaptest.NewLogger(t), t.TempDir())
		assert.Equal(t, "small", d.NormalizeModelName("  Small "))
		assert.Equal(t, "base.en", d.NormalizeModelName("BASE.EN"))
	})

	t.Run("should map the large alias to the newest large model", func(t *testing.T) {
		d := NewModelDownloader(zaptest.NewLogger(t), t.TempDir())
		assert.Equal(t, "large-v3", d.NormalizeModelName("large"))
		assert.Equal(t, "large-v3", d.NormalizeModelName(" LARGE "))
	})

	t.Run("should keep explicit large versions", func(t *testing.T) {
		d := NewModelDownloader(zaptest.NewLogger(t), t.TempDir())
		assert.Equal(t, "large-v1", d.NormalizeModelName("large-v1"))
		assert.Equal(t, "large-v2", d.NormalizeModelName("large-v2"))
	})
}

func TestModelDownloader_IsValidModelName(t *testing.T) {
	t.Run("should accept every known model", func(t *testing.T) {
		d := NewModelDownloader(zaptest.NewLogger(t), t.TempDir())
		for _, name := range d.AvailableModels() {
			assert.True(t, d.IsValidModelName(name), "model %s should be valid", name)
		}
	})

	t.Run("should accept aliases", func(t *testing.T) {
		d := NewModelDownloader(zaptest.NewLogger(t), t.TempDir())
		assert.True(t, d.IsValidModelName("large"))
		assert.True(t, d.IsValidModelName("Small"))
	})

	t.Run("should reject unknown names", func(t *testing.T) {
		d := NewModelDownloader(zaptest.NewLogger(t), t.TempDir())
		assert.False(t, d.IsValidModelName("gigantic"))
		assert.False(t, d.IsValidModelName(""))
	})
}

func TestModelDownloader_ModelPath(t *testing.T) {
	t.Run("should build the ggml file path under the models directory", func(t *testing.T) {
		// Arrange
		d := NewModelDownloader(zaptest.NewLogger(t), "/models")

		// Act & Assert
		assert.Equal(t, filepath.Join("/models", "ggml-small.bin"), d.ModelPath("small"))
		assert.Equal(t, filepath.Join("/models", "ggml-large-v3.bin"), d.ModelPath("large"))
	})
}

func TestModelDownloader_EnsureModel(t *testing.T) {
	t.Run("should skip the download when the model already exists", func(t *testing.T) {
		// Arrange
		modelsDir := t.TempDir()
		existing := filepath.Join(modelsDir, "ggml-tiny.bin")
		require.NoError(t, os.WriteFile(existing, []byte("weights"), 0644))

		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))
		defer server.Close()
		d := NewModelDownloaderWithBaseURL(zaptest.NewLogger(t), modelsDir, server.URL)

		// Act
		path, err := d.EnsureModel(context.Background(), "tiny")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, existing, path)
		assert.Zero(t, requests, "no request should be made for a present model")
	})

	t.Run("should download a missing model into place", func(t *testing.T) {
		// Arrange
		modelsDir := filepath.Join(t.TempDir(), "models")
		var gotPath, gotAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAgent = r.Header.Get("User-Agent")
			w.Write([]byte("fake model weights"))
		}))
		defer server.Close()
		d := NewModelDownloaderWithBaseURL(zaptest.NewLogger(t), modelsDir, server.URL)

		// Act
		path, err := d.EnsureModel(context.Background(), "tiny")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "/ggml-tiny.bin", gotPath)
		assert.Contains(t, gotAgent, "longscribe")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "fake model weights", string(data))
		_, statErr := os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(statErr), "temp file should be cleaned up")
	})

	t.Run("should resolve aliases before downloading", func(t *testing.T) {
		// Arrange
		modelsDir := t.TempDir()
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte("weights"))
		}))
		defer server.Close()
		d := NewModelDownloaderWithBaseURL(zaptest.NewLogger(t), modelsDir, server.URL)

		// Act
		path, err := d.EnsureModel(context.Background(), "large")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "/ggml-large-v3.bin", gotPath)
		assert.Equal(t, filepath.Join(modelsDir, "ggml-large-v3.bin"), path)
	})

	t.Run("should fail on an unknown model name", func(t *testing.T) {
		// Arrange
		d := NewModelDownloader(zaptest.NewLogger(t), t.TempDir())

		// Act
		_, err := d.EnsureModel(context.Background(), "gigantic")

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown whisper model")
		assert.Contains(t, err.Error(), "large-v3", "error should list the available models")
	})

	t.Run("should fail when the server rejects the download", func(t *testing.T) {
		// Arrange
		modelsDir := t.TempDir()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()
		d := NewModelDownloaderWithBaseURL(zaptest.NewLogger(t), modelsDir, server.URL)

		// Act
		_, err := d.EnsureModel(context.Background(), "tiny")

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
		entries, readErr := os.ReadDir(modelsDir)
		require.NoError(t, readErr)
		assert.Empty(t, entries, "no file should be left after a failed download")
	})

	t.Run("should abort the download on context cancellation", func(t *testing.T) {
		// Arrange
		modelsDir := t.TempDir()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("weights"))
		}))
		defer server.Close()
		d := NewModelDownloaderWithBaseURL(zaptest.NewLogger(t), modelsDir, server.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act
		_, err := d.EnsureModel(ctx, "tiny")

		// Assert
		assert.Error(t, err)
	})
}
