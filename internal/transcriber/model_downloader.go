package transcriber

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModelDownloader fetches ggml Whisper model files from HuggingFace into a
// local models directory
type ModelDownloader struct {
	logger    *zap.Logger
	modelsDir string
	client    *http.Client
	baseURL   string
}

// NewModelDownloader creates a downloader storing models under modelsDir
func NewModelDownloader(logger *zap.Logger, modelsDir string) *ModelDownloader {
	return NewModelDownloaderWithBaseURL(logger, modelsDir,
		"https://huggingface.co/ggerganov/whisper.cpp/resolve/main")
}

// NewModelDownloaderWithBaseURL creates a downloader fetching from a custom
// base URL
func NewModelDownloaderWithBaseURL(logger *zap.Logger, modelsDir, baseURL string) *ModelDownloader {
	return &ModelDownloader{
		logger:    logger,
		modelsDir: modelsDir,
		client: &http.Client{
			Timeout: 30 * time.Minute, // Long timeout for large model downloads
		},
		baseURL: baseURL,
	}
}

// AvailableModels returns the known Whisper model names
func (d *ModelDownloader) AvailableModels() []string {
	return []string{
		"tiny.en",
		"tiny",
		"base.en",
		"base",
		"small.en",
		"small",
		"medium.en",
		"medium",
		"large-v1",
		"large-v2",
		"large-v3",
	}
}

// NormalizeModelName resolves user-facing aliases onto concrete model names.
// The bare "large" alias maps to the newest large model.
func (d *ModelDownloader) NormalizeModelName(name string) string {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "large" {
		return "large-v3"
	}
	return trimmed
}

// IsValidModelName checks whether the name resolves to a known model
func (d *ModelDownloader) IsValidModelName(name string) bool {
	resolved := d.NormalizeModelName(name)
	for _, known := range d.AvailableModels() {
		if known == resolved {
			return true
		}
	}
	return false
}

// ModelPath returns the local file path for a model name
func (d *ModelDownloader) ModelPath(name string) string {
	return filepath.Join(d.modelsDir, fmt.Sprintf("ggml-%s.bin", d.NormalizeModelName(name)))
}

// EnsureModel makes sure the named model exists locally, downloading it when
// missing, and returns its path
func (d *ModelDownloader) EnsureModel(ctx context.Context, name string) (string, error) {
	if !d.IsValidModelName(name) {
		return "", fmt.Errorf("unknown whisper model %q, available: %s",
			name, strings.Join(d.AvailableModels(), ", "))
	}

	resolved := d.NormalizeModelName(name)
	modelPath := d.ModelPath(resolved)

	if _, err := os.Stat(modelPath); err == nil {
		d.logger.Info("model already present",
			zap.String("model", resolved),
			zap.String("path", modelPath))
		return modelPath, nil
	}

	d.logger.Info("model not found locally, downloading",
		zap.String("model", resolved),
		zap.String("path", modelPath))

	if err := os.MkdirAll(d.modelsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	if err := d.downloadModel(ctx, resolved, modelPath); err != nil {
		return "", err
	}
	return modelPath, nil
}

// downloadModel fetches one model file, writing through a temp file so a
// partial download never lands at the final path
func (d *ModelDownloader) downloadModel(ctx context.Context, name, modelPath string) error {
	url := fmt.Sprintf("%s/ggml-%s.bin", d.baseURL, name)

	d.logger.Info("downloading model",
		zap.String("model", name),
		zap.String("url", url),
		zap.String("destination", modelPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", "longscribe/1.0 (Go HTTP Client)")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	tempFile := modelPath + ".tmp"
	defer os.Remove(tempFile)

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	written, err := d.copyWithProgress(out, resp.Body, resp.ContentLength, name)
	if err != nil {
		out.Close()
		return fmt.Errorf("failed to download model data: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish model file: %w", err)
	}

	if err := os.Rename(tempFile, modelPath); err != nil {
		return fmt.Errorf("failed to move downloaded model into place: %w", err)
	}

	d.logger.Info("model download completed",
		zap.String("model", name),
		zap.String("path", modelPath),
		zap.Int64("bytes", written))

	return nil
}

// copyWithProgress copies the download stream while logging progress
// periodically
func (d *ModelDownloader) copyWithProgress(dst io.Writer, src io.Reader, totalSize int64, name string) (int64, error) {
	buffer := make([]byte, 32*1024)

	var written int64
	lastLog := time.Now()
	const logInterval = 10 * time.Second

	for {
		nr, er := src.Read(buffer)
		if nr > 0 {
			nw, ew := dst.Write(buffer[:nr])
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}

			if time.Since(lastLog) >= logInterval {
				if totalSize > 0 {
					d.logger.Info("download progress",
						zap.String("model", name),
						zap.Int64("downloaded", written),
						zap.Int64("total", totalSize),
						zap.Float64("percentage", float64(written)/float64(totalSize)*100))
				} else {
					d.logger.Info("download progress",
						zap.String("model", name),
						zap.Int64("downloaded", written))
				}
				lastLog = time.Now()
			}
		}
		if er != nil {
			if er != io.EOF {
				return written, er
			}
			break
		}
	}
	return written, nil
}
