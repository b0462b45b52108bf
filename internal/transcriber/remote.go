package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"longscribe/internal/audio"
)

// remoteResponse is the JSON shape of a transcription endpoint response.
// Servers that cannot produce segment timings return text only.
type remoteResponse struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// RemoteBackend sends each window to an HTTP transcription endpoint as a
// multipart upload and parses the JSON response
type RemoteBackend struct {
	logger    *zap.Logger
	url       string
	authToken string
	client    *http.Client
}

// NewRemoteBackend creates a RemoteBackend posting to url. authToken is sent
// as a bearer token when non-empty.
func NewRemoteBackend(logger *zap.Logger, url, authToken string, timeout time.Duration) *RemoteBackend {
	return &RemoteBackend{
		logger:    logger,
		url:       url,
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in logs and failure reasons
func (b *RemoteBackend) Name() string {
	return "remote"
}

// Transcribe uploads the WAV file at audioPath and returns the recognized
// segments. A faulted request or non-2xx status fails only the window being
// processed, never the whole run.
func (b *RemoteBackend) Transcribe(ctx context.Context, audioPath string, opts Options) ([]Segment, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	// Decoded up front so a text-only response can be spanned over the clip
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio file %s: %w", audioPath, err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	w.WriteField("task", opts.Task.String())
	if opts.Language != "" && opts.Language != LanguageAuto {
		w.WriteField("language", opts.Language)
	}
	w.WriteField("response_format", "verbose_json")

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if b.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.authToken)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("transcription endpoint returned HTTP %d: %s",
			resp.StatusCode, truncateBody(body))
	}

	var parsed remoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	segments := make([]Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		if err := seg.Validate(); err != nil {
			b.logger.Warn("skipping malformed segment from endpoint",
				zap.Error(err),
				zap.Float64("start", seg.Start),
				zap.Float64("end", seg.End))
			continue
		}
		segments = append(segments, seg)
	}

	// No timings from the server: the full text becomes one segment
	// spanning the clip
	if len(segments) == 0 {
		if text := strings.TrimSpace(parsed.Text); text != "" {
			segments = append(segments, Segment{
				Start: 0,
				End:   clip.Duration(),
				Text:  text,
			})
		}
	}

	b.logger.Debug("remote recognition completed",
		zap.String("url", b.url),
		zap.String("language", parsed.Language),
		zap.Int("segments", len(segments)))

	return segments, nil
}

// truncateBody shortens an endpoint error body for inclusion in an error
func truncateBody(body []byte) string {
	const max = 300
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
