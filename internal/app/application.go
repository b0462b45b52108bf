package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"longscribe/internal/chunker"
	"longscribe/internal/config"
	"longscribe/internal/decoder"
	"longscribe/internal/gpu"
	"longscribe/internal/logger"
	"longscribe/internal/performance"
	"longscribe/internal/transcriber"
	"longscribe/internal/watcher"
)

// Application wires the decoder, chunker, recognition backend, and
// orchestrator into the two run modes: single file and watch directory
type Application struct {
	config     *config.Configuration
	logger     *zap.Logger
	decoder    *decoder.Decoder
	chunker    *chunker.Chunker
	backend    transcriber.Backend
	monitor    *performance.Monitor
	downloader *transcriber.ModelDownloader
	opts       transcriber.Options
	modelReady bool
}

// NewApplication creates an application from the environment: configuration
// comes from the file named by CONFIG_PATH when set, otherwise from
// environment variables
func NewApplication() (*Application, error) {
	var cfg *config.Configuration
	var err error

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		cfg, err = config.NewConfigurationFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	return NewApplicationWithConfig(cfg, logger.NewLoggerWithDebug(cfg.GetDebugMode()))
}

// NewApplicationWithConfig creates an application with all components built
// from the given configuration
func NewApplicationWithConfig(cfg *config.Configuration, zapLogger *zap.Logger) (*Application, error) {
	app, err := newApplicationCore(cfg, zapLogger)
	if err != nil {
		return nil, err
	}

	switch cfg.GetBackendMode() {
	case "local":
		if !transcriber.NativeAvailable() {
			return nil, transcriber.ErrWhisperUnavailable
		}
		detector := gpu.NewGPUDetector(zapLogger)
		useGPU, deviceID := detector.Decide(cfg.GetGPUMode())
		model := transcriber.NewWhisperCppModel(zapLogger, useGPU, deviceID)
		app.backend = transcriber.NewLocalBackend(zapLogger, model)
		app.downloader = transcriber.NewModelDownloader(zapLogger, cfg.GetModelsDir())
	case "remote":
		if cfg.GetRemoteURL() == "" {
			return nil, fmt.Errorf("remote backend selected but remote.url is not configured")
		}
		app.backend = transcriber.NewRemoteBackend(zapLogger,
			cfg.GetRemoteURL(),
			cfg.GetRemoteAuthToken(),
			time.Duration(cfg.GetRemoteTimeoutSec())*time.Second)
	default:
		return nil, fmt.Errorf("unknown backend mode %q, want local or remote", cfg.GetBackendMode())
	}

	return app, nil
}

// NewApplicationWithBackend creates an application around an externally
// constructed recognition backend
func NewApplicationWithBackend(cfg *config.Configuration, zapLogger *zap.Logger, backend transcriber.Backend) (*Application, error) {
	app, err := newApplicationCore(cfg, zapLogger)
	if err != nil {
		return nil, err
	}
	app.backend = backend
	return app, nil
}

// newApplicationCore builds the backend-independent components
func newApplicationCore(cfg *config.Configuration, zapLogger *zap.Logger) (*Application, error) {
	task, err := transcriber.ParseTask(cfg.GetTask())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ck, err := chunker.NewChunker(float64(cfg.GetChunkDurationSec()), zapLogger)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Application{
		config:  cfg,
		logger:  zapLogger,
		decoder: decoder.NewDecoderWithPath(zapLogger, cfg.GetFFmpegPath()),
		chunker: ck,
		monitor: performance.NewMonitor(zapLogger),
		opts: transcriber.Options{
			Task:     task,
			Language: cfg.GetLanguage(),
		},
	}, nil
}

// Config returns the application's configuration
func (app *Application) Config() *config.Configuration {
	return app.config
}

// RunFile transcribes a single media file and writes the transcript to
// outputPath, or next to the input when outputPath is empty. A partial
// transcript is still written when the run is cancelled midway.
func (app *Application) RunFile(ctx context.Context, inputPath, outputPath string) error {
	jobID := uuid.NewString()

	if !decoder.SupportedExtension(inputPath) {
		return fmt.Errorf("unsupported media type %q", filepath.Ext(inputPath))
	}
	if outputPath == "" {
		outputPath = app.deriveOutputPath(inputPath)
	}

	app.logger.Info("starting transcription job",
		zap.String("job_id", jobID),
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("backend", app.backend.Name()),
		zap.String("task", app.opts.Task.String()),
		zap.String("language", app.opts.Language))

	if err := app.prepareBackend(ctx); err != nil {
		return fmt.Errorf("failed to prepare backend: %w", err)
	}

	waveform, err := app.decoder.Decode(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", inputPath, err)
	}

	if waveform.Duration() == 0 {
		app.logger.Info("media file contains no audio, writing empty transcript",
			zap.String("job_id", jobID),
			zap.String("input", inputPath))
		return app.writeTranscript(outputPath, &transcriber.Result{})
	}

	tempDir, err := os.MkdirTemp("", "longscribe-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			app.logger.Warn("failed to remove temp directory",
				zap.String("path", tempDir),
				zap.Error(err))
		}
	}()

	processor := transcriber.NewChunkProcessor(app.logger, app.backend, tempDir)
	orchestrator := transcriber.NewOrchestratorWithMonitor(app.logger, app.chunker, processor, app.opts, app.monitor)
	orchestrator.SetProgressFunc(func(completed, total int) {
		app.logger.Info("job progress",
			zap.String("job_id", jobID),
			zap.Int("completed", completed),
			zap.Int("total", total))
	})

	result, runErr := orchestrator.Run(ctx, waveform)

	if err := app.writeTranscript(outputPath, result); err != nil {
		return multierr.Append(runErr, err)
	}
	if app.config.GetDebugMode() {
		app.writeSegmentsDebugFile(outputPath, result)
	}

	app.monitor.LogMetrics()

	if runErr != nil {
		return fmt.Errorf("transcription interrupted: %w", runErr)
	}
	if result.AllFailed() {
		return fmt.Errorf("all %d windows failed: %w", result.Windows, result.FailureError())
	}
	if len(result.Failures) > 0 {
		app.logger.Warn("transcript is missing failed windows",
			zap.String("job_id", jobID),
			zap.Int("failed_windows", len(result.Failures)),
			zap.Int("total_windows", result.Windows))
	}

	app.logger.Info("transcription job completed",
		zap.String("job_id", jobID),
		zap.String("output", outputPath),
		zap.Int("segments", len(result.Segments)))

	return nil
}

// RunWatch monitors the configured watch directory and transcribes each
// media file dropped into it, one at a time. Failures of individual files
// do not stop the watch loop.
func (app *Application) RunWatch(ctx context.Context) error {
	watchDir := app.config.GetWatchDir()
	if watchDir == "" {
		return fmt.Errorf("watch mode requires watch.dir to be configured")
	}
	if outDir := app.config.GetOutputDir(); outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	w, err := watcher.NewWatcher(app.logger, watchDir, decoder.SupportedExtension)
	if err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}

	jobs, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}
	defer w.Stop()

	for job := range jobs {
		app.logger.Info("processing watched file",
			zap.String("watch_job_id", job.ID),
			zap.String("path", job.Path))

		if err := app.RunFile(ctx, job.Path, ""); err != nil {
			if ctx.Err() != nil {
				break
			}
			app.logger.Error("watched file failed",
				zap.String("watch_job_id", job.ID),
				zap.String("path", job.Path),
				zap.Error(err))
		}
	}

	app.logger.Info("watch mode stopped", zap.String("dir", watchDir))
	return nil
}

// prepareBackend downloads and loads the local model once when the local
// backend is in use
func (app *Application) prepareBackend(ctx context.Context) error {
	if app.modelReady || app.downloader == nil {
		return nil
	}
	local, ok := app.backend.(*transcriber.LocalBackend)
	if !ok {
		return nil
	}

	modelPath, err := app.downloader.EnsureModel(ctx, app.config.GetWhisperModel())
	if err != nil {
		return err
	}
	if err := local.LoadModel(modelPath); err != nil {
		return err
	}

	app.modelReady = true
	return nil
}

// deriveOutputPath maps a media path to its transcript path: same base name
// with a .txt extension, in output.dir when configured or next to the input
func (app *Application) deriveOutputPath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ".txt"
	if outDir := app.config.GetOutputDir(); outDir != "" {
		return filepath.Join(outDir, base)
	}
	return filepath.Join(filepath.Dir(inputPath), base)
}

// writeTranscript writes the rendered transcript to path. A non-empty
// transcript gets a trailing newline; an empty one produces an empty file.
func (app *Application) writeTranscript(path string, result *transcriber.Result) error {
	content := result.Render()
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// writeSegmentsDebugFile writes the run's segments as JSON lines next to
// the transcript for machine consumption during debugging
func (app *Application) writeSegmentsDebugFile(outputPath string, result *transcriber.Result) {
	debugPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".segments.jsonl"

	f, err := os.Create(debugPath)
	if err != nil {
		app.logger.Error("failed to create segments debug file", zap.Error(err))
		return
	}
	defer f.Close()

	out := transcriber.NewJSONOutput(f, app.logger)
	if err := out.OutputResult(result); err != nil {
		app.logger.Error("failed to write segments debug file", zap.Error(err))
	}
}

// Shutdown releases the recognition backend's resources
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down application components")

	var combined error
	if closer, ok := app.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error("error closing recognition backend", zap.Error(err))
			combined = multierr.Append(combined, err)
		}
	}

	app.logger.Info("application shutdown completed")
	return combined
}
