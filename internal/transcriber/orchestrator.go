package transcriber

import (
	"context"

	"go.uber.org/zap"

	"longscribe/internal/audio"
	"longscribe/internal/chunker"
	"longscribe/internal/performance"
)

// ProgressFunc is called after each window finishes, successfully or not.
// completed counts processed windows, total is the window count of the run.
type ProgressFunc func(completed, total int)

// Orchestrator drives a transcription run: it splits the waveform into
// windows and processes them strictly sequentially in index order, isolating
// per-window failures and merging the survivors into one transcript.
type Orchestrator struct {
	logger    *zap.Logger
	chunker   *chunker.Chunker
	processor *ChunkProcessor
	monitor   *performance.Monitor
	opts      Options
	progress  ProgressFunc
}

// NewOrchestrator creates an Orchestrator with the given splitting and
// recognition collaborators
func NewOrchestrator(logger *zap.Logger, ck *chunker.Chunker, processor *ChunkProcessor, opts Options) *Orchestrator {
	return &Orchestrator{
		logger:    logger,
		chunker:   ck,
		processor: processor,
		monitor:   performance.NewMonitor(logger),
		opts:      opts,
	}
}

// NewOrchestratorWithMonitor creates an Orchestrator recording window timings
// into the provided monitor
func NewOrchestratorWithMonitor(logger *zap.Logger, ck *chunker.Chunker, processor *ChunkProcessor, opts Options, monitor *performance.Monitor) *Orchestrator {
	o := NewOrchestrator(logger, ck, processor, opts)
	o.monitor = monitor
	return o
}

// SetProgressFunc registers a callback invoked after every processed window
func (o *Orchestrator) SetProgressFunc(fn ProgressFunc) {
	o.progress = fn
}

// Run transcribes the waveform. It returns a non-nil Result even on
// cancellation, carrying everything processed up to that point; the error is
// non-nil only when the context ended the run early. Window failures are
// reported through Result.Failures, never through the error.
func (o *Orchestrator) Run(ctx context.Context, w audio.Waveform) (*Result, error) {
	windows := o.chunker.Split(w)
	total := len(windows)

	if total == 0 {
		o.logger.Info("recording contains no audio, transcript is empty")
		return &Result{}, nil
	}

	o.logger.Info("starting transcription run",
		zap.Int("windows", total),
		zap.Float64("duration_sec", w.Duration()),
		zap.String("task", o.opts.Task.String()),
		zap.String("language", o.opts.Language))

	results := make([]ChunkResult, 0, total)

	for _, win := range windows {
		select {
		case <-ctx.Done():
			o.logger.Info("transcription cancelled",
				zap.Int("completed", len(results)),
				zap.Int("total", total))
			return o.buildResult(results, total), ctx.Err()
		default:
		}

		timer := o.monitor.StartWindow(win.Index, int64(len(win.Audio.Samples))*2)
		res := o.processor.ProcessWindow(ctx, win, o.opts)
		o.monitor.EndWindow(timer, res.Err != nil)

		results = append(results, res)

		if res.Err != nil {
			o.logger.Warn("window failed, continuing with remaining windows",
				zap.Int("window", win.Index),
				zap.Error(res.Err))
		}

		o.logger.Info("transcription progress",
			zap.Int("completed", len(results)),
			zap.Int("total", total))

		if o.progress != nil {
			o.progress(len(results), total)
		}
	}

	result := o.buildResult(results, total)

	o.logger.Info("transcription run finished",
		zap.Int("windows", total),
		zap.Int("failed_windows", len(result.Failures)),
		zap.Int("segments", len(result.Segments)))

	return result, nil
}

// buildResult merges per-window outcomes, in window order, into a Result
func (o *Orchestrator) buildResult(results []ChunkResult, totalWindows int) *Result {
	result := &Result{Windows: totalWindows}
	for _, res := range results {
		if res.Err != nil {
			result.Failures = append(result.Failures, ChunkFailure{Index: res.Index, Err: res.Err})
			continue
		}
		result.Segments = append(result.Segments, res.Segments...)
	}
	return result
}
