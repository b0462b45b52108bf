package watcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// debounceDelay coalesces rapid Create+Write events on the same file and
// gives the writer time to finish before the file is picked up.
const debounceDelay = 500 * time.Millisecond

// Job is a queued transcription request for a newly observed media file
type Job struct {
	ID   string
	Path string
}

// Watcher monitors a drop directory for new media files and turns each one
// into a transcription job
type Watcher struct {
	logger *zap.Logger
	dir    string
	accept func(path string) bool

	watcher *fsnotify.Watcher
	jobs    chan Job

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
	pending        sync.WaitGroup
}

// NewWatcher creates a Watcher over dir. accept filters observed paths;
// files it rejects are ignored.
func NewWatcher(logger *zap.Logger, dir string, accept func(path string) bool) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", dir)
	}

	return &Watcher{
		logger:         logger,
		dir:            dir,
		accept:         accept,
		jobs:           make(chan Job, 16),
		debounceTimers: make(map[string]*time.Timer),
	}, nil
}

// Start begins watching and returns the job channel. The channel is closed
// when ctx ends or the underlying watcher shuts down.
func (w *Watcher) Start(ctx context.Context) (<-chan Job, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", w.dir, err)
	}
	w.watcher = fsw

	w.logger.Info("watching directory for media files", zap.String("dir", w.dir))

	go w.watchLoop(ctx)

	return w.jobs, nil
}

// Stop closes the underlying fsnotify watcher
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}

// watchLoop processes fsnotify events until the context ends. The job
// channel is closed only after every pending debounce callback has run.
func (w *Watcher) watchLoop(ctx context.Context) {
	defer func() {
		w.drainTimers()
		w.pending.Wait()
		close(w.jobs)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if !w.accept(event.Name) {
				w.logger.Debug("ignoring non-media file", zap.String("path", event.Name))
				continue
			}
			w.scheduleJob(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

// scheduleJob debounces a path and then queues it as a job
func (w *Watcher) scheduleJob(ctx context.Context, path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(debounceDelay)
		return
	}

	w.pending.Add(1)
	w.debounceTimers[path] = time.AfterFunc(debounceDelay, func() {
		defer w.pending.Done()

		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		job := Job{ID: uuid.NewString(), Path: path}
		select {
		case <-ctx.Done():
		case w.jobs <- job:
			w.logger.Info("queued media file",
				zap.String("job_id", job.ID),
				zap.String("path", job.Path))
		}
	})
}

// drainTimers stops debounce timers that have not fired yet
func (w *Watcher) drainTimers() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	for path, t := range w.debounceTimers {
		if t.Stop() {
			w.pending.Done()
		}
		delete(w.debounceTimers, path)
	}
}
