package transcriber

import (
	"context"
	"fmt"
)

// LanguageAuto requests automatic language detection from the backend.
const LanguageAuto = "auto"

// Task selects what a recognition backend produces from speech.
type Task int

const (
	// TaskTranscribe produces text in the spoken language
	TaskTranscribe Task = iota
	// TaskTranslate produces an English translation of the speech
	TaskTranslate
)

// String returns the wire name of the task
func (t Task) String() string {
	switch t {
	case TaskTranscribe:
		return "transcribe"
	case TaskTranslate:
		return "translate"
	}
	return fmt.Sprintf("Task(%d)", int(t))
}

// ParseTask converts a task name into a Task value
func ParseTask(name string) (Task, error) {
	switch name {
	case "transcribe":
		return TaskTranscribe, nil
	case "translate":
		return TaskTranslate, nil
	}
	return TaskTranscribe, fmt.Errorf("unknown task %q, want transcribe or translate", name)
}

// Options carries the per-invocation recognition settings shared by all backends
type Options struct {
	Task     Task
	Language string
}

// Backend transcribes a single audio file and returns its segments with
// timestamps relative to the start of that file.
type Backend interface {
	// Name identifies the backend in logs and failure reasons
	Name() string
	// Transcribe recognizes the speech in the audio file at audioPath
	Transcribe(ctx context.Context, audioPath string, opts Options) ([]Segment, error)
}
