package transcriber

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ChunkFailure records a window whose recognition failed. The rest of the
// run is unaffected by it.
type ChunkFailure struct {
	Index int
	Err   error
}

// Result is the outcome of a full transcription run: the merged timeline
// segments of every window that succeeded, plus one entry per failed window.
type Result struct {
	// Windows is the number of windows the recording was split into
	Windows int
	// Segments are ordered by window, non-decreasing in Start
	Segments []TimelineSegment
	// Failures lists the windows that produced no segments, in window order
	Failures []ChunkFailure
}

// AllFailed reports whether every window of a non-empty recording failed
func (r *Result) AllFailed() bool {
	return r.Windows > 0 && len(r.Failures) == r.Windows
}

// FailureError combines all window failures into a single error, or nil
// when every window succeeded
func (r *Result) FailureError() error {
	var combined error
	for _, f := range r.Failures {
		combined = multierr.Append(combined, fmt.Errorf("window %d: %w", f.Index, f.Err))
	}
	return combined
}

// Render produces the transcript text: one line per segment in the form
// "[HH:MM:SS - HH:MM:SS] <text>", joined by newlines
func (r *Result) Render() string {
	lines := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		lines = append(lines, fmt.Sprintf("[%s - %s] %s",
			FormatTimestamp(seg.Start), FormatTimestamp(seg.End), seg.Text))
	}
	return strings.Join(lines, "\n")
}

// FormatTimestamp renders seconds as zero-padded HH:MM:SS, truncating
// sub-second precision. Hours grow beyond two digits as needed. Timestamps
// are never negative here; a negative value means an upstream bug, so it
// panics rather than render a bogus transcript.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		panic(fmt.Sprintf("negative timestamp: %v", seconds))
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
