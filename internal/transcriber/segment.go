package transcriber

import "fmt"

// Segment is a single recognized span of speech as returned by a backend,
// with start and end times in seconds relative to the audio it was fed
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Validate checks that the segment's timestamps form a usable span
func (s *Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("start cannot be negative, got %v", s.Start)
	}
	if s.End < s.Start {
		return fmt.Errorf("end %v precedes start %v", s.End, s.Start)
	}
	return nil
}

// OnTimeline re-anchors the segment onto the recording timeline by shifting
// both timestamps by the window offset in seconds
func (s Segment) OnTimeline(offsetSec float64) TimelineSegment {
	return TimelineSegment{
		Start: s.Start + offsetSec,
		End:   s.End + offsetSec,
		Text:  s.Text,
	}
}

// TimelineSegment is a recognized span of speech positioned on the full
// recording timeline rather than relative to a single window
type TimelineSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
