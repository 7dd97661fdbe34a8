// Package subtitle provides the transcript segment and subtitle cue models
// and the synthesizer that turns raw time-stamped segments into ordered,
// non-overlapping, line-wrapped cues ready for rendering.
package subtitle

import "strings"

// Segment is a raw time-stamped slice of transcript text as produced by a
// transcription engine. Segments are not guaranteed to arrive sorted.
type Segment struct {
	// Start is the segment start in seconds.
	Start float64
	// End is the segment end in seconds; always >= Start.
	End float64
	// Text is the transcript text for this time range.
	Text string
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Cue is a finished subtitle cue. Cues produced by the Synthesizer are
// sorted by start, separated by the configured gap, duration-bounded and
// line-wrapped; they are immutable after synthesis.
type Cue struct {
	// Index is the 1-based position of the cue in display order.
	Index int
	// Start is the cue start in seconds.
	Start float64
	// End is the cue end in seconds.
	End float64
	// Lines holds the wrapped display lines; never empty.
	Lines []string
}

// Text returns the cue lines joined with newlines.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// Duration returns the cue length in seconds.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}
