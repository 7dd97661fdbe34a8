// Package scheduler runs captioning jobs through a bounded, prioritized
// in-memory queue. Jobs move pending -> processing -> completed or
// failed; a failed attempt may re-enter pending until the retry budget
// is spent. All status transitions are compare-and-swap under the
// scheduler's single mutex, which is the authoritative synchronization
// point between workers, the timeout monitor and cancellation.
package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Priority orders jobs across the queue tiers. Lower values drain first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow

	priorityCount
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority maps a request string to a Priority. Unknown or empty
// values fall back to normal.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Enqueue validation and lookup errors.
var (
	ErrMissingMediaRef       = errors.New("scheduler: missing video url or path")
	ErrMissingSubtitleSource = errors.New("scheduler: missing captions, script or transcription request")
	ErrQueueFull             = errors.New("scheduler: queue is full, try again later")
	ErrJobNotFound           = errors.New("scheduler: job not found")
)

// Params carries everything a worker needs to caption one video.
type Params struct {
	// MediaRef is an http(s) URL or a local path to the source video.
	MediaRef string
	// Captions is raw SRT or ASS content, or a URL to fetch it from.
	Captions string
	// Script is authoritative narration text used to correct or replace
	// the transcript.
	Script string
	// AutoTranscribe requests speech-to-text when no captions are given.
	AutoTranscribe bool
	// Language hints transcription and word segmentation (e.g. "th").
	Language string
	// OutputFormat selects the subtitle document format, "srt" or "ass".
	// Empty means ass.
	OutputFormat string
	// Style is the raw caption style configuration JSON.
	Style json.RawMessage
}

// Result is what a successful run hands back.
type Result struct {
	// OutputPath is the local rendered video.
	OutputPath string
	// OutputURL is set when the artifact was uploaded to object storage.
	OutputURL string
}

// Job is the scheduler's view of one captioning request. Snapshots
// returned by Status are detached copies.
type Job struct {
	ID       string
	Params   Params
	Priority Priority
	Status   Status
	Retries  int
	Error    string
	Result   Result

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// PermanentError marks a run failure that must not be retried, such as
// an unsupported style configuration.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the scheduler fails the job immediately instead
// of retrying. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
