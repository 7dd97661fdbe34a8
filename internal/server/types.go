// Package server provides the HTTP surface for the captioning service:
// job submission, status, cancellation and queue statistics. DTOs are
// kept separate from the scheduler's domain types.
package server

import "encoding/json"

// CreateJobRequest is the HTTP request body for submitting a captioning job.
type CreateJobRequest struct {
	// VideoURL is an http(s) URL or server-local path of the source video.
	VideoURL string `json:"video_url" validate:"required"`
	// Captions is raw SRT or ASS content, or a URL to fetch it from.
	// When set, transcription is skipped.
	Captions string `json:"captions,omitempty"`
	// Script is authoritative narration text used to correct the
	// transcript before cue synthesis.
	Script string `json:"script,omitempty"`
	// AutoTranscribe requests speech-to-text when no captions are given.
	AutoTranscribe bool `json:"auto_transcribe,omitempty"`
	// Language is an ISO language hint for transcription and word
	// segmentation, e.g. "en" or "th".
	Language string `json:"language,omitempty" validate:"omitempty,min=2,max=16"`
	// OutputFormat selects the subtitle document format. Default ass.
	OutputFormat string `json:"output_format,omitempty" validate:"omitempty,oneof=srt ass"`
	// Priority selects the queue tier. Default normal.
	Priority string `json:"priority,omitempty" validate:"omitempty,oneof=high normal low"`
	// Style is the caption style configuration JSON.
	Style json.RawMessage `json:"style,omitempty"`
}

// CreateJobResponse is the HTTP response after submitting a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for a job status query.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Priority is the queue tier the job was submitted to.
	Priority string `json:"priority"`
	// Retries is the number of retry attempts consumed so far.
	Retries int `json:"retries"`
	// Error contains the failing stage's message if the job failed.
	Error string `json:"error,omitempty"`
	// OutputPath is the server-local rendered video (if completed).
	OutputPath string `json:"output_path,omitempty"`
	// OutputURL is the object-storage URL of the rendered video (if
	// completed and uploads are enabled).
	OutputURL string `json:"output_url,omitempty"`
	// CreatedAt, StartedAt and CompletedAt are RFC 3339 timestamps.
	CreatedAt   string `json:"created_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// CancelJobResponse is the HTTP response after cancelling a job.
type CancelJobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the job status after the cancel.
	Status string `json:"status"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
