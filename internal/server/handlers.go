package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ptsawat/captionflow/internal/scheduler"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	sched     *scheduler.Scheduler
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sched *scheduler.Scheduler, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		sched:     sched,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /v1/jobs requests. The job is queued and
// processed by the scheduler's workers; the response carries the id to
// poll.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	params := scheduler.Params{
		MediaRef:       req.VideoURL,
		Captions:       req.Captions,
		Script:         req.Script,
		AutoTranscribe: req.AutoTranscribe,
		Language:       req.Language,
		OutputFormat:   req.OutputFormat,
		Style:          req.Style,
	}

	jobID, err := h.sched.Enqueue(params, scheduler.ParsePriority(req.Priority))
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrQueueFull):
			writeError(w, http.StatusTooManyRequests, err.Error(), "QUEUE_FULL")
		case errors.Is(err, scheduler.ErrMissingMediaRef),
			errors.Is(err, scheduler.ErrMissingSubtitleSource):
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		default:
			h.logger.Error("failed to enqueue job",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		}
		return
	}

	h.logger.Info("job submitted",
		slog.String("job_id", jobID),
		slog.String("priority", req.Priority),
		slog.Bool("auto_transcribe", req.AutoTranscribe),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     jobID,
		Status: string(scheduler.StatusPending),
	})
}

// GetJob handles GET /v1/jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	job, err := h.sched.Status(jobID)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		ID:          job.ID,
		Status:      string(job.Status),
		Priority:    job.Priority.String(),
		Retries:     job.Retries,
		Error:       job.Error,
		OutputPath:  job.Result.OutputPath,
		OutputURL:   job.Result.OutputURL,
		CreatedAt:   formatTime(job.CreatedAt),
		StartedAt:   formatTime(job.StartedAt),
		CompletedAt: formatTime(job.CompletedAt),
	})
}

// CancelJob handles DELETE /v1/jobs/{id} requests. Only pending jobs can
// be cancelled; anything already running or finished is left alone.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	cancelled, err := h.sched.Cancel(jobID)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to cancel job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel job", "JOB_CANCEL_FAILED")
		return
	}
	if !cancelled {
		writeError(w, http.StatusConflict, "job already started or finished", "NOT_CANCELLABLE")
		return
	}

	h.logger.Info("job cancelled", slog.String("job_id", jobID))

	writeJSON(w, http.StatusOK, CancelJobResponse{
		ID:     jobID,
		Status: string(scheduler.StatusFailed),
	})
}

// QueueStats handles GET /v1/queue/stats requests.
func (h *Handlers) QueueStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.Stats())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
