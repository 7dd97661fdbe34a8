package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults mirror the service's production queue sizing.
const (
	DefaultWorkers    = 4
	DefaultCapacity   = 100
	DefaultMaxRetries = 3
	DefaultJobTimeout = 30 * time.Minute
	DefaultRetention  = 24 * time.Hour

	defaultMonitorInterval = time.Minute
	defaultIdleSleep       = 500 * time.Millisecond

	// retryDelayMillis is the sequence penalty per prior attempt. The
	// delay is realized as lost queue position rather than a timer.
	retryDelayMillis = 60_000
)

// Runner executes one job. Implementations return a wrapped
// PermanentError for failures that must not be retried.
type Runner interface {
	Run(ctx context.Context, jobID string, params Params) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, jobID string, params Params) (Result, error)

func (f RunnerFunc) Run(ctx context.Context, jobID string, params Params) (Result, error) {
	return f(ctx, jobID, params)
}

// Options tunes the scheduler. Zero fields take the defaults.
type Options struct {
	Workers         int
	Capacity        int
	MaxRetries      int
	JobTimeout      time.Duration
	Retention       time.Duration
	MonitorInterval time.Duration
	IdleSleep       time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = DefaultJobTimeout
	}
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = defaultMonitorInterval
	}
	if o.IdleSleep <= 0 {
		o.IdleSleep = defaultIdleSleep
	}
	return o
}

// Stats is a point-in-time snapshot of the queue and job table.
type Stats struct {
	TotalJobs      int `json:"total_jobs"`
	PendingJobs    int `json:"pending_jobs"`
	ProcessingJobs int `json:"processing_jobs"`
	CompletedJobs  int `json:"completed_jobs"`
	FailedJobs     int `json:"failed_jobs"`
	RetryingJobs   int `json:"retrying_jobs"`

	QueueDepthHigh   int `json:"queue_depth_high"`
	QueueDepthNormal int `json:"queue_depth_normal"`
	QueueDepthLow    int `json:"queue_depth_low"`

	MaxWorkers   int `json:"max_workers"`
	MaxQueueSize int `json:"max_queue_size"`
	MaxRetries   int `json:"max_retries"`
}

// Scheduler owns the job table, the three priority queues and the worker
// pool. One mutex guards the table and the queues together so every
// status transition and queue mutation is atomic with respect to the
// others.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	queues [priorityCount]jobQueue
	order  uint64

	opts   Options
	runner Runner
	logger *slog.Logger
	now    func() time.Time

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a stopped scheduler; call Start to launch the workers.
func New(runner Runner, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   make(map[string]*Job),
		opts:   opts.withDefaults(),
		runner: runner,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
}

// Start launches the worker pool and the timeout monitor. Calling Start
// twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("scheduler starting", slog.Int("workers", s.opts.Workers))
	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	s.wg.Add(1)
	go s.monitor()
}

// Shutdown stops the workers and waits for in-flight jobs, or until ctx
// expires.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue validates params, records a pending job and queues it on the
// requested tier. Returns the job ID for status polling.
func (s *Scheduler) Enqueue(params Params, priority Priority) (string, error) {
	if strings.TrimSpace(params.MediaRef) == "" {
		return "", ErrMissingMediaRef
	}
	if strings.TrimSpace(params.Captions) == "" &&
		strings.TrimSpace(params.Script) == "" && !params.AutoTranscribe {
		return "", ErrMissingSubtitleSource
	}
	if priority < PriorityHigh || priority >= priorityCount {
		priority = PriorityNormal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	depth := 0
	for i := range s.queues {
		depth += s.queues[i].Len()
	}
	if depth >= s.opts.Capacity {
		return "", ErrQueueFull
	}

	id := uuid.NewString()
	s.jobs[id] = &Job{
		ID:        id,
		Params:    params,
		Priority:  priority,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	s.pushLocked(id, priority, 0)

	s.logger.Info("job enqueued",
		slog.String("job_id", id),
		slog.String("priority", priority.String()))
	return id, nil
}

// pushLocked queues a job with a sequence penalty in milliseconds.
// Caller holds s.mu.
func (s *Scheduler) pushLocked(id string, priority Priority, penaltyMillis int64) {
	s.order++
	s.queues[priority].push(&queueItem{
		jobID:    id,
		sequence: s.now().UnixMilli() + penaltyMillis,
		order:    s.order,
	})
}

// Dequeue pops the next pending job ID, draining higher tiers first.
// Returns false when every queue is empty. Entries whose job was
// cancelled or swept are skipped.
func (s *Scheduler) Dequeue() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.queues {
		for {
			item, ok := s.queues[i].pop()
			if !ok {
				break
			}
			job, exists := s.jobs[item.jobID]
			if !exists || job.Status != StatusPending {
				continue
			}
			return item.jobID, true
		}
	}
	return "", false
}

// Cancel fails a pending job. It reports false without error when the
// job exists but already left the pending state.
func (s *Scheduler) Cancel(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false, ErrJobNotFound
	}
	if job.Status != StatusPending {
		return false, nil
	}
	job.Status = StatusFailed
	job.Error = "job cancelled by user"
	job.CompletedAt = s.now()
	s.logger.Info("job cancelled", slog.String("job_id", id))
	return true, nil
}

// Status returns a snapshot of the job.
func (s *Scheduler) Status(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// Stats counts jobs by status and reports queue depths and limits.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalJobs:        len(s.jobs),
		QueueDepthHigh:   s.queues[PriorityHigh].Len(),
		QueueDepthNormal: s.queues[PriorityNormal].Len(),
		QueueDepthLow:    s.queues[PriorityLow].Len(),
		MaxWorkers:       s.opts.Workers,
		MaxQueueSize:     s.opts.Capacity,
		MaxRetries:       s.opts.MaxRetries,
	}
	for _, job := range s.jobs {
		switch job.Status {
		case StatusPending:
			st.PendingJobs++
			if job.Retries > 0 {
				st.RetryingJobs++
			}
		case StatusProcessing:
			st.ProcessingJobs++
		case StatusCompleted:
			st.CompletedJobs++
		case StatusFailed:
			st.FailedJobs++
		}
	}
	return st
}

// transitionIf atomically moves a job from one status to another,
// applying mutate while still holding the lock. Returns false when the
// job is gone or no longer in the expected state, in which case nothing
// changes. This is the only way job status is ever written after
// enqueue, so a timeout and a late worker result cannot both win.
func (s *Scheduler) transitionIf(id string, from, to Status, mutate func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != from {
		return false
	}
	job.Status = to
	if mutate != nil {
		mutate(job)
	}
	return true
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		id, ok := s.Dequeue()
		if !ok {
			select {
			case <-s.stop:
				return
			case <-time.After(s.opts.IdleSleep):
			}
			continue
		}
		s.process(id)
	}
}

func (s *Scheduler) process(id string) {
	var params Params
	claimed := s.transitionIf(id, StatusPending, StatusProcessing, func(j *Job) {
		j.StartedAt = s.now()
		params = j.Params
	})
	if !claimed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	result, err := s.runner.Run(ctx, id, params)
	cancel()

	if err == nil {
		if s.transitionIf(id, StatusProcessing, StatusCompleted, func(j *Job) {
			j.Result = result
			j.Error = ""
			j.CompletedAt = s.now()
		}) {
			s.logger.Info("job completed", slog.String("job_id", id))
		} else {
			// The monitor already failed the job; its verdict stands.
			s.logger.Warn("discarding result for job no longer processing",
				slog.String("job_id", id))
		}
		return
	}

	s.handleFailure(id, err)
}

// timeoutMessage is recorded on jobs that exceed the wall-clock budget,
// whether the reaper or the worker notices first.
const timeoutMessage = "job exceeded maximum execution time"

// handleFailure retries transient errors by re-queueing with a sequence
// penalty, and fails the job for permanent errors, a blown wall-clock
// budget, or an exhausted retry budget.
func (s *Scheduler) handleFailure(id string, err error) {
	var perm *PermanentError
	timedOut := errors.Is(err, context.DeadlineExceeded)
	retryable := !errors.As(err, &perm)

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return
	}

	if timedOut {
		job.Status = StatusFailed
		job.Error = timeoutMessage
		job.CompletedAt = s.now()
		s.logger.Warn("job timed out", slog.String("job_id", id))
		return
	}

	if retryable && job.Retries < s.opts.MaxRetries {
		job.Retries++
		job.Status = StatusPending
		job.Error = err.Error()
		s.pushLocked(id, job.Priority, int64(job.Retries)*retryDelayMillis)
		s.logger.Info("job scheduled for retry",
			slog.String("job_id", id),
			slog.Int("attempt", job.Retries),
			slog.Int("max_retries", s.opts.MaxRetries),
			slog.String("error", err.Error()))
		return
	}

	job.Status = StatusFailed
	job.Error = err.Error()
	job.CompletedAt = s.now()
	s.logger.Error("job failed",
		slog.String("job_id", id),
		slog.Int("retries", job.Retries),
		slog.String("error", err.Error()))
}

func (s *Scheduler) monitor() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

// reap fails processing jobs past the wall-clock budget and drops
// terminal jobs older than the retention window. Timeout failures are
// terminal; a worker finishing later loses the transitionIf race.
func (s *Scheduler) reap() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, job := range s.jobs {
		if job.Status == StatusProcessing && now.Sub(job.StartedAt) > s.opts.JobTimeout {
			job.Status = StatusFailed
			job.Error = timeoutMessage
			job.CompletedAt = now
			s.logger.Warn("job timed out", slog.String("job_id", id))
			continue
		}
		if job.Status.IsTerminal() && now.Sub(job.CompletedAt) > s.opts.Retention {
			delete(s.jobs, id)
			s.logger.Info("expired job removed", slog.String("job_id", id))
		}
	}
}
