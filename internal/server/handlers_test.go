package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptsawat/captionflow/internal/scheduler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a router around a scheduler whose workers are not
// started, so submitted jobs stay pending and handler behavior is
// deterministic.
func newTestServer(t *testing.T, opts scheduler.Options) (http.Handler, *scheduler.Scheduler) {
	t.Helper()
	runner := scheduler.RunnerFunc(func(context.Context, string, scheduler.Params) (scheduler.Result, error) {
		return scheduler.Result{}, nil
	})
	sched := scheduler.New(runner, opts, testLogger())
	handlers := NewHandlers(sched, testLogger())
	return NewRouter(handlers, testLogger(), DefaultConfig()), sched
}

func postJob(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t, scheduler.Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateJob(t *testing.T) {
	t.Run("accepts a valid job", func(t *testing.T) {
		router, sched := newTestServer(t, scheduler.Options{})

		rec := postJob(t, router, `{
			"video_url": "https://example.com/clip.mp4",
			"captions": "1\n00:00:00,000 --> 00:00:01,000\nhi\n",
			"priority": "high"
		}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp CreateJobResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "pending", resp.Status)

		job, err := sched.Status(resp.ID)
		require.NoError(t, err)
		assert.Equal(t, scheduler.PriorityHigh, job.Priority)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		router, _ := newTestServer(t, scheduler.Options{})

		rec := postJob(t, router, `{not json`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "INVALID_JSON", resp.Code)
	})

	t.Run("rejects missing video_url", func(t *testing.T) {
		router, _ := newTestServer(t, scheduler.Options{})

		rec := postJob(t, router, `{"captions": "x"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	})

	t.Run("rejects missing subtitle source", func(t *testing.T) {
		router, _ := newTestServer(t, scheduler.Options{})

		rec := postJob(t, router, `{"video_url": "https://example.com/clip.mp4"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		router, _ := newTestServer(t, scheduler.Options{})

		rec := postJob(t, router, `{"video_url": "v.mp4", "captions": "x", "priority": "urgent"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 429 when the queue is full", func(t *testing.T) {
		router, _ := newTestServer(t, scheduler.Options{Capacity: 1})

		body := `{"video_url": "v.mp4", "auto_transcribe": true}`
		require.Equal(t, http.StatusAccepted, postJob(t, router, body).Code)

		rec := postJob(t, router, body)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "QUEUE_FULL", resp.Code)
	})
}

func TestGetJob(t *testing.T) {
	t.Run("returns job details", func(t *testing.T) {
		router, sched := newTestServer(t, scheduler.Options{})

		id, err := sched.Enqueue(scheduler.Params{
			MediaRef: "v.mp4",
			Captions: "caps",
		}, scheduler.PriorityLow)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+id, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp JobResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, id, resp.ID)
		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, "low", resp.Priority)
		assert.Zero(t, resp.Retries)
		assert.NotEmpty(t, resp.CreatedAt)
		assert.Empty(t, resp.StartedAt)
	})

	t.Run("returns 404 for unknown job", func(t *testing.T) {
		router, _ := newTestServer(t, scheduler.Options{})

		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "JOB_NOT_FOUND", resp.Code)
	})
}

func TestCancelJob(t *testing.T) {
	t.Run("cancels a pending job", func(t *testing.T) {
		router, sched := newTestServer(t, scheduler.Options{})

		id, err := sched.Enqueue(scheduler.Params{MediaRef: "v.mp4", Captions: "caps"}, scheduler.PriorityNormal)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodDelete, "/v1/jobs/"+id, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp CancelJobResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "failed", resp.Status)

		job, err := sched.Status(id)
		require.NoError(t, err)
		assert.Equal(t, scheduler.StatusFailed, job.Status)
	})

	t.Run("returns 409 for a finished job", func(t *testing.T) {
		router, sched := newTestServer(t, scheduler.Options{})

		id, err := sched.Enqueue(scheduler.Params{MediaRef: "v.mp4", Captions: "caps"}, scheduler.PriorityNormal)
		require.NoError(t, err)
		cancelled, err := sched.Cancel(id)
		require.NoError(t, err)
		require.True(t, cancelled)

		req := httptest.NewRequest(http.MethodDelete, "/v1/jobs/"+id, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "NOT_CANCELLABLE", resp.Code)
	})

	t.Run("returns 404 for unknown job", func(t *testing.T) {
		router, _ := newTestServer(t, scheduler.Options{})

		req := httptest.NewRequest(http.MethodDelete, "/v1/jobs/nope", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestQueueStats(t *testing.T) {
	router, sched := newTestServer(t, scheduler.Options{})

	_, err := sched.Enqueue(scheduler.Params{MediaRef: "v.mp4", Captions: "caps"}, scheduler.PriorityHigh)
	require.NoError(t, err)
	_, err = sched.Enqueue(scheduler.Params{MediaRef: "v.mp4", Captions: "caps"}, scheduler.PriorityNormal)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/queue/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats scheduler.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 2, stats.TotalJobs)
	assert.Equal(t, 2, stats.PendingJobs)
	assert.Equal(t, 1, stats.QueueDepthHigh)
	assert.Equal(t, 1, stats.QueueDepthNormal)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestServer(t, scheduler.Options{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/jobs", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://studio.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
