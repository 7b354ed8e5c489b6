package jobs

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"decisionjar/internal/metrics"
)

// Handler delivers one job. Returning an error schedules a retry unless the
// error is wrapped with Permanent.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

type HandlerFunc func(ctx context.Context, job *Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *Job) error { return f(ctx, job) }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return permanentError{err: err} }

const (
	pollInterval = 800 * time.Millisecond
	maxBackoff   = 600 // seconds
)

type Worker struct {
	ID       string
	Repo     *Repo
	Handlers map[string]Handler
	Log      *slog.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.log().Error("worker claim error", "worker", w.ID, "error", err)
			}
		}
	}
}

// RunOnce claims and handles at most one due job. It reports whether a job was handled.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.Repo.Claim(ctx, w.ID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	// the outcome is recorded even when shutdown cancels ctx mid-delivery,
	// otherwise a delivered job stays RUNNING and is pushed again
	markCtx := context.WithoutCancel(ctx)

	h, ok := w.Handlers[job.Type]
	if !ok {
		metrics.JobsTotal.WithLabelValues(job.Type, "unknown").Inc()
		w.mark(job, "failed", w.Repo.MarkFailed(markCtx, job.ID, "unknown job type"))
		return
	}

	err := h.Handle(ctx, job)
	var perm permanentError
	switch {
	case err == nil:
		metrics.JobsTotal.WithLabelValues(job.Type, "done").Inc()
		w.mark(job, "done", w.Repo.MarkDone(markCtx, job.ID))
	case errors.As(err, &perm):
		metrics.JobsTotal.WithLabelValues(job.Type, "failed").Inc()
		w.log().Warn("job failed permanently", "job_id", job.ID, "type", job.Type, "error", err)
		w.mark(job, "failed", w.Repo.MarkFailed(markCtx, job.ID, err.Error()))
	default:
		w.log().Warn("job failed, will retry", "job_id", job.ID, "type", job.Type, "attempt", job.Attempts+1, "error", err)
		w.retry(markCtx, job, err.Error())
	}
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		metrics.JobsTotal.WithLabelValues(job.Type, "failed").Inc()
		w.mark(job, "failed", w.Repo.MarkFailed(ctx, job.ID, errMsg))
		return
	}
	metrics.JobsTotal.WithLabelValues(job.Type, "retry").Inc()
	w.mark(job, "retry", w.Repo.RetryLater(ctx, job.ID, attempts, time.Now().Add(Backoff(attempts)), errMsg))
}

func (w *Worker) mark(job *Job, outcome string, err error) {
	if err != nil {
		w.log().Error("job outcome not recorded", "job_id", job.ID, "type", job.Type, "outcome", outcome, "error", err)
	}
}

// Backoff is 2^attempts seconds, capped at ten minutes.
func Backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), maxBackoff)
	return time.Duration(sec) * time.Second
}

func (w *Worker) log() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}
