package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/closereader/internal/annotation"
	"github.com/dgallion1/closereader/internal/argument"
	"github.com/dgallion1/closereader/internal/metrics"
)

// Remote is the persistence sync jobs write to. *pathstore.Client
// implements it.
type Remote interface {
	SaveAnnotation(ctx context.Context, userID string, a annotation.Annotation) error
	DeleteAnnotation(ctx context.Context, userID, textID, annotationID string) error
	SaveOutline(ctx context.Context, userID string, t argument.Tree) error
}

// Worker runs sync jobs against the remote.
type Worker struct {
	remote  Remote
	limiter *Limiter
	stats   *SyncStats
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func NewWorker(remote Remote, limiter *Limiter, stats *SyncStats, log *slog.Logger) *Worker {
	return &Worker{
		remote:  remote,
		limiter: limiter,
		stats:   stats,
		log:     log,
		backoff: Backoff,
	}
}

// Process runs job, retrying transient failures up to MaxRetries times.
// It returns the last error; a retryable error means the job should be
// deferred rather than dropped.
func (w *Worker) Process(ctx context.Context, job *Job) error {
	log := w.log.With("job_id", job.ID, "op", job.Task.Op, "user_id", job.Task.UserID)
	job.SetStatus(StatusSyncing)

	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.Attempt(ctx, job)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		if attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable sync error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	job.SetError(lastErr)
	return lastErr
}

// Attempt makes exactly one remote call for job.
func (w *Worker) Attempt(ctx context.Context, job *Job) error {
	task := job.Task
	if err := w.limiter.Wait(ctx, task.UserID); err != nil {
		return err
	}
	job.IncrAttempts()

	start := time.Now()
	err := w.call(ctx, task)
	elapsed := time.Since(start)

	w.stats.Record(task.Op, elapsed, err)
	metrics.SyncDuration.WithLabelValues(string(task.Op)).Observe(elapsed.Seconds())
	return err
}

func (w *Worker) call(ctx context.Context, task Task) error {
	switch task.Op {
	case OpSaveAnnotation:
		if task.Annotation == nil {
			return fmt.Errorf("%s: missing annotation", task.Op)
		}
		return w.remote.SaveAnnotation(ctx, task.UserID, *task.Annotation)
	case OpDeleteAnnotation:
		return w.remote.DeleteAnnotation(ctx, task.UserID, task.TextID, task.AnnotationID)
	case OpSaveOutline:
		if task.Outline == nil {
			return fmt.Errorf("%s: missing outline", task.Op)
		}
		return w.remote.SaveOutline(ctx, task.UserID, *task.Outline)
	default:
		return fmt.Errorf("unknown sync op %q", task.Op)
	}
}
