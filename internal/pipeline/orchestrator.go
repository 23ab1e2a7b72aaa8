package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgallion1/closereader/internal/config"
	"github.com/dgallion1/closereader/internal/metrics"
	"github.com/dgallion1/closereader/internal/outbox"
)

// ErrQueueFull is returned by Submit when a job could neither be queued
// nor deferred.
var ErrQueueFull = errors.New("sync queue is full")

const replayBatch = 100

// Orchestrator runs remote sync jobs in the background. Jobs that write the
// same remote record always land on the same worker, so they reach the
// remote in submission order. Jobs that keep failing are parked in the
// outbox and replayed oldest first.
type Orchestrator struct {
	jobs    *JobStore
	queues  []chan *Job
	remote  Remote
	outbox  *outbox.Outbox
	limiter *Limiter
	stats   *SyncStats
	log     *slog.Logger
	cfg     config.Config
	backoff func(int) time.Duration

	// deferred counts outbox entries. While it is non-zero new jobs queue
	// behind the outbox instead of overtaking it.
	deferred atomic.Int64
	replayMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBackoff overrides the retry delay schedule.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(o *Orchestrator) { o.backoff = fn }
}

// NewOrchestrator creates the pipeline. box may be nil, in which case jobs
// that exhaust their retries fail.
func NewOrchestrator(cfg config.Config, remote Remote, box *outbox.Outbox, log *slog.Logger, opts ...Option) *Orchestrator {
	workers := max(cfg.WorkerCount, 1)
	perQueue := max(cfg.MaxQueueSize/workers, 1)
	o := &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queues:  make([]chan *Job, workers),
		remote:  remote,
		outbox:  box,
		limiter: NewLimiter(cfg.SyncRate, cfg.SyncBurst),
		stats:   NewSyncStats(),
		log:     log,
		cfg:     cfg,
		backoff: Backoff,
	}
	for i := range o.queues {
		o.queues[i] = make(chan *Job, perQueue)
	}
	for _, opt := range opts {
		opt(o)
	}
	if box != nil {
		if n, err := box.Len(); err != nil {
			log.Error("outbox count failed", "error", err)
		} else {
			o.deferred.Store(int64(n))
		}
	}
	return o
}

func (o *Orchestrator) newWorker() *Worker {
	w := NewWorker(o.remote, o.limiter, o.stats, o.log)
	w.backoff = o.backoff
	return w
}

// Start launches worker goroutines and the maintenance loops.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for _, q := range o.queues {
		o.wg.Add(1)
		go func(q chan *Job) {
			defer o.wg.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job := <-q:
					metrics.SyncQueueDepth.Set(float64(o.QueueDepth()))
					o.run(workerCtx, w, job)
				}
			}
		}(q)
	}

	// Job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()

	if o.outbox == nil {
		return
	}

	// Outbox replay: right away if jobs survived a restart, then on every
	// tick.
	leftover := o.deferred.Load() > 0
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if leftover {
			o.replayAndLog(workerCtx)
		}
		ticker := time.NewTicker(o.cfg.OutboxReplayInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.replayAndLog(workerCtx)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.outbox.RunGC(workerCtx)
	}()
}

// Stop shuts the pipeline down. Jobs still waiting in a queue are parked
// in the outbox so they survive the restart.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	for _, q := range o.queues {
	drain:
		for {
			select {
			case job := <-q:
				o.deferJob(job, errors.New("shutdown"))
			default:
				break drain
			}
		}
	}
}

// Submit queues a job. It never blocks: when the job's queue is full the
// job goes straight to the outbox.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	q := o.queues[o.shard(job.Task.Target())]
	select {
	case q <- job:
		metrics.SyncQueueDepth.Set(float64(o.QueueDepth()))
		return nil
	default:
	}
	if o.deferJob(job, ErrQueueFull) {
		return nil
	}
	return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
}

func (o *Orchestrator) shard(target string) int {
	h := fnv.New32a()
	h.Write([]byte(target))
	return int(h.Sum32() % uint32(len(o.queues)))
}

func (o *Orchestrator) run(ctx context.Context, w *Worker, job *Job) {
	if o.deferred.Load() > 0 {
		o.deferJob(job, nil)
		return
	}
	err := w.Process(ctx, job)
	switch {
	case err == nil:
		o.finish(job, StatusCompleted)
	case ctx.Err() != nil || IsRetryable(err):
		o.deferJob(job, err)
	default:
		o.log.Error("sync failed", "job_id", job.ID, "op", job.Task.Op, "error", err)
		o.finish(job, StatusFailed)
	}
}

func (o *Orchestrator) finish(job *Job, status JobStatus) {
	job.SetStatus(status)
	metrics.SyncJobs.WithLabelValues(string(job.Task.Op), string(status)).Inc()
}

// deferJob parks job in the outbox. It reports false, marking the job
// failed, when there is no outbox or the write fails.
func (o *Orchestrator) deferJob(job *Job, cause error) bool {
	o.jobs.Put(job)
	if cause != nil {
		job.SetError(cause)
	}
	if o.outbox == nil {
		o.finish(job, StatusFailed)
		return false
	}
	payload, err := json.Marshal(job.Task)
	if err == nil {
		err = o.outbox.Put(job.ID, payload)
	}
	if err != nil {
		o.log.Error("outbox write failed, dropping sync job", "job_id", job.ID, "error", err)
		job.SetError(err)
		o.finish(job, StatusFailed)
		return false
	}
	o.deferred.Add(1)
	o.finish(job, StatusDeferred)
	return true
}

func (o *Orchestrator) replayAndLog(ctx context.Context) {
	n, err := o.Replay(ctx)
	if err != nil {
		o.log.Error("outbox replay failed", "error", err)
	}
	if n > 0 {
		o.log.Info("outbox replayed", "delivered", n, "pending", o.deferred.Load())
	}
}

// Replay delivers parked jobs oldest first, one attempt each. It stops at
// the first transient failure so later jobs never overtake earlier ones.
// It returns the number of jobs delivered.
func (o *Orchestrator) Replay(ctx context.Context) (int, error) {
	if o.outbox == nil {
		return 0, nil
	}
	o.replayMu.Lock()
	defer o.replayMu.Unlock()

	w := o.newWorker()
	delivered := 0
	for {
		entries, err := o.outbox.Entries(replayBatch)
		if err != nil {
			return delivered, err
		}
		if len(entries) == 0 {
			return delivered, nil
		}
		for _, e := range entries {
			var task Task
			if err := json.Unmarshal(e.Payload, &task); err != nil {
				o.log.Error("dropping undecodable outbox entry", "job_id", e.ID, "error", err)
				o.drop(e.ID)
				continue
			}
			job := o.jobs.Get(e.ID)
			if job == nil {
				job = &Job{ID: e.ID, Task: task, Status: StatusDeferred, CreatedAt: time.Now()}
				o.jobs.Put(job)
			}
			job.SetStatus(StatusSyncing)
			err := w.Attempt(ctx, job)
			job.SetError(err)
			if err != nil && (ctx.Err() != nil || IsRetryable(err)) {
				job.SetStatus(StatusDeferred)
				return delivered, nil
			}
			if !o.drop(e.ID) {
				return delivered, fmt.Errorf("outbox delete %s failed", e.ID)
			}
			if err != nil {
				o.log.Error("deferred sync failed permanently", "job_id", e.ID, "op", task.Op, "error", err)
				o.finish(job, StatusFailed)
				continue
			}
			o.finish(job, StatusCompleted)
			metrics.OutboxReplayed.Inc()
			delivered++
		}
	}
}

func (o *Orchestrator) drop(id string) bool {
	if err := o.outbox.Delete(id); err != nil {
		o.log.Error("outbox delete failed", "job_id", id, "error", err)
		return false
	}
	o.deferred.Add(-1)
	return true
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns the number of jobs waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	n := 0
	for _, q := range o.queues {
		n += len(q)
	}
	return n
}

// Pending returns the number of jobs parked in the outbox.
func (o *Orchestrator) Pending() int {
	return int(o.deferred.Load())
}

// Stats summarizes recent remote calls, overall and per op.
func (o *Orchestrator) Stats() SyncReport {
	return o.stats.Snapshot()
}
