package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/closereader/internal/annotation"
	"github.com/dgallion1/closereader/internal/argument"
)

// Op is the remote operation a sync job performs.
type Op string

const (
	OpSaveAnnotation   Op = "save_annotation"
	OpDeleteAnnotation Op = "delete_annotation"
	OpSaveOutline      Op = "save_outline"
)

// JobStatus represents the state of a sync job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusSyncing   JobStatus = "syncing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusDeferred  JobStatus = "deferred" // parked in the outbox
)

// Task is the persisted part of a job: everything needed to run it again
// after a restart.
type Task struct {
	Op           Op                     `json:"op"`
	UserID       string                 `json:"user_id"`
	TextID       string                 `json:"text_id,omitempty"`
	AnnotationID string                 `json:"annotation_id,omitempty"`
	Annotation   *annotation.Annotation `json:"annotation,omitempty"`
	Outline      *argument.Tree         `json:"outline,omitempty"`
}

// Target identifies the remote record a task writes. Tasks with the same
// target must reach the remote in submission order.
func (t Task) Target() string {
	if t.Op == OpSaveOutline {
		return t.UserID + "/outline"
	}
	return t.UserID + "/" + t.TextID + "/" + t.AnnotationID
}

// Job tracks the state of a single remote sync.
type Job struct {
	mu sync.Mutex

	ID   string `json:"job_id"`
	Task Task   `json:"task"`

	Status   JobStatus `json:"status"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newJob(task Task) *Job {
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		Task:      task,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SaveAnnotationJob creates a job that upserts a.
func SaveAnnotationJob(userID string, a annotation.Annotation) *Job {
	return newJob(Task{
		Op:           OpSaveAnnotation,
		UserID:       userID,
		TextID:       a.TextID,
		AnnotationID: a.ID,
		Annotation:   &a,
	})
}

// DeleteAnnotationJob creates a job that removes an annotation.
func DeleteAnnotationJob(userID, textID, annotationID string) *Job {
	return newJob(Task{
		Op:           OpDeleteAnnotation,
		UserID:       userID,
		TextID:       textID,
		AnnotationID: annotationID,
	})
}

// SaveOutlineJob creates a job that overwrites the user's outline.
func SaveOutlineJob(userID string, t argument.Tree) *Job {
	return newJob(Task{
		Op:      OpSaveOutline,
		UserID:  userID,
		Outline: &t,
	})
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs older than the TTL. Queued and deferred
// jobs are kept.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status != StatusCompleted && snap.Status != StatusFailed {
			continue
		}
		if now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// IncrAttempts records one remote attempt.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempts++
	j.UpdatedAt = time.Now()
}

// SetError records the last error.
func (j *Job) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err == nil {
		j.Error = ""
	} else {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	Op           Op        `json:"op"`
	UserID       string    `json:"user_id"`
	TextID       string    `json:"text_id,omitempty"`
	AnnotationID string    `json:"annotation_id,omitempty"`
	Status       JobStatus `json:"status"`
	Attempts     int       `json:"attempts"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:           j.ID,
		Op:           j.Task.Op,
		UserID:       j.Task.UserID,
		TextID:       j.Task.TextID,
		AnnotationID: j.Task.AnnotationID,
		Status:       j.Status,
		Attempts:     j.Attempts,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}
