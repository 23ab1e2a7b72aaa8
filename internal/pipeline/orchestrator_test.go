package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/closereader/internal/annotation"
	"github.com/dgallion1/closereader/internal/argument"
	"github.com/dgallion1/closereader/internal/config"
	"github.com/dgallion1/closereader/internal/outbox"
	"github.com/dgallion1/closereader/internal/pathstore"
)

var errTest = errors.New("boom")

// fakeRemote records calls and fails according to fail.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	// fail is consulted before each call; a non-nil error is returned
	// instead of recording the call.
	fail func(call string) error
}

func (f *fakeRemote) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return err
		}
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeRemote) setFail(fn func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fn
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) SaveAnnotation(_ context.Context, userID string, a annotation.Annotation) error {
	return f.record("save:" + userID + ":" + a.ID + ":" + a.Content)
}

func (f *fakeRemote) DeleteAnnotation(_ context.Context, userID, _, id string) error {
	return f.record("delete:" + userID + ":" + id)
}

func (f *fakeRemote) SaveOutline(_ context.Context, userID string, _ argument.Tree) error {
	return f.record("outline:" + userID)
}

func unavailable(string) error {
	return &pathstore.RetryableError{StatusCode: 503, Message: "down"}
}

func testConfig() config.Config {
	return config.Config{
		WorkerCount:          2,
		MaxQueueSize:         20,
		SyncBurst:            1,
		JobTTL:               time.Hour,
		OutboxReplayInterval: time.Hour,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	box, err := outbox.Open(outbox.InMemoryConfig())
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { box.Close() })
	return box
}

func noBackoff(int) time.Duration { return 0 }

func waitStatus(t *testing.T, job *Job, want JobStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.Snapshot().Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s: status %s, want %s", job.ID, job.Snapshot().Status, want)
}

func ann(id, content string) annotation.Annotation {
	return annotation.Annotation{ID: id, TextID: "txt_1", AnchorStart: 0, AnchorEnd: 3, Content: content}
}

func TestSubmit_Completes(t *testing.T) {
	remote := &fakeRemote{}
	o := NewOrchestrator(testConfig(), remote, openOutbox(t), testLogger(), WithBackoff(noBackoff))
	o.Start(context.Background())
	defer o.Stop()

	job := SaveAnnotationJob("alice", ann("a1", "x"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitStatus(t, job, StatusCompleted)

	if got := remote.Calls(); len(got) != 1 || got[0] != "save:alice:a1:x" {
		t.Errorf("unexpected remote calls %v", got)
	}
	if o.GetJob(job.ID) != job {
		t.Error("expected job to be tracked")
	}
	if st := o.Stats().ByOp[OpSaveAnnotation]; st.Calls != 1 || st.Transient != 0 {
		t.Errorf("expected one clean save call, got %+v", o.Stats())
	}
}

func TestSubmit_RetriesTransientErrors(t *testing.T) {
	failures := 2
	remote := &fakeRemote{}
	remote.setFail(func(string) error {
		if failures > 0 {
			failures--
			return &pathstore.RetryableError{StatusCode: 429}
		}
		return nil
	})
	o := NewOrchestrator(testConfig(), remote, openOutbox(t), testLogger(), WithBackoff(noBackoff))
	o.Start(context.Background())
	defer o.Stop()

	job := SaveOutlineJob("alice", argument.NewTree())
	o.Submit(job)
	waitStatus(t, job, StatusCompleted)
	if snap := job.Snapshot(); snap.Attempts != 3 || snap.Error != "" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestSubmit_PermanentErrorFails(t *testing.T) {
	remote := &fakeRemote{}
	remote.setFail(func(string) error { return errTest })
	box := openOutbox(t)
	o := NewOrchestrator(testConfig(), remote, box, testLogger(), WithBackoff(noBackoff))
	o.Start(context.Background())
	defer o.Stop()

	job := DeleteAnnotationJob("alice", "txt_1", "a1")
	o.Submit(job)
	waitStatus(t, job, StatusFailed)
	if snap := job.Snapshot(); snap.Attempts != 1 || snap.Error != errTest.Error() {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if n, _ := box.Len(); n != 0 {
		t.Errorf("permanent failures must not be parked, outbox has %d", n)
	}
}

func TestExhaustedRetries_DeferThenReplayInOrder(t *testing.T) {
	remote := &fakeRemote{}
	remote.setFail(unavailable)
	box := openOutbox(t)
	o := NewOrchestrator(testConfig(), remote, box, testLogger(), WithBackoff(noBackoff))
	o.Start(context.Background())
	defer o.Stop()

	save := SaveAnnotationJob("alice", ann("a1", "draft"))
	o.Submit(save)
	waitStatus(t, save, StatusDeferred)
	if snap := save.Snapshot(); snap.Attempts != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, snap.Attempts)
	}

	// With the outbox non-empty, later jobs queue behind it even once the
	// remote is back.
	remote.setFail(nil)
	del := DeleteAnnotationJob("alice", "txt_1", "a1")
	o.Submit(del)
	waitStatus(t, del, StatusDeferred)
	if len(remote.Calls()) != 0 {
		t.Fatalf("nothing should reach the remote yet, got %v", remote.Calls())
	}
	if o.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", o.Pending())
	}

	n, err := o.Replay(context.Background())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 delivered, got %d", n)
	}
	want := []string{"save:alice:a1:draft", "delete:alice:a1"}
	got := remote.Calls()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}
	waitStatus(t, save, StatusCompleted)
	waitStatus(t, del, StatusCompleted)
	if o.Pending() != 0 {
		t.Errorf("expected empty outbox, got %d", o.Pending())
	}
}

func TestReplay_StopsAtFirstTransientFailure(t *testing.T) {
	remote := &fakeRemote{}
	box := openOutbox(t)
	o := NewOrchestrator(testConfig(), remote, box, testLogger(), WithBackoff(noBackoff))

	first := SaveAnnotationJob("alice", ann("a1", "one"))
	second := SaveAnnotationJob("alice", ann("a2", "two"))
	o.deferJob(first, nil)
	o.deferJob(second, nil)

	remote.setFail(unavailable)
	n, err := o.Replay(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected nothing delivered, got %d, %v", n, err)
	}
	if o.Pending() != 2 {
		t.Fatalf("expected both still pending, got %d", o.Pending())
	}

	remote.setFail(func(call string) error {
		if call == "save:alice:a1:one" {
			return errTest
		}
		return nil
	})
	n, err = o.Replay(context.Background())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 1 {
		t.Errorf("expected only the second job delivered, got %d", n)
	}
	if first.Snapshot().Status != StatusFailed {
		t.Errorf("expected poison entry dropped as failed, got %s", first.Snapshot().Status)
	}
	if o.Pending() != 0 {
		t.Errorf("expected empty outbox, got %d", o.Pending())
	}
}

func TestReplay_RecoversEntriesAfterRestart(t *testing.T) {
	remote := &fakeRemote{}
	box := openOutbox(t)

	o1 := NewOrchestrator(testConfig(), remote, box, testLogger())
	job := SaveOutlineJob("carol", argument.NewTree())
	o1.deferJob(job, nil)

	o2 := NewOrchestrator(testConfig(), remote, box, testLogger())
	if o2.Pending() != 1 {
		t.Fatalf("expected the new orchestrator to count 1 pending, got %d", o2.Pending())
	}
	n, err := o2.Replay(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected 1 delivered, got %d, %v", n, err)
	}
	replayed := o2.GetJob(job.ID)
	if replayed == nil || replayed.Snapshot().Status != StatusCompleted {
		t.Errorf("expected replayed job tracked as completed, got %+v", replayed)
	}
}

func TestNoOutbox_ExhaustedRetriesFail(t *testing.T) {
	remote := &fakeRemote{}
	remote.setFail(unavailable)
	o := NewOrchestrator(testConfig(), remote, nil, testLogger(), WithBackoff(noBackoff))
	o.Start(context.Background())
	defer o.Stop()

	job := SaveOutlineJob("alice", argument.NewTree())
	o.Submit(job)
	waitStatus(t, job, StatusFailed)
}

func TestSubmit_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 1

	box := openOutbox(t)
	o := NewOrchestrator(cfg, &fakeRemote{}, box, testLogger())
	// Workers not started: the single queue slot fills up.
	first := SaveOutlineJob("a", argument.NewTree())
	second := SaveOutlineJob("b", argument.NewTree())
	if err := o.Submit(first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := o.Submit(second); err != nil {
		t.Fatalf("second submit should be deferred, got %v", err)
	}
	if second.Snapshot().Status != StatusDeferred {
		t.Errorf("expected deferred, got %s", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}

	noBox := NewOrchestrator(cfg, &fakeRemote{}, nil, testLogger())
	noBox.Submit(SaveOutlineJob("a", argument.NewTree()))
	err := noBox.Submit(SaveOutlineJob("b", argument.NewTree()))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestStop_ParksQueuedJobs(t *testing.T) {
	box := openOutbox(t)
	o := NewOrchestrator(testConfig(), &fakeRemote{}, box, testLogger())
	job := SaveAnnotationJob("alice", ann("a1", "x"))
	o.Submit(job)
	o.Stop()

	if job.Snapshot().Status != StatusDeferred {
		t.Errorf("expected deferred on shutdown, got %s", job.Snapshot().Status)
	}
	if n, _ := box.Len(); n != 1 {
		t.Errorf("expected 1 parked job, got %d", n)
	}
}

func TestShard_SameTargetSameQueue(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 8
	o := NewOrchestrator(cfg, &fakeRemote{}, nil, testLogger())
	save := SaveAnnotationJob("alice", ann("a1", "x"))
	del := DeleteAnnotationJob("alice", "txt_1", "a1")
	if o.shard(save.Task.Target()) != o.shard(del.Task.Target()) {
		t.Error("jobs for one annotation must share a worker")
	}
}
