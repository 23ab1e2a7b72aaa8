package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/closereader/internal/pathstore"
)

func TestSyncStatsSplitsByOp(t *testing.T) {
	stats := NewSyncStats()
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(OpSaveAnnotation, time.Duration(ms)*time.Millisecond, nil)
	}
	stats.Record(OpSaveOutline, 50*time.Millisecond, &pathstore.RetryableError{StatusCode: 503})
	stats.Record(OpSaveOutline, 70*time.Millisecond, errors.New("status 400: bad tree"))

	report := stats.Snapshot()
	save := report.ByOp[OpSaveAnnotation]
	if save.Calls != 5 || save.Transient != 0 || save.Permanent != 0 {
		t.Fatalf("unexpected save stats %+v", save)
	}
	if save.P50Ms != 300 || save.P95Ms != 480 || save.MaxMs != 500 {
		t.Fatalf("expected p50=300 p95=480 max=500, got %+v", save)
	}
	if save.LastError != "" || save.LastErrorAt != nil {
		t.Fatalf("save never failed, got %+v", save)
	}

	outline := report.ByOp[OpSaveOutline]
	if outline.Calls != 2 || outline.Transient != 1 || outline.Permanent != 1 {
		t.Fatalf("unexpected outline stats %+v", outline)
	}
	if outline.LastError != "status 400: bad tree" {
		t.Fatalf("expected last outline error, got %q", outline.LastError)
	}

	if report.Total.Calls != 7 || report.Total.Transient != 1 || report.Total.Permanent != 1 {
		t.Fatalf("unexpected totals %+v", report.Total)
	}
	if report.Total.MaxMs != 500 {
		t.Fatalf("expected total max=500, got %d", report.Total.MaxMs)
	}
	if _, ok := report.ByOp[OpDeleteAnnotation]; ok {
		t.Fatal("ops without calls should not be reported")
	}
}

func TestSyncStatsLatestErrorWins(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	stats := NewSyncStats()
	stats.now = func() time.Time { return now }

	stats.Record(OpSaveOutline, time.Millisecond, errors.New("older"))
	now = now.Add(time.Minute)
	stats.Record(OpDeleteAnnotation, time.Millisecond, errors.New("newer"))

	total := stats.Snapshot().Total
	if total.LastError != "newer" || total.LastErrorAt == nil || !total.LastErrorAt.Equal(now) {
		t.Fatalf("expected the newest error, got %+v", total)
	}
}

func TestSyncStatsWindowKeepsRecentCalls(t *testing.T) {
	stats := NewSyncStats()
	for range latencyWindow {
		stats.Record(OpSaveAnnotation, time.Second, nil)
	}
	for range latencyWindow {
		stats.Record(OpSaveAnnotation, 10*time.Millisecond, nil)
	}

	save := stats.Snapshot().ByOp[OpSaveAnnotation]
	if save.Calls != latencyWindow {
		t.Fatalf("expected %d calls in window, got %d", latencyWindow, save.Calls)
	}
	if save.MaxMs != 10 {
		t.Fatalf("old samples should have rotated out, max=%d", save.MaxMs)
	}
}

func TestSyncStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewSyncStats()
	stats.Record(OpSaveAnnotation, -5*time.Millisecond, nil)
	if st := stats.Snapshot().Total; st.MaxMs != 0 || st.Calls != 1 {
		t.Fatalf("expected clamped 0ms sample, got %+v", st)
	}
}

func TestSyncStatsEmpty(t *testing.T) {
	report := NewSyncStats().Snapshot()
	if report.Total != (OpStats{}) || len(report.ByOp) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
