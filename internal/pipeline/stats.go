package pipeline

import (
	"slices"
	"sync"
	"time"
)

// latencyWindow is how many recent calls of each op feed the summary.
const latencyWindow = 512

type outcome uint8

const (
	outcomeOK outcome = iota
	outcomeTransient
	outcomePermanent
)

type call struct {
	ms      int64
	outcome outcome
}

// opCalls holds the most recent calls of one op in a ring.
type opCalls struct {
	calls     []call
	next      int
	lastErr   string
	lastErrAt time.Time
}

func (r *opCalls) add(c call) {
	if len(r.calls) < latencyWindow {
		r.calls = append(r.calls, c)
		return
	}
	r.calls[r.next] = c
	r.next = (r.next + 1) % latencyWindow
}

// OpStats summarizes recent remote calls. Transient failures are the ones
// the worker retries or parks in the outbox; permanent ones are dropped.
type OpStats struct {
	Calls       int        `json:"calls"`
	Transient   int        `json:"transient_failures"`
	Permanent   int        `json:"permanent_failures"`
	P50Ms       float64    `json:"p50_ms"`
	P95Ms       float64    `json:"p95_ms"`
	MaxMs       int64      `json:"max_ms"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// SyncReport is the remote call summary across all ops and per op.
type SyncReport struct {
	Total OpStats        `json:"total"`
	ByOp  map[Op]OpStats `json:"by_op"`
}

// SyncStats keeps the last latencyWindow remote calls of every op.
type SyncStats struct {
	mu  sync.Mutex
	ops map[Op]*opCalls
	now func() time.Time
}

func NewSyncStats() *SyncStats {
	return &SyncStats{ops: make(map[Op]*opCalls), now: time.Now}
}

// Record adds one remote call of op.
func (s *SyncStats) Record(op Op, d time.Duration, err error) {
	c := call{ms: max(d.Milliseconds(), 0)}
	switch {
	case err == nil:
	case IsRetryable(err):
		c.outcome = outcomeTransient
	default:
		c.outcome = outcomePermanent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ops[op]
	if !ok {
		r = &opCalls{calls: make([]call, 0, 64)}
		s.ops[op] = r
	}
	r.add(c)
	if err != nil {
		r.lastErr = err.Error()
		r.lastErrAt = s.now()
	}
}

func (s *SyncStats) Snapshot() SyncReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := SyncReport{ByOp: make(map[Op]OpStats, len(s.ops))}
	var all []call
	var last *opCalls
	for op, r := range s.ops {
		st := summarize(r.calls)
		setLastError(&st, r)
		report.ByOp[op] = st
		all = append(all, r.calls...)
		if r.lastErr != "" && (last == nil || r.lastErrAt.After(last.lastErrAt)) {
			last = r
		}
	}
	report.Total = summarize(all)
	if last != nil {
		setLastError(&report.Total, last)
	}
	return report
}

func setLastError(st *OpStats, r *opCalls) {
	if r.lastErr == "" {
		return
	}
	at := r.lastErrAt
	st.LastError = r.lastErr
	st.LastErrorAt = &at
}

func summarize(calls []call) OpStats {
	if len(calls) == 0 {
		return OpStats{}
	}
	st := OpStats{Calls: len(calls)}
	values := make([]int64, 0, len(calls))
	for _, c := range calls {
		values = append(values, c.ms)
		switch c.outcome {
		case outcomeTransient:
			st.Transient++
		case outcomePermanent:
			st.Permanent++
		}
	}
	slices.Sort(values)
	st.P50Ms = percentile(values, 50)
	st.P95Ms = percentile(values, 95)
	st.MaxMs = values[len(values)-1]
	return st
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + ((hi - lo) * weight)
}
