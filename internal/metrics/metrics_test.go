package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersExported(t *testing.T) {
	before := testutil.ToFloat64(GateSubmissions.WithLabelValues("accepted"))
	GateSubmissions.WithLabelValues("accepted").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(GateSubmissions.WithLabelValues("accepted")))

	SyncJobs.WithLabelValues("save_annotation", "completed").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{"closereader_gate_submissions_total", "closereader_sync_jobs_total"} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
