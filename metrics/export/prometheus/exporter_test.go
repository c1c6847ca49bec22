package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot authflow.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authflow.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters:   map[authflow.MetricID]uint64{},
			Histograms: map[authflow.MetricID][]uint64{},
		},
	})
	assert.Empty(t, exp.Render())

	var nilExp *Exporter
	assert.Empty(t, nilExp.Render())
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricSignInSuccess: 7,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricSignInLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	assert.Contains(t, out, "authflow_signin_success_total 7")
	assert.Contains(t, out, "authflow_signin_failure_total 0")
	assert.Contains(t, out, `authflow_signin_latency_seconds_bucket{le="0.005"} 1`)
	assert.Contains(t, out, `authflow_signin_latency_seconds_bucket{le="+Inf"} 36`)
	assert.Contains(t, out, "authflow_signin_latency_seconds_count 36")
	assert.Contains(t, out, "authflow_audit_dropped_total 2")
}

func TestRenderOmitsHistogramWhenLatencyDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters:   map[authflow.MetricID]uint64{authflow.MetricSignOut: 1},
			Histograms: map[authflow.MetricID][]uint64{},
		},
	})
	assert.NotContains(t, exp.Render(), "authflow_signin_latency_seconds")
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	cfg := authflow.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := authflow.New().WithConfig(cfg).WithMetricsEnabled(true).Build()
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.SignUp(context.Background(), authflow.SignUpRequest{
		Email:       "metrics@test.com",
		Password:    "Secret123!",
		AcceptTerms: true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewExporter(engine).Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "authflow_signup_success_total 1")
	assert.Contains(t, rec.Body.String(), "authflow_session_created_total 1")
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporter(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricSignInSuccess:  1000,
				authflow.MetricSignInFailure:  40,
				authflow.MetricRefreshSuccess: 800,
				authflow.MetricSessionCreated: 800,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricSignInLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
