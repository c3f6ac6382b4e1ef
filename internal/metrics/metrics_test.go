package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestObserveValidation(t *testing.T) {
	require := require.New(t)
	m := New()

	m.ObserveValidation("ok", 11, 2*time.Millisecond)
	m.ObserveValidation("ok", 5, time.Millisecond)
	m.ObserveValidation("outlier", 11, time.Millisecond)

	byOutcome := map[string]float64{}
	for _, metric := range family(t, m, "csvingest_validations_total").GetMetric() {
		byOutcome[labelValue(metric, "outcome")] = metric.GetCounter().GetValue()
	}
	require.Equal(map[string]float64{"ok": 2, "outlier": 1}, byOutcome)

	lines := family(t, m, "csvingest_lines_validated_total").GetMetric()[0]
	require.Equal(27.0, lines.GetCounter().GetValue())

	hist := family(t, m, "csvingest_validation_duration_seconds").GetMetric()[0]
	require.Equal(uint64(3), hist.GetHistogram().GetSampleCount())
}

func TestObservePersist(t *testing.T) {
	require := require.New(t)
	m := New()

	m.ObservePersist(10, time.Millisecond, nil)
	m.ObservePersist(0, time.Millisecond, errors.New("connection reset"))

	rows := family(t, m, "csvingest_rows_persisted_total").GetMetric()[0]
	require.Equal(10.0, rows.GetCounter().GetValue())

	failures := family(t, m, "csvingest_persist_failures_total").GetMetric()[0]
	require.Equal(1.0, failures.GetCounter().GetValue())
}

func TestHandler_ExposesTextFormat(t *testing.T) {
	require := require.New(t)
	m := New()
	m.ObserveBytes(512)
	m.ObserveRequest("/api/files/upload", http.StatusBadRequest, 3*time.Millisecond)
	m.ObserveRequest("", http.StatusNotFound, time.Millisecond)
	m.ObserveRateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(http.StatusOK, rec.Code)

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rec.Body)
	require.NoError(err)

	require.Equal(512.0, mfs["csvingest_upload_bytes_total"].GetMetric()[0].GetCounter().GetValue())
	require.Equal(1.0, mfs["csvingest_rate_limited_total"].GetMetric()[0].GetCounter().GetValue())

	routes := map[string]string{}
	for _, metric := range mfs["csvingest_http_requests_total"].GetMetric() {
		routes[labelValue(metric, "route")] = labelValue(metric, "code")
	}
	require.Equal(map[string]string{"/api/files/upload": "400", "unmatched": "404"}, routes)

	require.Contains(mfs, "go_goroutines")
}
