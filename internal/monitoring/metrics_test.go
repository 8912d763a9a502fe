package monitoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.FramesBuilt.Add(12)
	m.DaysProcessed.WithLabelValues("processed").Inc()
	m.DaysProcessed.WithLabelValues("skipped").Inc()
	m.DaysProcessed.WithLabelValues("skipped").Inc()

	assert.Equal(t, 12.0, testutil.ToFloat64(m.FramesBuilt))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DaysProcessed.WithLabelValues("skipped")))
}

func TestMetrics_Independent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.SensorsDropped.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SensorsDropped))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.FieldFallbacks.Inc()
	m.ObservationsRejected.WithLabelValues("spike").Add(3)

	path := filepath.Join(t.TempDir(), "airq.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "airq_field_idw_fallbacks_total 1"), out)
	assert.True(t, strings.Contains(out, `airq_observations_rejected_total{reason="spike"} 3`), out)
}
