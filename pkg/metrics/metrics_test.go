package metrics_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/boutiqueapp/boutique/pkg/metrics"
)

func TestCounterAndQuery(t *testing.T) {
	c := qt.New(t)

	c.Assert(metrics.InitMemoryMetrics(), qt.IsNil)
	defer metrics.Close()

	before := metrics.Counter(metrics.MetricsCartAdd)
	metrics.Incr(metrics.MetricsCartAdd)
	metrics.Incr(metrics.MetricsCartAdd)
	c.Assert(metrics.Counter(metrics.MetricsCartAdd), qt.Equals, before+2)

	metrics.SetGauge(metrics.MetricsSystemCPU, 1234)
	points, err := metrics.Query(metrics.MetricsSystemCPU, time.Now().Add(-time.Minute), time.Now())
	c.Assert(err, qt.IsNil)
	c.Assert(points, qt.HasLen, 1)
	c.Assert(points[0].Value, qt.Equals, float64(1234))
}

func TestQueryUnknownMetric(t *testing.T) {
	c := qt.New(t)

	c.Assert(metrics.InitMemoryMetrics(), qt.IsNil)
	defer metrics.Close()

	points, err := metrics.Query("nope", time.Now().Add(-time.Hour), time.Now())
	c.Assert(err, qt.IsNil)
	c.Assert(points, qt.HasLen, 0)
}
