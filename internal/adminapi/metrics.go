package adminapi

import (
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/metrics"
)

var knownMetrics = map[string]bool{
	metrics.MetricsOrdersCreated: true,
	metrics.MetricsCartAdd:       true,
	metrics.MetricsSigninOk:      true,
	metrics.MetricsSigninFail:    true,
	metrics.MetricsSystemCPU:     true,
	metrics.MetricsSystemMem:     true,
	metrics.MetricsProcessCPU:    true,
	metrics.MetricsProcessMem:    true,
}

func registerMetricsRoutes() {
	webserver.ApiGET("/metrics/:name", getMetric)
}

// getMetric returns the samples of a metric, the last 24 hours by default.
func getMetric(c echo.Context) error {
	name := c.Param("name")
	if !knownMetrics[name] {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Unknown metric", nil)
	}
	to := time.Now()
	from := to.Add(-24 * time.Hour)
	if v := c.QueryParam("from"); v != "" {
		t, err := dateparse.ParseLocal(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid from date", err.Error())
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := dateparse.ParseLocal(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid to date", err.Error())
		}
		to = t
	}
	points, err := metrics.Query(name, from, to)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metric", err.Error())
	}
	return ok(c, map[string]interface{}{
		"name":    name,
		"counter": metrics.Counter(name),
		"points":  points,
	})
}
