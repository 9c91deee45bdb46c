// Package metrics keeps small time series (counters and gauges) in an
// embedded tstorage database under the application workdir.
package metrics

import (
	"errors"
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

const (
	MetricsOrdersCreated = "orders_created"
	MetricsCartAdd       = "cart_add"
	MetricsSigninOk      = "signin_ok"
	MetricsSigninFail    = "signin_fail"
	MetricsSystemCPU     = "system_cpuuse"
	MetricsSystemMem     = "system_memuse"
	MetricsProcessCPU    = "boutique_cpuuse"
	MetricsProcessMem    = "boutique_memuse"
)

// Point is a single sample returned by Query.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

var (
	storage  tstorage.Storage
	mu       sync.RWMutex
	counters = map[string]int64{}
	countMu  sync.Mutex
)

// InitMetrics opens the metrics storage in <workdir>/data/metrics.
func InitMetrics(workdir string) error {
	st, err := tstorage.NewStorage(
		tstorage.WithDataPath(path.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return err
	}
	mu.Lock()
	storage = st
	mu.Unlock()
	return nil
}

// InitMemoryMetrics opens a storage without a data path, used by tests and the CLI.
func InitMemoryMetrics() error {
	st, err := tstorage.NewStorage(tstorage.WithTimestampPrecision(tstorage.Seconds))
	if err != nil {
		return err
	}
	mu.Lock()
	storage = st
	mu.Unlock()
	return nil
}

func insert(name string, value float64) {
	mu.RLock()
	st := storage
	mu.RUnlock()
	if st == nil {
		return
	}
	_ = st.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
}

// SetGauge records the current value of a gauge.
func SetGauge(name string, value int64) {
	insert(name, float64(value))
}

// Incr bumps a monotonically increasing counter and records its new value.
func Incr(name string) int64 {
	countMu.Lock()
	counters[name]++
	v := counters[name]
	countMu.Unlock()
	insert(name, float64(v))
	return v
}

// Counter returns the in-process value of a counter.
func Counter(name string) int64 {
	countMu.Lock()
	defer countMu.Unlock()
	return counters[name]
}

// Query returns the samples of name between from and to.
func Query(name string, from, to time.Time) ([]Point, error) {
	mu.RLock()
	st := storage
	mu.RUnlock()
	if st == nil {
		return []Point{}, nil
	}
	points, err := st.Select(name, nil, from.Unix(), to.Unix()+1)
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}
	result := make([]Point, 0, len(points))
	for _, p := range points {
		result = append(result, Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	return result, nil
}

// Close flushes and closes the storage.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
