package polar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsStartKey = "start_time"

// Metrics summarises calls to one endpoint.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector records request counts and latencies per endpoint, both as
// Prometheus series and as in-process snapshots.
type MetricsCollector struct {
	mu       sync.Mutex
	metrics  map[string]*Metrics
	onChange func(endpoint string, metrics Metrics)

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsCollector registers the client metrics with reg. A nil reg uses a
// private registry, so the collector can be created more than once.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)

	return &MetricsCollector{
		metrics: make(map[string]*Metrics),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polar_client_requests_total",
				Help: "Total number of Polar API requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polar_client_request_duration_seconds",
				Help:    "Polar API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// SetOnChange sets a callback invoked after every recorded response.
func (m *MetricsCollector) SetOnChange(fn func(endpoint string, metrics Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot for an endpoint ("GET /v1/products/:id"), or
// nil when nothing was recorded.
func (m *MetricsCollector) GetMetrics(endpoint string) *Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if metrics, ok := m.metrics[endpoint]; ok {
		snapshot := *metrics
		return &snapshot
	}

	return nil
}

// Requests exposes the request counter for scraping and tests.
func (m *MetricsCollector) Requests() *prometheus.CounterVec {
	return m.requests
}

func (m *MetricsCollector) record(method, path string, status int, failed bool, latency time.Duration) {
	route := Route(path)
	endpoint := fmt.Sprintf("%s %s", method, route)

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(latency.Seconds())

	m.mu.Lock()

	metrics, ok := m.metrics[endpoint]
	if !ok {
		metrics = &Metrics{}
		m.metrics[endpoint] = metrics
	}

	metrics.TotalRequests++
	metrics.LastRequestTime = time.Now()
	metrics.TotalLatency += latency
	metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)

	if failed {
		metrics.TotalErrors++
	}

	snapshot := *metrics
	onChange := m.onChange

	m.mu.Unlock()

	if onChange != nil {
		onChange(endpoint, snapshot)
	}
}

// Route replaces identifier segments of path with ":id" to bound label
// cardinality.
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}

		if _, err := uuid.Parse(s); err == nil {
			segments[i] = ":id"
			continue
		}

		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}

	return strings.Join(segments, "/")
}

// MetricsRequestInterceptor records request start time.
func MetricsRequestInterceptor(collector *MetricsCollector) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metricsStartKey] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records response metrics.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		var latency time.Duration

		if start, ok := req.Metadata[metricsStartKey].(time.Time); ok {
			latency = time.Since(start)
		}

		failed := resp.Error != nil || resp.StatusCode >= 400
		collector.record(req.Method, req.Path, resp.StatusCode, failed, latency)

		return nil
	}
}
