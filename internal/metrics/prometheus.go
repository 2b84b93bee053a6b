package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder reports provider calls and metamorphic runs.
type PrometheusRecorder struct {
	calls       *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	metamorphic *prometheus.CounterVec
}

func NewPrometheusRecorder(registry *prometheus.Registry) (*PrometheusRecorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &PrometheusRecorder{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genie_provider_calls_total",
			Help: "Total number of provider calls by status",
		}, []string{"provider", "model", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genie_provider_call_duration_seconds",
			Help:    "Provider call latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		metamorphic: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genie_metamorphic_runs_total",
			Help: "Total metamorphic executions by mode and status",
		}, []string{"mode", "status"}),
	}

	for _, collector := range []prometheus.Collector{r.calls, r.durations, r.metamorphic} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveCall(provider, model, status string, duration time.Duration) {
	r.calls.WithLabelValues(provider, model, status).Inc()
	r.durations.WithLabelValues(provider).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveMetamorphic(mode, status string) {
	r.metamorphic.WithLabelValues(mode, status).Inc()
}

// StartPrometheusServer serves registry on addr in the background.
func StartPrometheusServer(addr string, registry *prometheus.Registry) (*http.Server, error) {
	if addr == "" {
		addr = ":2112"
	}
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics endpoint %q: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return srv, nil
}

func StopServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
