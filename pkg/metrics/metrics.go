// Package metrics exports prometheus metrics for graph runs and memory
// operations.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/switchyard/pkg/graph"
	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/storage"
)

const namespace = "switchyard"

// Metrics owns a private registry so tests and embedded uses never collide
// with the global one.
type Metrics struct {
	registry *prometheus.Registry

	nodeVisits   *prometheus.CounterVec
	nodeErrors   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	routes       *prometheus.CounterVec

	records        *prometheus.CounterVec
	recordDuration prometheus.Histogram
	recalls        *prometheus.CounterVec
	recallResults  prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node executions.",
		}, []string{"node"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_errors_total",
			Help:      "Total number of node executions that returned an error.",
		}, []string{"node"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of node executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_total",
			Help:      "Total number of resolved conditional routes.",
		}, []string{"node", "route"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "records_total",
			Help:      "Total number of memory record calls.",
		}, []string{"role", "result"}),
		recordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "record_duration_seconds",
			Help:      "Duration of memory record calls, embedding included.",
			Buckets:   prometheus.DefBuckets,
		}),
		recalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "recalls_total",
			Help:      "Total number of memory recall calls.",
		}, []string{"result"}),
		recallResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "recall_results",
			Help:      "Number of texts returned per recall.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
	}

	m.registry.MustRegister(
		m.nodeVisits,
		m.nodeErrors,
		m.nodeDuration,
		m.routes,
		m.records,
		m.recordDuration,
		m.recalls,
		m.recallResults,
	)

	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns graph hooks that count node visits, errors, durations and
// route decisions.
func (m *Metrics) Hooks() graph.Hooks {
	return graph.Hooks{
		OnNodeEnter: func(_ context.Context, node string) {
			m.nodeVisits.WithLabelValues(node).Inc()
		},
		OnNodeLeave: func(_ context.Context, node string, elapsed time.Duration, err error) {
			m.nodeDuration.WithLabelValues(node).Observe(elapsed.Seconds())
			if err != nil {
				m.nodeErrors.WithLabelValues(node).Inc()
			}
		},
		OnRoute: func(_ context.Context, from, key, _ string) {
			m.routes.WithLabelValues(from, key).Inc()
		},
	}
}

// ObserveRecord implements memory.Observer.
func (m *Metrics) ObserveRecord(role storage.Role, elapsed time.Duration, err error) {
	m.records.WithLabelValues(string(role), result(err)).Inc()
	m.recordDuration.Observe(elapsed.Seconds())
}

// ObserveRecall implements memory.Observer.
func (m *Metrics) ObserveRecall(_ int, results int, _ time.Duration, err error) {
	m.recalls.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.recallResults.Observe(float64(results))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	log = logger.OrNop(log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening for metrics: %w", err)
	}
	log.Info("serving metrics", "listen", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = server.Shutdown(shutdownCtx)

		// Serve returns only once the listener goroutine has finished.
		if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
