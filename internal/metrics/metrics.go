// Package metrics provides Prometheus instrumentation for the boost engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/netswap/boost-engine/internal/model"
)

var (
	// OperationsTotal counts ledger operations by name and result.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boost_engine_operations_total",
		Help: "Total number of ledger operations",
	}, []string{"op", "result"})

	// OperationLatency tracks committed operation latency.
	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boost_engine_operation_latency_seconds",
		Help:    "Ledger operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// EventsTotal counts committed events by ledger and kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boost_engine_events_total",
		Help: "Committed ledger events",
	}, []string{"ledger", "kind"})

	// RewardsPaid tracks reward tokens paid out by harvests, in whole tokens.
	RewardsPaid = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boost_engine_rewards_paid_total",
		Help: "Reward tokens paid to stakers",
	}, []string{"ledger"})

	// VeMinted tracks veBalance minted by the escrow, in whole units.
	VeMinted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boost_engine_ve_minted_total",
		Help: "veBalance minted",
	})

	// VeBurned tracks veBalance burned on escrow withdrawals.
	VeBurned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boost_engine_ve_burned_total",
		Help: "veBalance burned",
	})

	// Pools tracks pools added per farm since start.
	Pools = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boost_engine_pools_added_total",
		Help: "Pools added",
	}, []string{"ledger"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boost_engine_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// KeeperRuns counts keeper job runs by result.
	KeeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boost_engine_keeper_runs_total",
		Help: "Keeper job runs",
	}, []string{"result"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boost_engine_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boost_engine_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveEvents records committed events.
func ObserveEvents(events []model.Event) {
	for _, ev := range events {
		EventsTotal.WithLabelValues(ev.Ledger, ev.Kind).Inc()
		switch ev.Kind {
		case model.EventHarvest:
			RewardsPaid.WithLabelValues(ev.Ledger).Add(tokens(ev.Amount))
		case model.EventVeMint:
			VeMinted.Add(tokens(ev.Amount))
		case model.EventVeBurn:
			VeBurned.Add(tokens(ev.Amount))
		case model.EventAddPool:
			Pools.WithLabelValues(ev.Ledger).Inc()
		}
	}
}

// tokens converts a base-unit amount into whole tokens for a metric.
func tokens(raw string) float64 {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.Shift(-18).InexactFloat64()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// The route pattern keeps label cardinality bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
