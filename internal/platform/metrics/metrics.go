package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors used by the sales service.
type Metrics struct {
	Sagas          *prometheus.CounterVec
	Events         *prometheus.CounterVec
	GatewayLatency *prometheus.HistogramVec
	Requests       *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	sagas := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "printa",
		Subsystem: "sales",
		Name:      "saga_total",
		Help:      "Sales saga executions by operation and outcome.",
	}, []string{"operation", "outcome"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "printa",
		Subsystem: "sales",
		Name:      "payment_events_total",
		Help:      "Payment status events consumed by outcome.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "printa",
		Subsystem: "sales",
		Name:      "gateway_call_duration_ms",
		Help:      "Remote gateway call latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"gateway", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "printa",
		Subsystem: "sales",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "status"})

	reg.MustRegister(sagas, events, latency, requests)
	return &Metrics{Sagas: sagas, Events: events, GatewayLatency: latency, Requests: requests}
}

func (m *Metrics) Saga(operation, outcome string) {
	if m == nil {
		return
	}
	m.Sagas.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Event(outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(outcome).Inc()
}

// ObserveGateway records how long a gateway call took since start.
func (m *Metrics) ObserveGateway(gateway string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GatewayLatency.WithLabelValues(gateway, outcome).Observe(float64(time.Since(start).Milliseconds()))
}

// Middleware counts requests by method and response status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
