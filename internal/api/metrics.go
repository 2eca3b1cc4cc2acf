package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelfbridge/shelfbridge/internal/exchange"
)

// Metrics aggregates the bridge's Prometheus instrumentation and serves it
// on /metrics.
//
// It doubles as an exchange.Observer: register it on the engine and every
// completed exchange feeds the counters and the latency histogram.
type Metrics struct {
	registry  *prometheus.Registry
	exchanges *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewMetrics creates the metric set. onlineDevices feeds the online-device
// gauge and is sampled at scrape time; pass the inventory manager's counter.
func NewMetrics(onlineDevices func() float64) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfbridge",
			Name:      "exchanges_total",
			Help:      "Completed controller exchanges by class and outcome.",
		}, []string{"class", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shelfbridge",
			Name:      "exchange_duration_seconds",
			Help:      "Controller acknowledgment round-trip time by class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"class"}),
	}

	registry.MustRegister(m.exchanges, m.latency)

	if onlineDevices != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shelfbridge",
			Name:      "devices_online",
			Help:      "Controllers currently reporting as online.",
		}, onlineDevices))
	}

	return m
}

// ExchangeCompleted records one finished exchange. Satisfies
// exchange.Observer; called on the waiting goroutine, so it must stay cheap.
func (m *Metrics) ExchangeCompleted(_ string, class exchange.Class, outcome exchange.Outcome, duration time.Duration) {
	m.exchanges.WithLabelValues(string(class), string(outcome)).Inc()
	m.latency.WithLabelValues(string(class)).Observe(duration.Seconds())
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
