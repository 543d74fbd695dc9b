// Package metrics registers the venue's Prometheus instruments on a
// dedicated registry and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every instrument the venue records. A nil *Metrics
// is valid and records nothing, so wiring stays optional in tests.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced   prometheus.Counter
	ordersRemoved  prometheus.Counter
	tradesExecuted prometheus.Counter
	activeSessions prometheus.Gauge
	feedSubs       prometheus.Gauge
	bookDepth      *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total limit orders accepted onto a book",
		}),
		ordersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_removed_total",
			Help:      "Total orders cancelled by their owner",
		}),
		tradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Total trades struck by the matching engine",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Currently connected order sessions",
		}),
		feedSubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_subscribers",
			Help:      "Currently attached market-data subscribers",
		}),
		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_depth",
			Help:      "Resting orders per book side",
		}, []string{"ticker", "side"}),
	}

	registry.MustRegister(
		m.ordersPlaced,
		m.ordersRemoved,
		m.tradesExecuted,
		m.activeSessions,
		m.feedSubs,
		m.bookDepth,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderPlaced() {
	if m != nil {
		m.ordersPlaced.Inc()
	}
}

func (m *Metrics) OrderRemoved() {
	if m != nil {
		m.ordersRemoved.Inc()
	}
}

func (m *Metrics) TradeExecuted() {
	if m != nil {
		m.tradesExecuted.Inc()
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

func (m *Metrics) SubscriberAttached() {
	if m != nil {
		m.feedSubs.Inc()
	}
}

func (m *Metrics) SetBookDepth(ticker string, bids, asks int) {
	if m != nil {
		m.bookDepth.WithLabelValues(ticker, "bid").Set(float64(bids))
		m.bookDepth.WithLabelValues(ticker, "ask").Set(float64(asks))
	}
}
