// Package metrics exposes Prometheus metrics for the dashboard API.
package metrics

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cs16_dashboard"

// Spin outcomes used as the "outcome" label.
const (
	OutcomeWon      = "won"
	OutcomeCooldown = "cooldown"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	DBConnPoolStats  *prometheus.GaugeVec
	Spins            *prometheus.CounterVec
	Rewards          *prometheus.CounterVec
	SyncedPlayers    prometheus.Counter
	SyncFailures     prometheus.Counter
}

// New creates a metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
			[]string{"route"},
		),
		DBConnPoolStats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connection_pool",
				Help:      "PostgreSQL connection pool statistics",
			},
			[]string{"stat"},
		),
		Spins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cases",
				Name:      "spins_total",
				Help:      "Daily case spins by outcome",
			},
			[]string{"outcome"},
		),
		Rewards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cases",
				Name:      "rewards_total",
				Help:      "Rewards granted by payout kind and rarity",
			},
			[]string{"kind", "rarity"},
		),
		SyncedPlayers: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "players_total",
				Help:      "Players mirrored from the game server",
			},
		),
		SyncFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "failures_total",
				Help:      "Reconciliation runs that stopped on an error",
			},
		),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func (m *Metrics) TrackInFlight(route string) func() {
	if m == nil {
		return func() {}
	}
	g := m.RequestsInFlight.WithLabelValues(route)
	g.Inc()
	return g.Dec
}

// RecordSpin counts a spin by outcome.
func (m *Metrics) RecordSpin(outcome string) {
	if m == nil {
		return
	}
	m.Spins.WithLabelValues(outcome).Inc()
}

// RecordReward counts a granted reward.
func (m *Metrics) RecordReward(kind, rarity string) {
	if m == nil {
		return
	}
	m.Rewards.WithLabelValues(kind, rarity).Inc()
}

// RecordSync counts mirrored players and whether the run failed.
func (m *Metrics) RecordSync(synced int, failed bool) {
	if m == nil {
		return
	}
	m.SyncedPlayers.Add(float64(synced))
	if failed {
		m.SyncFailures.Inc()
	}
}

// RecordDBPoolStats records PostgreSQL connection pool statistics.
func (m *Metrics) RecordDBPoolStats(stat *pgxpool.Stat) {
	if m == nil || stat == nil {
		return
	}
	m.DBConnPoolStats.WithLabelValues("total").Set(float64(stat.TotalConns()))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	m.DBConnPoolStats.WithLabelValues("max").Set(float64(stat.MaxConns()))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(stat.EmptyAcquireCount()))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(stat.AcquireDuration().Milliseconds()))
}
