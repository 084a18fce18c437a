// Package metricsvc exposes the console's prometheus metrics.
package metricsvc

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edutracks/console/core/guard"
	"github.com/edutracks/console/core/role"
)

// Metrics owns its registry so tests and several servers in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	GuardDecisions *prometheus.CounterVec
	Logins         *prometheus.CounterVec
	Logouts        prometheus.Counter
	TabSessions    prometheus.Gauge
	SweptTabs      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		GuardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edutracks_guard_decisions_total",
				Help: "Route guard decisions by guard kind and outcome.",
			},
			[]string{"guard", "decision"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edutracks_logins_total",
				Help: "Successful sign-ins by role and remember flag.",
			},
			[]string{"role", "remember"},
		),
		Logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edutracks_logouts_total",
			Help: "Sign-outs.",
		}),
		TabSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edutracks_tab_sessions",
			Help: "Tab sessions held in memory.",
		}),
		SweptTabs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edutracks_swept_tab_sessions_total",
			Help: "Idle tab sessions dropped by the sweeper.",
		}),
	}
	m.registry.MustRegister(
		m.GuardDecisions,
		m.Logins,
		m.Logouts,
		m.TabSessions,
		m.SweptTabs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveDecision(g guard.Guard, d guard.Decision) {
	m.GuardDecisions.WithLabelValues(g.Kind.String(), d.State.String()).Inc()
}

func (m *Metrics) ObserveLogin(r role.Role, remember bool) {
	label := r.String()
	if !r.Valid() {
		label = "unknown" // keep cardinality bounded
	}
	m.Logins.WithLabelValues(label, strconv.FormatBool(remember)).Inc()
}
