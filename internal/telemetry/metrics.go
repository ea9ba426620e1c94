package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	sessionsCreated  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	answers          *prometheus.CounterVec
	verdicts         *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	storeConflicts   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "couplegame_sessions_created_total",
			Help: "Game sessions created, by game type.",
		}, []string{"game_type"}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "couplegame_sessions_finished_total",
			Help: "Game sessions that reached a terminal status.",
		}, []string{"game_type", "status"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "couplegame_answers_total",
			Help: "Accepted answers, by slot variant.",
		}, []string{"variant"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "couplegame_verdicts_total",
			Help: "Accepted verdicts on correction slots.",
		}, []string{"verdict"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "couplegame_rejections_total",
			Help: "Rejected operations, by error code.",
		}, []string{"code"}),
		storeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "couplegame_store_conflicts_total",
			Help: "Writes lost to a concurrent modification of the same session.",
		}),
	}
	reg.MustRegister(m.sessionsCreated, m.sessionsFinished, m.answers, m.verdicts, m.rejections, m.storeConflicts)
	return m
}

func (m *Metrics) SessionCreated(gameType string) {
	if m == nil {
		return
	}
	m.sessionsCreated.WithLabelValues(gameType).Inc()
}

func (m *Metrics) SessionFinished(gameType, status string) {
	if m == nil {
		return
	}
	m.sessionsFinished.WithLabelValues(gameType, status).Inc()
}

func (m *Metrics) Answer(variant string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(variant).Inc()
}

func (m *Metrics) Verdict(verdict string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(verdict).Inc()
}

func (m *Metrics) Rejected(code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.storeConflicts.Inc()
}
