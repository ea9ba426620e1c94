package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SessionCreated("know_me")
	m.SessionCreated("know_me")
	m.SessionFinished("know_me", "completed")
	m.Rejected("already_answered")
	m.Conflict()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsCreated.WithLabelValues("know_me")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsFinished.WithLabelValues("know_me", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("already_answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeConflicts))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionCreated("x")
		m.Answer("simple")
		m.Verdict("correct")
		m.Conflict()
	})
}
