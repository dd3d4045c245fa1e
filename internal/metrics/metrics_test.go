package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncSwipe("right")
	m.IncSwipe("right")
	m.IncSwipe("")
	m.IncMatchCreated()
	m.IncCoupleEvent("activated")
	m.IncPush("dropped")
	m.ObservePushDuration(20 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.swipes.WithLabelValues("right")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.swipes.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.couples.WithLabelValues("activated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.push.WithLabelValues("dropped")))

	count, err := testutil.GatherAndCount(reg, "pairdate_push_send_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncSwipe("left")
		m.IncMatchCreated()
		m.IncCoupleEvent("created")
		m.IncPush("sent")
		m.ObservePushDuration(time.Second)
	})

	unregistered := New(nil)
	assert.NotPanics(t, func() { unregistered.IncMatchCreated() })
}
