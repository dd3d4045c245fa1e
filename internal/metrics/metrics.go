package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records domain counters for swipes, matches, couples and push.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	swipes       *prometheus.CounterVec
	matches      prometheus.Counter
	couples      *prometheus.CounterVec
	push         *prometheus.CounterVec
	pushDuration prometheus.Histogram
}

// New registers the service metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	swipes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairdate_swipes_total",
		Help: "Recorded swipes by direction.",
	}, []string{"direction"})
	matches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairdate_matches_created_total",
		Help: "Matches materialized from mutual positive swipes.",
	})
	couples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairdate_couple_events_total",
		Help: "Couple lifecycle events.",
	}, []string{"event"})
	push := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairdate_push_notifications_total",
		Help: "Push notification outcomes.",
	}, []string{"result"})
	pushDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pairdate_push_send_seconds",
		Help:    "Time spent delivering one push notification.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(swipes, matches, couples, push, pushDuration)
	return &Metrics{
		swipes:       swipes,
		matches:      matches,
		couples:      couples,
		push:         push,
		pushDuration: pushDuration,
	}
}

// IncSwipe counts one recorded swipe.
func (m *Metrics) IncSwipe(direction string) {
	if m == nil || m.swipes == nil {
		return
	}
	m.swipes.WithLabelValues(normalizeLabel(direction)).Inc()
}

// IncMatchCreated counts one newly created match.
func (m *Metrics) IncMatchCreated() {
	if m == nil || m.matches == nil {
		return
	}
	m.matches.Inc()
}

// IncCoupleEvent counts a couple lifecycle event (created, activated, left, deleted).
func (m *Metrics) IncCoupleEvent(event string) {
	if m == nil || m.couples == nil {
		return
	}
	m.couples.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncPush counts a push outcome (sent, failed, dropped, skipped).
func (m *Metrics) IncPush(result string) {
	if m == nil || m.push == nil {
		return
	}
	m.push.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObservePushDuration records how long one delivery attempt took.
func (m *Metrics) ObservePushDuration(d time.Duration) {
	if m == nil || m.pushDuration == nil {
		return
	}
	m.pushDuration.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
