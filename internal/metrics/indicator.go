// Package metrics provides Prometheus metrics for the indicator pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "indicatord"

var (
	signalUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signals",
		Name:      "updates_total",
		Help:      "Signal notifications received, by signal and whether they changed the store",
	}, []string{"signal", "changed"})

	recomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "arbiter",
		Name:      "recomputes_total",
		Help:      "Arbiter evaluations, by trigger",
	}, []string{"trigger"})

	admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Spam guard decisions, by lane, category and decision",
	}, []string{"lane", "category", "decision"})

	spamActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "spam_active",
		Help:      "Whether a spam guard category is in spam mode",
	}, []string{"lane", "category"})

	queueDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "queue_drops_total",
		Help:      "Intents discarded by a full render queue",
	}, []string{"lane"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "queue_depth",
		Help:      "Intents waiting in a render queue",
	}, []string{"lane"})

	renders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "renders_total",
		Help:      "Finished renders, by lane, priority class and outcome",
	}, []string{"lane", "class", "outcome"})
)

// RecordSignalUpdate counts a signal notification.
func RecordSignalUpdate(signal string, changed bool) {
	c := "false"
	if changed {
		c = "true"
	}
	signalUpdates.WithLabelValues(signal, c).Inc()
}

// RecordRecompute counts an arbiter evaluation.
func RecordRecompute(trigger string) {
	recomputes.WithLabelValues(trigger).Inc()
}

// RecordDecision counts a spam guard decision.
func RecordDecision(lane, category, decision string) {
	admissions.WithLabelValues(lane, category, decision).Inc()
}

// SetSpamActive records whether a category is in spam mode.
func SetSpamActive(lane, category string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	spamActive.WithLabelValues(lane, category).Set(v)
}

// RecordQueueDrop counts an intent discarded by a full queue.
func RecordQueueDrop(lane string) {
	queueDrops.WithLabelValues(lane).Inc()
}

// SetQueueDepth records the number of waiting intents.
func SetQueueDepth(lane string, depth int) {
	queueDepth.WithLabelValues(lane).Set(float64(depth))
}

// RecordRender counts a finished render.
func RecordRender(lane, class, outcome string) {
	renders.WithLabelValues(lane, class, outcome).Inc()
}
