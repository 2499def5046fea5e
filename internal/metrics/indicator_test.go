package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRender(t *testing.T) {
	before := testutil.ToFloat64(renders.WithLabelValues("light", "critical", "preempted"))
	RecordRender("light", "critical", "preempted")
	RecordRender("light", "critical", "preempted")

	got := testutil.ToFloat64(renders.WithLabelValues("light", "critical", "preempted"))
	if got-before != 2 {
		t.Errorf("renders delta = %v, want 2", got-before)
	}
}

func TestSetSpamActive(t *testing.T) {
	SetSpamActive("light", "link", true)
	if got := testutil.ToFloat64(spamActive.WithLabelValues("light", "link")); got != 1 {
		t.Errorf("spam_active = %v, want 1", got)
	}
	SetSpamActive("light", "link", false)
	if got := testutil.ToFloat64(spamActive.WithLabelValues("light", "link")); got != 0 {
		t.Errorf("spam_active = %v, want 0", got)
	}
}

func TestRecordSignalUpdate(t *testing.T) {
	before := testutil.ToFloat64(signalUpdates.WithLabelValues("battery", "false"))
	RecordSignalUpdate("battery", false)
	if got := testutil.ToFloat64(signalUpdates.WithLabelValues("battery", "false")); got-before != 1 {
		t.Errorf("updates delta = %v, want 1", got-before)
	}
}

func TestQueueMetrics(t *testing.T) {
	SetQueueDepth("sound", 3)
	if got := testutil.ToFloat64(queueDepth.WithLabelValues("sound")); got != 3 {
		t.Errorf("queue_depth = %v, want 3", got)
	}

	before := testutil.ToFloat64(queueDrops.WithLabelValues("sound"))
	RecordQueueDrop("sound")
	if got := testutil.ToFloat64(queueDrops.WithLabelValues("sound")); got-before != 1 {
		t.Errorf("queue_drops delta = %v, want 1", got-before)
	}
}
