package indicator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/metrics"
	"github.com/smazurov/indicatord/internal/ratelimit"
	"github.com/smazurov/indicatord/internal/render"
)

// Lane names.
const (
	LaneLight = "light"
	LaneSound = "sound"
)

// lane is one output device: its queue, worker and spam guard.
type lane struct {
	name   string
	queue  *render.Queue
	worker *render.Worker
	guard  *ratelimit.Guard

	spamMu sync.Mutex
	spam   map[ratelimit.Category]bool

	admitted   atomic.Uint64
	suppressed atomic.Uint64
	degraded   atomic.Uint64
	bypassed   atomic.Uint64
	dropped    atomic.Uint64
}

func newLane(name string, q *render.Queue, g *ratelimit.Guard) *lane {
	return &lane{
		name:  name,
		queue: q,
		guard: g,
		spam:  make(map[ratelimit.Category]bool),
	}
}

// offer runs in through the guard (unless bypass) and enqueues what is
// admitted. It reports whether anything was enqueued.
func (l *lane) offer(m *Manager, cat ratelimit.Category, in intent.Intent, bypass bool) bool {
	if bypass {
		l.bypassed.Add(1)
		l.push(m, in)
		return true
	}

	d := l.guard.Admit(cat, time.Now())
	metrics.RecordDecision(l.name, cat.String(), d.String())
	l.syncSpam(m, cat)

	switch d {
	case ratelimit.Admit:
		l.admitted.Add(1)
		l.push(m, in)
		return true
	case ratelimit.Degrade:
		l.degraded.Add(1)
		l.push(m, in.Degraded())
		return true
	default:
		l.suppressed.Add(1)
		m.logger.Debug("Intent suppressed by spam guard", "lane", l.name, "category", cat, "intent", in.String())
		return false
	}
}

func (l *lane) push(m *Manager, in intent.Intent) {
	if l.queue.Push(in) {
		l.dropped.Add(1)
		metrics.RecordQueueDrop(l.name)
		m.logger.Debug("Render queue full, intent dropped", "lane", l.name, "error", intent.ErrQueueFull)
	}
	metrics.SetQueueDepth(l.name, l.queue.Len())
}

// syncSpam publishes spam mode transitions for cat.
func (l *lane) syncSpam(m *Manager, cat ratelimit.Category) {
	active := l.guard.Spamming(cat)

	l.spamMu.Lock()
	changed := l.spam[cat] != active
	l.spam[cat] = active
	l.spamMu.Unlock()

	if !changed {
		return
	}
	metrics.SetSpamActive(l.name, cat.String(), active)
	if active {
		m.logger.Info("Spam mode entered", "lane", l.name, "category", cat)
	} else {
		m.logger.Info("Spam mode ended", "lane", l.name, "category", cat)
	}
	if m.bus != nil {
		m.bus.Publish(events.SpamModeChangedEvent{
			Lane:      l.name,
			Category:  cat.String(),
			Active:    active,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

func (l *lane) status() LaneStatus {
	s := LaneStatus{
		Name:       l.name,
		QueueDepth: l.queue.Len(),
		QueueCap:   l.queue.Cap(),
		Spam:       make(map[string]bool),
		Admitted:   l.admitted.Load(),
		Suppressed: l.suppressed.Load(),
		Degraded:   l.degraded.Load(),
		Bypassed:   l.bypassed.Load(),
		Dropped:    l.dropped.Load(),
	}
	if l.worker != nil {
		s.State = l.worker.State().String()
		if cur, ok := l.worker.Current(); ok {
			s.Rendering = &cur
		}
	}
	for _, cat := range ratelimit.Categories() {
		s.Spam[cat.String()] = l.guard.Spamming(cat)
	}
	return s
}
