// Package ratelimit decides how often arbiter output may reach the render
// queues: a per-key debouncer coalesces notification bursts and a per-category
// spam guard suppresses or degrades storms of repeated events.
package ratelimit

import (
	"sync"
	"time"
)

// Debouncer coalesces repeated triggers of the same key into one call made
// after the key has been quiet for its delay.
type Debouncer struct {
	mu      sync.Mutex
	timers  map[string]*pending
	stopped bool
}

type pending struct {
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates an idle debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{timers: make(map[string]*pending)}
}

// Trigger schedules fn to run after delay. Triggering the same key again
// before the timer fires restarts the wait and replaces fn; only the last fn
// of a burst runs. A non-positive delay runs fn immediately on the caller's
// goroutine.
func (d *Debouncer) Trigger(key string, delay time.Duration, fn func()) {
	if delay <= 0 {
		d.mu.Lock()
		stopped := d.stopped
		if p, ok := d.timers[key]; ok {
			p.timer.Stop()
			delete(d.timers, key)
		}
		d.mu.Unlock()
		if !stopped {
			fn()
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	p, ok := d.timers[key]
	if !ok {
		p = &pending{}
		d.timers[key] = p
	} else if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		cur, ok := d.timers[key]
		// A newer trigger owns the key; this timer lost a Stop race.
		if !ok || cur.gen != gen || d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Pending reports whether key has a scheduled call.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Stop cancels every scheduled call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, p := range d.timers {
		p.timer.Stop()
		delete(d.timers, key)
	}
}
