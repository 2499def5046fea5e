// Package render drives a physical output device from a bounded queue of
// intents, one dedicated worker per device.
package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/smazurov/indicatord/internal/intent"
)

// DropPolicy selects which intent is discarded when the queue is full.
type DropPolicy uint8

// Drop policies.
const (
	DropOldest DropPolicy = iota
	DropNewest
)

func (p DropPolicy) String() string {
	if p == DropNewest {
		return "newest"
	}
	return "oldest"
}

// ParseDropPolicy maps "oldest" or "newest" to a DropPolicy.
func ParseDropPolicy(s string) (DropPolicy, error) {
	switch s {
	case "", "oldest", "drop_oldest":
		return DropOldest, nil
	case "newest", "drop_newest":
		return DropNewest, nil
	}
	return DropOldest, fmt.Errorf("unknown drop policy %q", s)
}

// DefaultCapacity matches the firmware's message queue depth.
const DefaultCapacity = 16

// Queue is a bounded FIFO of intents. Push never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []intent.Intent
	cap    int
	policy DropPolicy
	ready  chan struct{}
}

// NewQueue creates a queue. Capacities below one become one.
func NewQueue(capacity int, policy DropPolicy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items:  make([]intent.Intent, 0, capacity),
		cap:    capacity,
		policy: policy,
		ready:  make(chan struct{}, 1),
	}
}

// Push appends in. When the queue is full one intent is discarded according
// to the policy and Push reports true.
func (q *Queue) Push(in intent.Intent) (dropped bool) {
	q.mu.Lock()
	if len(q.items) >= q.cap {
		dropped = true
		if q.policy == DropNewest {
			q.mu.Unlock()
			return true
		}
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, in)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return dropped
}

// Pop removes the oldest intent, waiting until one is available or ctx ends.
func (q *Queue) Pop(ctx context.Context) (intent.Intent, error) {
	for {
		if in, ok := q.TryPop(); ok {
			return in, nil
		}
		select {
		case <-ctx.Done():
			return intent.Intent{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryPop removes the oldest intent if there is one.
func (q *Queue) TryPop() (intent.Intent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return intent.Intent{}, false
	}
	in := q.items[0]
	copy(q.items, q.items[1:])
	q.items[len(q.items)-1] = intent.Intent{}
	q.items = q.items[:len(q.items)-1]
	return in, true
}

// Highest returns the highest class among the queued intents.
func (q *Queue) Highest() (intent.Class, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return intent.ClassIdle, false
	}
	top := q.items[0].Class
	for _, in := range q.items[1:] {
		top = max(top, in.Class)
	}
	return top, true
}

// Len returns the number of queued intents.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return q.cap }
