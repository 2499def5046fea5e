package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Category groups events that share one spam guard state.
type Category uint8

// Guard categories.
const (
	CategoryProfile Category = iota
	CategoryLink
	CategoryGeneric
	numCategories
)

func (c Category) String() string {
	switch c {
	case CategoryProfile:
		return "profile"
	case CategoryLink:
		return "link"
	case CategoryGeneric:
		return "generic"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Categories lists every guard category.
func Categories() []Category {
	return []Category{CategoryProfile, CategoryLink, CategoryGeneric}
}

// Decision is the outcome of an admission check.
type Decision uint8

// Admission outcomes.
const (
	Admit Decision = iota
	Suppress
	Degrade
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case Suppress:
		return "suppress"
	case Degrade:
		return "degrade"
	default:
		return fmt.Sprintf("decision(%d)", uint8(d))
	}
}

// Policy configures one category.
type Policy struct {
	// MinInterval is the gap below which an event counts as fast.
	MinInterval time.Duration
	// Threshold is the number of consecutive fast events that starts spam mode.
	// Zero disables the guard for the category.
	Threshold int
	// Cooldown is the quiet period that ends spam mode.
	Cooldown time.Duration
	// Degrade admits a shortened rendition instead of suppressing.
	Degrade bool
}

// Config holds one policy per category.
type Config struct {
	Profile Policy
	Link    Policy
	Generic Policy
}

// DefaultConfig returns threshold 5 and cooldown 2 s for every category.
func DefaultConfig() Config {
	return Config{
		Profile: Policy{MinInterval: 300 * time.Millisecond, Threshold: 5, Cooldown: 2 * time.Second},
		Link:    Policy{MinInterval: 500 * time.Millisecond, Threshold: 5, Cooldown: 2 * time.Second},
		Generic: Policy{MinInterval: 100 * time.Millisecond, Threshold: 5, Cooldown: 2 * time.Second, Degrade: true},
	}
}

func (c Config) policy(cat Category) Policy {
	switch cat {
	case CategoryProfile:
		return c.Profile
	case CategoryLink:
		return c.Link
	default:
		return c.Generic
	}
}

type state struct {
	lastEvent     time.Time
	fastCount     int
	spamActive    bool
	spamEnteredAt time.Time
}

// Guard is a per-category Normal -> Spamming -> Normal state machine.
type Guard struct {
	cfg    Config
	mu     sync.Mutex
	states [numCategories]state
	now    func() time.Time
}

// NewGuard creates a guard with every category in Normal mode.
func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg, now: time.Now}
}

// Admit records an event of category cat at now and decides whether it may
// be rendered.
func (g *Guard) Admit(cat Category, now time.Time) Decision {
	if cat >= numCategories {
		cat = CategoryGeneric
	}
	p := g.cfg.policy(cat)
	if p.Threshold <= 0 {
		return Admit
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	st := &g.states[cat]

	if st.spamActive {
		if now.Sub(st.lastEvent) >= p.Cooldown {
			*st = state{lastEvent: now}
			return Admit
		}
		// Any event inside the cooldown restarts it.
		st.lastEvent = now
		return blocked(p)
	}

	if !st.lastEvent.IsZero() && now.Sub(st.lastEvent) < p.MinInterval {
		st.fastCount++
	} else {
		st.fastCount = 0
	}
	st.lastEvent = now

	if st.fastCount >= p.Threshold {
		st.spamActive = true
		st.spamEnteredAt = now
		return blocked(p)
	}
	return Admit
}

func blocked(p Policy) Decision {
	if p.Degrade {
		return Degrade
	}
	return Suppress
}

// Spamming reports whether cat is in spam mode and its cooldown has not yet
// run out.
func (g *Guard) Spamming(cat Category) bool {
	if cat >= numCategories {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.states[cat]
	return st.spamActive && g.now().Sub(st.lastEvent) < g.cfg.policy(cat).Cooldown
}

// SpamSince returns when cat entered spam mode, zero when it is not spamming.
func (g *Guard) SpamSince(cat Category) time.Time {
	if !g.Spamming(cat) {
		return time.Time{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[cat].spamEnteredAt
}
