package indicator

import (
	"errors"
	"fmt"
	"time"

	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/ratelimit"
	"github.com/smazurov/indicatord/internal/render"
	"github.com/smazurov/indicatord/internal/signals"
)

// Config is the static table the manager is built from. It is loaded once
// at startup and never changes afterwards.
type Config struct {
	Arbiter arbiter.Config
	Guard   ratelimit.Config

	QueueCapacity int
	DropPolicy    render.DropPolicy

	// Per-signal debounce windows. Zero recomputes on every change.
	DebounceCapsLock time.Duration
	DebounceBattery  time.Duration
	DebounceLink     time.Duration
	DebounceBoot     time.Duration
	DebounceEndpoint time.Duration

	// PollInterval re-evaluates the arbiter on a timer. Zero disables polling.
	PollInterval time.Duration

	// NoteGap is the silence between melody notes.
	NoteGap time.Duration

	BootEffect   bool
	StartupSound bool
	// WaitForBoot keeps the light idle until a boot event arrives. Otherwise
	// the manager completes boot itself once the boot effect has played.
	WaitForBoot bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Arbiter:          arbiter.DefaultConfig(),
		Guard:            ratelimit.DefaultConfig(),
		QueueCapacity:    render.DefaultCapacity,
		DropPolicy:       render.DropOldest,
		DebounceCapsLock: 500 * time.Millisecond,
		DebounceBattery:  300 * time.Millisecond,
		DebounceLink:     0,
		DebounceBoot:     0,
		DebounceEndpoint: 0,
		PollInterval:     3 * time.Second,
		NoteGap:          10 * time.Millisecond,
		BootEffect:       true,
		StartupSound:     true,
	}
}

// Validate checks the whole table.
func (c Config) Validate() error {
	var errs []error
	if err := c.Arbiter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("arbiter: %w", err))
	}
	if c.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("queue capacity %d must be at least 1", c.QueueCapacity))
	}
	for name, p := range map[string]ratelimit.Policy{
		"profile": c.Guard.Profile,
		"link":    c.Guard.Link,
		"generic": c.Guard.Generic,
	} {
		if p.Threshold < 0 || p.MinInterval < 0 || p.Cooldown < 0 {
			errs = append(errs, fmt.Errorf("spam guard %s: values must not be negative", name))
		}
	}
	for name, d := range map[string]time.Duration{
		"caps_lock": c.DebounceCapsLock,
		"battery":   c.DebounceBattery,
		"link":      c.DebounceLink,
		"boot":      c.DebounceBoot,
		"endpoint":  c.DebounceEndpoint,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("debounce %s: %s is negative", name, d))
		}
	}
	if c.PollInterval < 0 {
		errs = append(errs, errors.New("poll interval must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) debounce(k signals.Kind) time.Duration {
	switch k {
	case signals.KindCapsLock:
		return c.DebounceCapsLock
	case signals.KindBattery:
		return c.DebounceBattery
	case signals.KindLink:
		return c.DebounceLink
	case signals.KindBoot:
		return c.DebounceBoot
	default:
		return c.DebounceEndpoint
	}
}
