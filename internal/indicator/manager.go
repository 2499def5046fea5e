// Package indicator owns the arbitration pipeline: signal store, arbiter,
// rate limiting and one render lane per output device.
package indicator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/metrics"
	"github.com/smazurov/indicatord/internal/ratelimit"
	"github.com/smazurov/indicatord/internal/render"
	"github.com/smazurov/indicatord/internal/signals"
)

// capsLockBit is the caps lock bit of the HID keyboard LED report.
const capsLockBit = 0x02

// Manager is the single owner of the indicator state. Inbound methods are
// fire-and-forget and safe to call from any goroutine.
type Manager struct {
	cfg       Config
	store     *signals.Store
	arb       *arbiter.Arbiter
	debouncer *ratelimit.Debouncer
	bus       *events.Bus
	logger    *slog.Logger

	light *lane
	sound *lane

	seq        atomic.Uint64
	recomputes atomic.Uint64

	// mu serializes recomputes so authority and admission stay in order.
	mu        sync.Mutex
	authMu    sync.RWMutex
	authority intent.Intent
	// pending is set when the authoritative intent was suppressed and has
	// not reached the device yet.
	pending bool

	unsubs  []func()
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// NewManager builds the pipeline. Either sink may be nil to disable its lane.
func NewManager(cfg Config, light intent.IndicatorSink, sound intent.AudioSink, bus *events.Bus, logger *slog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid indicator config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:       cfg,
		store:     signals.NewStore(),
		arb:       arbiter.New(cfg.Arbiter),
		debouncer: ratelimit.NewDebouncer(),
		bus:       bus,
		logger:    logger,
	}

	if light != nil {
		m.light = newLane(LaneLight, render.NewQueue(cfg.QueueCapacity, cfg.DropPolicy), ratelimit.NewGuard(cfg.Guard))
		opts := render.WorkerOptions{
			Name:       LaneLight,
			Queue:      m.light.queue,
			Light:      light,
			Authority:  m.Current,
			Interval:   cfg.Arbiter.Interval,
			OnRendered: m.rendered(LaneLight),
			Logger:     logger,
		}
		if cfg.BootEffect {
			opts.Prelude = m.arb.RainbowBoot()
			if !cfg.WaitForBoot {
				opts.OnPreludeDone = m.completeBoot
			}
		}
		m.light.worker = render.NewWorker(opts)
	}

	if sound != nil {
		m.sound = newLane(LaneSound, render.NewQueue(cfg.QueueCapacity, cfg.DropPolicy), ratelimit.NewGuard(cfg.Guard))
		var prelude []intent.Intent
		if cfg.StartupSound {
			prelude = []intent.Intent{m.arb.StartupMelody()}
		}
		m.sound.worker = render.NewWorker(render.WorkerOptions{
			Name:       LaneSound,
			Queue:      m.sound.queue,
			Sound:      sound,
			Prelude:    prelude,
			Gap:        cfg.NoteGap,
			OnRendered: m.rendered(LaneSound),
			Logger:     logger,
		})
	}

	m.store.OnChange(m.onChange)
	return m, nil
}

// Start launches the workers, the poll loop and the bus subscriptions.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	for _, l := range m.lanes() {
		w := l.worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			_ = w.Run(ctx)
		}()
	}

	if m.cfg.PollInterval > 0 {
		m.wg.Add(1)
		go m.poll(ctx)
	}

	if m.bus != nil {
		m.subscribe()
	}

	// With a boot effect the light worker completes boot when it finishes.
	if !m.cfg.WaitForBoot && (m.light == nil || !m.cfg.BootEffect) {
		m.completeBoot()
	}

	m.recompute("start")
	m.logger.Info("Indicator manager started",
		"light", m.light != nil,
		"sound", m.sound != nil,
		"poll_interval", m.cfg.PollInterval)
}

// Stop unsubscribes, cancels pending debounces and waits for the workers.
func (m *Manager) Stop() {
	if !m.started.CompareAndSwap(true, false) {
		return
	}
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.debouncer.Stop()
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Indicator manager stopped")
}

func (m *Manager) subscribe() {
	m.unsubs = append(m.unsubs,
		m.bus.Subscribe(func(e events.CapsLockChangedEvent) { m.OnCapsLockChanged(e.Flags) }),
		m.bus.Subscribe(func(e events.BatteryChangedEvent) {
			if e.Unknown {
				m.OnBatteryUnknown()
				return
			}
			m.OnBatteryChanged(e.Percent)
		}),
		m.bus.Subscribe(func(e events.LinkChangedEvent) { m.OnLinkChanged(e.Connected, e.Advertising, e.Profile) }),
		m.bus.Subscribe(func(_ events.BootCompleteEvent) { m.OnBootComplete() }),
		m.bus.Subscribe(func(e events.EndpointChangedEvent) {
			t, err := signals.ParseTransport(e.Transport)
			if err != nil {
				m.logger.Warn("Ignoring endpoint event", "error", err)
				return
			}
			m.OnEndpointChanged(t)
		}),
		m.bus.Subscribe(func(e events.IndicateRequestedEvent) {
			kind, err := arbiter.ParseIndicateKind(e.Kind)
			if err != nil {
				m.logger.Warn("Ignoring indicate request", "error", err)
				return
			}
			switch err := m.Indicate(kind); {
			case errors.Is(err, intent.ErrSuppressed):
				m.logger.Debug("Indicate request suppressed", "kind", kind)
			case err != nil:
				m.logger.Warn("Indicate request failed", "kind", kind, "error", err)
			}
		}),
	)
}

func (m *Manager) lanes() []*lane {
	var ls []*lane
	if m.light != nil {
		ls = append(ls, m.light)
	}
	if m.sound != nil {
		ls = append(ls, m.sound)
	}
	return ls
}

// OnCapsLockChanged takes the raw HID LED flags; bit 1 is caps lock.
func (m *Manager) OnCapsLockChanged(flags uint8) {
	m.update(signals.CapsLock{Active: flags&capsLockBit != 0})
}

// OnBatteryChanged records a battery reading. Negative values mean unknown.
func (m *Manager) OnBatteryChanged(percent int) {
	if percent < 0 {
		m.OnBatteryUnknown()
		return
	}
	m.update(signals.Battery{Percent: percent})
}

// OnBatteryUnknown marks the battery level as not sampled.
func (m *Manager) OnBatteryUnknown() {
	m.update(signals.Battery{Unknown: true})
}

// OnLinkChanged records the link state of the active profile.
func (m *Manager) OnLinkChanged(connected, advertising bool, profile int) {
	m.update(signals.Link{Connected: connected, Advertising: advertising, ProfileIndex: profile})
}

// OnBootComplete ends the startup phase. The manager calls it itself unless
// WaitForBoot is set, so a producer only needs it to end boot early.
func (m *Manager) OnBootComplete() {
	m.update(signals.BootPhase{Complete: true})
}

func (m *Manager) completeBoot() {
	if m.store.Snapshot().Boot.Complete {
		return
	}
	m.logger.Info("Boot sequence complete")
	m.OnBootComplete()
}

// OnEndpointChanged records the active output transport.
func (m *Manager) OnEndpointChanged(t signals.Transport) {
	m.update(signals.Endpoint{Transport: t})
}

func (m *Manager) update(sig signals.Signal) {
	changed := m.store.Update(sig)
	metrics.RecordSignalUpdate(sig.Kind().String(), changed)
}

// onChange runs on the producer's goroutine for every real store change.
func (m *Manager) onChange(ch signals.Change) {
	m.logger.Debug("Signal changed", "signal", ch.Kind, "old", ch.Old, "new", ch.New)

	if m.sound != nil {
		if cue, ok := m.arb.Cue(ch, ch.Snapshot); ok {
			cue.Intent.Seq = m.seq.Add(1)
			m.sound.offer(m, cueCategory(cue.Kind), cue.Intent, false)
		}
	}

	trigger := ch.Kind.String()
	m.debouncer.Trigger(trigger, m.cfg.debounce(ch.Kind), func() {
		m.recompute(trigger)
	})
}

func cueCategory(k arbiter.CueKind) ratelimit.Category {
	switch k {
	case arbiter.CueProfile:
		return ratelimit.CategoryProfile
	case arbiter.CueConnected:
		return ratelimit.CategoryLink
	default:
		return ratelimit.CategoryGeneric
	}
}

func lightCategory(c intent.Class) (cat ratelimit.Category, bypass bool) {
	switch c {
	case intent.ClassCritical, intent.ClassCapsLock, intent.ClassIdle:
		return ratelimit.CategoryGeneric, true
	case intent.ClassLink:
		return ratelimit.CategoryLink, false
	default:
		return ratelimit.CategoryGeneric, false
	}
}

// recompute evaluates the arbiter and, when the result differs from the
// current authority, offers it to the light lane.
func (m *Manager) recompute(trigger string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recomputes.Add(1)
	metrics.RecordRecompute(trigger)

	in := m.arb.Compute(m.store.Snapshot())

	m.authMu.RLock()
	same := in.Same(m.authority)
	pending := m.pending
	current := m.authority
	m.authMu.RUnlock()

	if same {
		// A suppressed authority gets another chance once the guard calms down.
		if pending && trigger == "poll" && m.light != nil {
			cat, _ := lightCategory(current.Class)
			if !m.light.guard.Spamming(cat) && m.light.offer(m, cat, current, false) {
				m.setPending(false)
			}
		}
		return
	}

	in.Seq = m.seq.Add(1)
	m.authMu.Lock()
	m.authority = in
	m.pending = false
	m.authMu.Unlock()

	m.logger.Debug("Authoritative intent changed", "trigger", trigger, "intent", in.String())

	if m.light == nil {
		return
	}
	cat, bypass := lightCategory(in.Class)
	if !m.light.offer(m, cat, in, bypass) {
		m.setPending(true)
	}
}

func (m *Manager) setPending(p bool) {
	m.authMu.Lock()
	m.pending = p
	m.authMu.Unlock()
}

func (m *Manager) poll(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.recompute("poll")
			for _, l := range m.lanes() {
				for _, cat := range ratelimit.Categories() {
					l.syncSpam(m, cat)
				}
			}
		}
	}
}

// Indicate queues a one-shot battery, connectivity or profile indication.
// It fails with intent.ErrSuppressed while the spam guard is cooling down.
func (m *Manager) Indicate(kind arbiter.IndicateKind) error {
	if m.light == nil {
		return fmt.Errorf("indicate %s: %w", kind, intent.ErrDeviceNotReady)
	}
	in, err := m.arb.Indicate(kind, m.store.Snapshot())
	if err != nil {
		return err
	}
	in.Seq = m.seq.Add(1)
	if !m.light.offer(m, ratelimit.CategoryGeneric, in, false) {
		return fmt.Errorf("indicate %s: %w", kind, intent.ErrSuppressed)
	}
	return nil
}

// Current returns the authoritative intent. The light worker checks it for
// pre-emption at every toggle.
func (m *Manager) Current() intent.Intent {
	m.authMu.RLock()
	defer m.authMu.RUnlock()
	return m.authority
}

// Snapshot returns the current signal values.
func (m *Manager) Snapshot() signals.Snapshot {
	return m.store.Snapshot()
}

// Arbiter exposes the arbiter for read-only queries such as battery bands.
func (m *Manager) Arbiter() *arbiter.Arbiter { return m.arb }

func (m *Manager) rendered(name string) func(intent.Intent, render.Outcome) {
	return func(in intent.Intent, o render.Outcome) {
		metrics.RecordRender(name, in.Class.String(), o.String())
		if l := m.laneByName(name); l != nil {
			metrics.SetQueueDepth(name, l.queue.Len())
		}
		if m.bus == nil {
			return
		}
		ev := events.IntentRenderedEvent{
			Worker:    name,
			Class:     in.Class.String(),
			Reason:    in.Reason,
			Outcome:   o.String(),
			Seq:       in.Seq,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if in.IsSound() {
			ev.Notes = len(in.Melody)
		} else {
			ev.Color = in.Color.String()
			ev.Mode = in.Mode.String()
		}
		m.bus.Publish(ev)
	}
}

func (m *Manager) laneByName(name string) *lane {
	switch name {
	case LaneLight:
		return m.light
	case LaneSound:
		return m.sound
	}
	return nil
}

// LaneStatus describes one output lane.
type LaneStatus struct {
	Name       string          `json:"name"`
	State      string          `json:"state"`
	Rendering  *intent.Intent  `json:"rendering,omitempty"`
	QueueDepth int             `json:"queue_depth"`
	QueueCap   int             `json:"queue_capacity"`
	Spam       map[string]bool `json:"spam"`
	Admitted   uint64          `json:"admitted"`
	Suppressed uint64          `json:"suppressed"`
	Degraded   uint64          `json:"degraded"`
	Bypassed   uint64          `json:"bypassed"`
	Dropped    uint64          `json:"dropped"`
}

// Status is a point-in-time view of the whole pipeline.
type Status struct {
	Signals    signals.Snapshot `json:"signals"`
	Current    intent.Intent    `json:"current"`
	Pending    bool             `json:"pending"`
	Recomputes uint64           `json:"recomputes"`
	Lanes      []LaneStatus     `json:"lanes"`
}

// Status reports signals, the authoritative intent and every lane.
func (m *Manager) Status() Status {
	m.authMu.RLock()
	cur, pending := m.authority, m.pending
	m.authMu.RUnlock()

	s := Status{
		Signals:    m.store.Snapshot(),
		Current:    cur,
		Pending:    pending,
		Recomputes: m.recomputes.Load(),
	}
	for _, l := range m.lanes() {
		s.Lanes = append(s.Lanes, l.status())
	}
	return s
}
