package indicator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/ratelimit"
	"github.com/smazurov/indicatord/internal/signals"
)

type recordingLight struct {
	mu     sync.Mutex
	colors []intent.Color
}

func (r *recordingLight) SetColor(c intent.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colors = append(r.colors, c)
	return nil
}

func (r *recordingLight) Name() string { return "recording" }

func (r *recordingLight) lastLit() (intent.Color, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.colors) - 1; i >= 0; i-- {
		if r.colors[i] != intent.Black {
			return r.colors[i], true
		}
	}
	return intent.Black, false
}

type recordingSound struct {
	mu    sync.Mutex
	tones []intent.Tone
}

func (r *recordingSound) PlayTone(t intent.Tone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tones = append(r.tones, t)
	return nil
}

func (r *recordingSound) Silence() error { return nil }
func (r *recordingSound) Name() string   { return "recording" }

func (r *recordingSound) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tones)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig keeps the stock priorities and guard but shortens the visual
// timings so renders finish quickly.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BootEffect = false
	cfg.StartupSound = false
	cfg.PollInterval = 0
	cfg.DebounceBattery = 0
	cfg.NoteGap = time.Millisecond
	short := arbiter.Phases{On: 5 * time.Millisecond, Off: 5 * time.Millisecond}
	cfg.Arbiter.CriticalBlink = short
	cfg.Arbiter.BatteryBlink = short
	cfg.Arbiter.LinkBlink = short
	cfg.Arbiter.AdvertisingBlink = short
	cfg.Arbiter.Interval = time.Millisecond
	return cfg
}

func startManager(t *testing.T, cfg Config, light intent.IndicatorSink, sound intent.AudioSink, bus *events.Bus) *Manager {
	t.Helper()
	m, err := NewManager(cfg, light, sound, bus, quietLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewManager_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 0
	if _, err := NewManager(cfg, nil, nil, nil, quietLogger()); err == nil {
		t.Error("expected validation error")
	}
}

func TestManager_CriticalBatteryWins(t *testing.T) {
	light := &recordingLight{}
	m := startManager(t, testConfig(), light, nil, nil)

	m.OnBootComplete()
	m.OnLinkChanged(true, false, 1)
	m.OnBatteryChanged(5)

	waitFor(t, time.Second, func() bool {
		return m.Current().Class == intent.ClassCritical
	})
	cur := m.Current()
	if cur.Color != intent.Red || !cur.Mode.Continuous() {
		t.Errorf("current = %s, want continuous red blink", cur)
	}
	waitFor(t, time.Second, func() bool {
		c, ok := light.lastLit()
		return ok && c == intent.Red
	})
}

func TestManager_CompletesBootItself(t *testing.T) {
	tests := []struct {
		name       string
		bootEffect bool
	}{
		{"without boot effect", false},
		{"after boot effect", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BootEffect = tt.bootEffect
			light := &recordingLight{}
			m := startManager(t, cfg, light, nil, nil)

			m.OnLinkChanged(true, false, 1)
			m.OnBatteryChanged(5)

			// The rainbow takes 3.5 s.
			waitFor(t, 5*time.Second, func() bool { return m.Current().Class == intent.ClassCritical })
			waitFor(t, time.Second, func() bool {
				c, ok := light.lastLit()
				return ok && c == intent.Red
			})
			if !m.Snapshot().Boot.Complete {
				t.Error("boot should be complete")
			}
		})
	}
}

func TestManager_WaitForBoot(t *testing.T) {
	cfg := testConfig()
	cfg.WaitForBoot = true
	m := startManager(t, cfg, &recordingLight{}, nil, nil)

	m.OnBatteryChanged(5)
	time.Sleep(50 * time.Millisecond)
	if cur := m.Current(); cur.Class != intent.ClassIdle {
		t.Fatalf("current = %s before boot event, want idle", cur)
	}

	m.OnBootComplete()
	waitFor(t, time.Second, func() bool { return m.Current().Class == intent.ClassCritical })
}

func TestManager_CapsLockDebounce(t *testing.T) {
	cfg := testConfig()
	cfg.DebounceCapsLock = 500 * time.Millisecond
	light := &recordingLight{}
	m := startManager(t, cfg, light, nil, nil)

	m.OnBootComplete()
	m.OnBatteryChanged(90)
	waitFor(t, time.Second, func() bool { return m.Status().Signals.Boot.Complete })
	time.Sleep(20 * time.Millisecond)
	before := m.Status().Recomputes

	for range 2 {
		m.OnCapsLockChanged(capsLockBit)
		time.Sleep(10 * time.Millisecond)
		m.OnCapsLockChanged(0)
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(700 * time.Millisecond)
	if got := m.Status().Recomputes - before; got != 1 {
		t.Errorf("recomputes = %d, want 1", got)
	}
	if m.Current().Class == intent.ClassCapsLock {
		t.Error("caps lock should have settled off")
	}
}

func TestManager_CapsLockFlagBit(t *testing.T) {
	cfg := testConfig()
	cfg.DebounceCapsLock = 0
	m := startManager(t, cfg, &recordingLight{}, nil, nil)

	m.OnBootComplete()
	m.OnBatteryChanged(90)
	m.OnCapsLockChanged(0x01) // num lock only
	if m.Snapshot().CapsLock.Active {
		t.Error("num lock bit must not activate caps lock")
	}
	m.OnCapsLockChanged(0x03)
	waitFor(t, time.Second, func() bool { return m.Current().Class == intent.ClassCapsLock })
	if m.Current().Color != intent.White {
		t.Errorf("caps lock color = %s, want white", m.Current().Color)
	}
}

func TestManager_FlakyLinkSpamGuard(t *testing.T) {
	light := &recordingLight{}
	m := startManager(t, testConfig(), light, nil, nil)

	m.OnBatteryChanged(90)
	m.OnBootComplete()
	waitFor(t, time.Second, func() bool { return m.Status().Signals.Boot.Complete })

	lightLane := func() LaneStatus { return m.Status().Lanes[0] }
	base := lightLane()

	for i := range 10 {
		m.OnLinkChanged(i%2 == 0, false, 0)
		time.Sleep(100 * time.Millisecond)
	}

	st := lightLane()
	if got := st.Admitted - base.Admitted; got != 5 {
		t.Errorf("admitted = %d, want 5", got)
	}
	if got := st.Suppressed - base.Suppressed; got != 5 {
		t.Errorf("suppressed = %d, want 5", got)
	}
	if !st.Spam["link"] {
		t.Error("link category should be in spam mode")
	}
	if !m.Status().Pending {
		t.Error("suppressed authority should be pending")
	}

	time.Sleep(2100 * time.Millisecond)
	m.OnLinkChanged(true, false, 0)

	st = lightLane()
	if got := st.Admitted - base.Admitted; got != 6 {
		t.Errorf("admitted after quiet = %d, want 6", got)
	}
	if st.Spam["link"] {
		t.Error("spam mode should have ended")
	}
}

func TestManager_PollReoffersSuppressedAuthority(t *testing.T) {
	cfg := testConfig()
	cfg.Guard.Link.Cooldown = 100 * time.Millisecond
	cfg.Guard.Link.Threshold = 2
	cfg.PollInterval = 150 * time.Millisecond
	m := startManager(t, cfg, &recordingLight{}, nil, nil)

	m.OnBatteryChanged(90)
	m.OnBootComplete()
	for i := range 4 {
		m.OnLinkChanged(i%2 == 1, false, 0)
	}
	if !m.Status().Pending {
		t.Fatal("expected suppressed authority")
	}
	waitFor(t, 2*time.Second, func() bool { return !m.Status().Pending })
}

func TestManager_IdleBypassesGuard(t *testing.T) {
	cfg := testConfig()
	cfg.Guard.Generic.Threshold = 1
	cfg.Guard.Generic.Degrade = false
	m := startManager(t, cfg, &recordingLight{}, nil, nil)

	m.OnBootComplete()
	m.OnBatteryChanged(90)
	base := m.Status().Lanes[0]
	for range 5 {
		m.OnBatteryChanged(5)
		m.OnBatteryChanged(90)
	}
	st := m.Status().Lanes[0]
	if st.Bypassed-base.Bypassed != 10 {
		t.Errorf("bypassed = %d, want 10", st.Bypassed-base.Bypassed)
	}
}

func TestManager_ProfileChangePlaysMelody(t *testing.T) {
	light := &recordingLight{}
	sound := &recordingSound{}
	m := startManager(t, testConfig(), light, sound, nil)

	m.OnBatteryChanged(90)
	m.OnBootComplete()
	m.OnLinkChanged(true, false, 0)
	m.OnLinkChanged(true, false, 2)

	waitFor(t, 2*time.Second, func() bool { return sound.count() > 0 })
	cur := m.Current()
	if cur.Class != intent.ClassLink || cur.Color != intent.Blue {
		t.Errorf("current = %s, want blue profile 2 link intent", cur)
	}
}

func TestManager_NoSoundBeforeBoot(t *testing.T) {
	cfg := testConfig()
	cfg.WaitForBoot = true
	sound := &recordingSound{}
	m := startManager(t, cfg, nil, sound, nil)

	m.OnLinkChanged(true, false, 0)
	m.OnLinkChanged(true, false, 1)
	m.OnEndpointChanged(signals.TransportUSB)
	time.Sleep(50 * time.Millisecond)
	if sound.count() != 0 {
		t.Errorf("played %d tones before boot completed", sound.count())
	}
}

func TestManager_Indicate(t *testing.T) {
	light := &recordingLight{}
	m := startManager(t, testConfig(), light, nil, nil)

	m.OnBootComplete()
	m.OnBatteryChanged(90)
	if err := m.Indicate(arbiter.IndicateBattery); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool {
		c, ok := light.lastLit()
		return ok && c == intent.Green
	})
}

func TestManager_IndicateSuppressed(t *testing.T) {
	cfg := testConfig()
	cfg.Guard.Generic = ratelimit.Policy{MinInterval: time.Second, Threshold: 1, Cooldown: time.Second}
	m := startManager(t, cfg, &recordingLight{}, nil, nil)
	m.OnBatteryChanged(90)

	var err error
	for range 3 {
		err = m.Indicate(arbiter.IndicateBattery)
	}
	if !errors.Is(err, intent.ErrSuppressed) {
		t.Fatalf("err = %v, want suppressed", err)
	}
	if m.Status().Lanes[0].Suppressed == 0 {
		t.Error("suppression not counted")
	}
}

func TestManager_IndicateWithoutLight(t *testing.T) {
	m := startManager(t, testConfig(), nil, &recordingSound{}, nil)
	if err := m.Indicate(arbiter.IndicateBattery); err == nil {
		t.Error("expected error without a light lane")
	}
}

func TestManager_BusEvents(t *testing.T) {
	bus := events.New()
	rendered := make(chan any, 64)
	unsub := events.SubscribeToChannel[events.IntentRenderedEvent](bus, rendered)
	defer unsub()

	cfg := testConfig()
	cfg.DebounceCapsLock = 0
	m := startManager(t, cfg, &recordingLight{}, nil, bus)

	bus.Publish(events.BootCompleteEvent{Source: "test"})
	bus.Publish(events.BatteryChangedEvent{Percent: 90, Source: "test"})
	bus.Publish(events.CapsLockChangedEvent{Flags: capsLockBit, Source: "test"})

	waitFor(t, time.Second, func() bool { return m.Current().Class == intent.ClassCapsLock })

	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-rendered:
			if e, ok := ev.(events.IntentRenderedEvent); ok && e.Worker == LaneLight {
				return
			}
		case <-timeout:
			t.Fatal("no IntentRenderedEvent published")
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative debounce", func(c *Config) { c.DebounceBattery = -time.Second }, true},
		{"negative poll", func(c *Config) { c.PollInterval = -1 }, true},
		{"negative threshold", func(c *Config) { c.Guard.Link.Threshold = -1 }, true},
		{"bad arbiter", func(c *Config) { c.Arbiter.LowBatteryPct = 200 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
