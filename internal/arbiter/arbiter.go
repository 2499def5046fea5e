// Package arbiter maps a snapshot of the tracked signals to the single intent
// that should occupy the indicator.
package arbiter

import (
	"fmt"
	"time"

	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/signals"
)

// Arbiter evaluates priority classes from highest to lowest. It holds only
// immutable configuration and is safe for concurrent use.
type Arbiter struct {
	cfg Config
}

// New creates an arbiter. The config is expected to be validated.
func New(cfg Config) *Arbiter {
	return &Arbiter{cfg: cfg}
}

// Config returns the arbiter's configuration.
func (a *Arbiter) Config() Config { return a.cfg }

// Compute returns the intent of the highest priority class whose guard holds.
// Critical battery outranks caps lock.
func (a *Arbiter) Compute(s signals.Snapshot) intent.Intent {
	if !s.Boot.Complete {
		return intent.Off()
	}
	for _, class := range intent.Classes() {
		if in, ok := a.evaluate(class, s); ok {
			return in
		}
	}
	return intent.Off()
}

func (a *Arbiter) evaluate(class intent.Class, s signals.Snapshot) (intent.Intent, bool) {
	c := a.cfg
	switch class {
	case intent.ClassCritical:
		if !s.Battery.Unknown && s.Battery.Percent <= c.CriticalBatteryPct {
			return intent.Intent{
				Class:  intent.ClassCritical,
				Color:  c.CriticalColor,
				Mode:   intent.BlinkForever(c.CriticalBlink.On, c.CriticalBlink.Off),
				Reason: "battery_critical",
			}, true
		}

	case intent.ClassCapsLock:
		if s.CapsLock.Active {
			return intent.Intent{
				Class:  intent.ClassCapsLock,
				Color:  c.CapsLockColor,
				Mode:   intent.Solid(),
				Reason: "caps_lock",
			}, true
		}

	case intent.ClassBattery:
		switch {
		case s.Battery.Unknown:
			return intent.Intent{
				Class:  intent.ClassBattery,
				Color:  c.BatteryUnknownColor,
				Mode:   intent.BlinkForever(c.BatteryBlink.On, c.BatteryBlink.Off),
				Reason: "battery_unknown",
			}, true
		case s.Battery.Percent <= c.LowBatteryPct:
			return intent.Intent{
				Class:  intent.ClassBattery,
				Color:  c.BatteryLowColor,
				Mode:   intent.BlinkForever(c.BatteryBlink.On, c.BatteryBlink.Off),
				Reason: "battery_low",
			}, true
		}

	case intent.ClassLink:
		if s.LinkKnown {
			return a.linkIntent(s.Link), true
		}

	case intent.ClassIdle:
		return intent.Off(), true
	}
	return intent.Intent{}, false
}

func (a *Arbiter) linkIntent(l signals.Link) intent.Intent {
	c := a.cfg
	switch {
	case l.Connected:
		return intent.Intent{
			Class:  intent.ClassLink,
			Color:  c.ProfileColor(l.ProfileIndex),
			Mode:   intent.Blink(1, c.LinkBlink.On, c.LinkBlink.Off),
			Reason: fmt.Sprintf("link_connected/%d", l.ProfileIndex),
		}
	case l.Advertising:
		return intent.Intent{
			Class:  intent.ClassLink,
			Color:  c.LinkAdvertisingColor,
			Mode:   intent.BlinkForever(c.AdvertisingBlink.On, c.AdvertisingBlink.Off),
			Reason: "link_advertising",
		}
	default:
		return intent.Intent{
			Class:  intent.ClassLink,
			Color:  c.LinkDisconnectedColor,
			Mode:   intent.Blink(1, c.LinkBlink.On, c.LinkBlink.Off),
			Reason: "link_disconnected",
		}
	}
}

// IndicateKind selects an on-demand indication.
type IndicateKind string

// On-demand indications.
const (
	IndicateBattery      IndicateKind = "battery"
	IndicateConnectivity IndicateKind = "connectivity"
	IndicateProfile      IndicateKind = "profile"
)

// ParseIndicateKind validates an indication name.
func ParseIndicateKind(s string) (IndicateKind, error) {
	switch k := IndicateKind(s); k {
	case IndicateBattery, IndicateConnectivity, IndicateProfile:
		return k, nil
	}
	return "", fmt.Errorf("unknown indication %q", s)
}

// Indicate builds a one-shot indication of the current battery band, link
// state or profile color, independent of what the priority order shows.
func (a *Arbiter) Indicate(kind IndicateKind, s signals.Snapshot) (intent.Intent, error) {
	c := a.cfg
	switch kind {
	case IndicateBattery:
		color, band := a.BatteryBand(s.Battery)
		return intent.Intent{
			Class:  intent.ClassBattery,
			Color:  color,
			Mode:   intent.Blink(1, c.BatteryBlink.On*2, c.Interval),
			Reason: "indicate_battery_" + band,
		}, nil

	case IndicateConnectivity:
		if !s.LinkKnown {
			return intent.Intent{
				Class:  intent.ClassLink,
				Color:  c.LinkDisconnectedColor,
				Mode:   intent.Blink(1, c.LinkBlink.On, c.Interval),
				Reason: "indicate_link_unknown",
			}, nil
		}
		in := a.linkIntent(s.Link)
		in.Mode = intent.Blink(1, c.LinkBlink.On, c.Interval)
		in.Reason = "indicate_" + in.Reason
		return in, nil

	case IndicateProfile:
		return intent.Intent{
			Class:  intent.ClassLink,
			Color:  c.ProfileColor(s.Link.ProfileIndex),
			Mode:   intent.SolidFor(c.ProfileHold),
			Reason: fmt.Sprintf("indicate_profile/%d", s.Link.ProfileIndex),
		}, nil
	}
	return intent.Intent{}, fmt.Errorf("unknown indication %q", kind)
}

// BatteryBand classifies a battery reading into the full band table.
func (a *Arbiter) BatteryBand(b signals.Battery) (intent.Color, string) {
	c := a.cfg
	switch {
	case b.Unknown:
		return c.BatteryUnknownColor, "unknown"
	case b.Percent >= c.HighBatteryPct:
		return c.BatteryHighColor, "high"
	case b.Percent > c.LowBatteryPct:
		return c.BatteryMediumColor, "medium"
	case b.Percent > c.CriticalBatteryPct:
		return c.BatteryLowColor, "low"
	default:
		return c.CriticalColor, "critical"
	}
}

// RainbowBoot is the light sequence played once at startup.
func (a *Arbiter) RainbowBoot() []intent.Intent {
	const phase = 250 * time.Millisecond
	colors := []intent.Color{
		intent.Red, intent.Yellow, intent.Green, intent.Cyan,
		intent.Blue, intent.Magenta, intent.White,
	}
	seq := make([]intent.Intent, 0, len(colors))
	for _, col := range colors {
		seq = append(seq, intent.Intent{
			Class:  intent.ClassIdle,
			Color:  col,
			Mode:   intent.Blink(1, phase, phase),
			Reason: "boot_rainbow",
		})
	}
	return seq
}
