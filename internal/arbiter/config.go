package arbiter

import (
	"errors"
	"fmt"
	"time"

	"github.com/smazurov/indicatord/internal/intent"
)

// Phases is an on/off blink timing pair.
type Phases struct {
	On  time.Duration
	Off time.Duration
}

// Config holds every threshold, color and timing the arbiter uses.
type Config struct {
	CriticalBatteryPct int
	LowBatteryPct      int
	HighBatteryPct     int

	CriticalColor         intent.Color
	CapsLockColor         intent.Color
	BatteryUnknownColor   intent.Color
	BatteryLowColor       intent.Color
	BatteryMediumColor    intent.Color
	BatteryHighColor      intent.Color
	LinkConnectedColor    intent.Color
	LinkAdvertisingColor  intent.Color
	LinkDisconnectedColor intent.Color

	CriticalBlink    Phases
	BatteryBlink     Phases
	LinkBlink        Phases
	AdvertisingBlink Phases

	// Interval is the dark gap after a one-shot indication.
	Interval time.Duration

	// ProfileHold is how long a profile color stays lit before auto-off.
	ProfileHold time.Duration

	// ProfileColors maps a link profile index to its color. Profiles past
	// the end of the table use LinkConnectedColor.
	ProfileColors []intent.Color
}

// DefaultConfig returns the stock thresholds and color table.
func DefaultConfig() Config {
	return Config{
		CriticalBatteryPct: 10,
		LowBatteryPct:      50,
		HighBatteryPct:     80,

		CriticalColor:         intent.Red,
		CapsLockColor:         intent.White,
		BatteryUnknownColor:   intent.Magenta,
		BatteryLowColor:       intent.Red,
		BatteryMediumColor:    intent.Yellow,
		BatteryHighColor:      intent.Green,
		LinkConnectedColor:    intent.Blue,
		LinkAdvertisingColor:  intent.Cyan,
		LinkDisconnectedColor: intent.Red,

		CriticalBlink:    Phases{On: 250 * time.Millisecond, Off: 250 * time.Millisecond},
		BatteryBlink:     Phases{On: 500 * time.Millisecond, Off: 2500 * time.Millisecond},
		LinkBlink:        Phases{On: 1000 * time.Millisecond, Off: 500 * time.Millisecond},
		AdvertisingBlink: Phases{On: 500 * time.Millisecond, Off: 1500 * time.Millisecond},

		Interval:    500 * time.Millisecond,
		ProfileHold: 3 * time.Second,

		ProfileColors: []intent.Color{intent.Red, intent.Green, intent.Blue, intent.Yellow, intent.Magenta},
	}
}

// Validate rejects inverted thresholds, unknown colors and empty blink phases.
func (c Config) Validate() error {
	var errs []error

	if c.CriticalBatteryPct < 0 || c.HighBatteryPct > 100 {
		errs = append(errs, fmt.Errorf("battery thresholds must lie within 0..100"))
	}
	if c.CriticalBatteryPct >= c.LowBatteryPct {
		errs = append(errs, fmt.Errorf("critical threshold %d must be below low threshold %d", c.CriticalBatteryPct, c.LowBatteryPct))
	}
	if c.LowBatteryPct >= c.HighBatteryPct {
		errs = append(errs, fmt.Errorf("low threshold %d must be below high threshold %d", c.LowBatteryPct, c.HighBatteryPct))
	}

	colors := map[string]intent.Color{
		"critical":          c.CriticalColor,
		"caps_lock":         c.CapsLockColor,
		"battery_unknown":   c.BatteryUnknownColor,
		"battery_low":       c.BatteryLowColor,
		"battery_medium":    c.BatteryMediumColor,
		"battery_high":      c.BatteryHighColor,
		"link_connected":    c.LinkConnectedColor,
		"link_advertising":  c.LinkAdvertisingColor,
		"link_disconnected": c.LinkDisconnectedColor,
	}
	for name, col := range colors {
		if !col.Valid() {
			errs = append(errs, fmt.Errorf("%s color: invalid value %d", name, col))
		}
	}
	for i, col := range c.ProfileColors {
		if !col.Valid() {
			errs = append(errs, fmt.Errorf("profile %d color: invalid value %d", i, col))
		}
	}

	phases := map[string]Phases{
		"critical":    c.CriticalBlink,
		"battery":     c.BatteryBlink,
		"link":        c.LinkBlink,
		"advertising": c.AdvertisingBlink,
	}
	for name, p := range phases {
		if p.On <= 0 || p.Off < 0 {
			errs = append(errs, fmt.Errorf("%s blink: on must be positive and off non-negative", name))
		}
	}

	return errors.Join(errs...)
}

// ProfileColor returns the color configured for a profile index.
func (c Config) ProfileColor(profile int) intent.Color {
	if profile >= 0 && profile < len(c.ProfileColors) {
		return c.ProfileColors[profile]
	}
	return c.LinkConnectedColor
}
