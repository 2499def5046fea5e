// Package buzzer provides tone generator sinks: a PWM-driven piezo, a WAV
// recorder and a no-op fallback.
package buzzer

import (
	"fmt"
	"strings"

	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/logging"
)

// Driver selects the tone generator backend.
type Driver string

// Supported drivers. DriverNone disables the sound lane entirely.
const (
	DriverNone Driver = "none"
	DriverPWM  Driver = "pwm"
	DriverWAV  Driver = "wav"
	DriverNoop Driver = "noop"
)

// Options configures New.
type Options struct {
	Driver Driver

	// Pin is the periph name of a PWM-capable pin, e.g. "GPIO18".
	Pin string

	// Path receives the recording when Driver is DriverWAV.
	Path       string
	SampleRate int
}

// New creates a tone generator. It returns nil for DriverNone and falls
// back to the no-op sink when the hardware is unavailable.
func New(opts Options, logger logging.Logger) intent.AudioSink {
	switch opts.Driver {
	case DriverNone, "":
		return nil
	case DriverPWM:
		s, err := newPWM(opts.Pin)
		if err != nil {
			logger.Warn("PWM buzzer unavailable, using no-op sink", "pin", opts.Pin, "error", err)
			return newNoop(logger)
		}
		return s
	case DriverWAV:
		s, err := NewRecorder(opts.Path, opts.SampleRate)
		if err != nil {
			logger.Warn("WAV recorder unavailable, using no-op sink", "path", opts.Path, "error", err)
			return newNoop(logger)
		}
		return s
	case DriverNoop:
		return newNoop(logger)
	default:
		logger.Warn("Unknown buzzer driver, using no-op sink", "driver", opts.Driver)
		return newNoop(logger)
	}
}

// ParseDriver validates a driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DriverNone:
		return DriverNone, nil
	case DriverPWM, DriverWAV, DriverNoop:
		return d, nil
	default:
		return "", fmt.Errorf("unknown buzzer driver %q", s)
	}
}

type noop struct {
	logger logging.Logger
}

func newNoop(logger logging.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Name() string { return "noop" }

func (n *noop) PlayTone(t intent.Tone) error {
	n.logger.Debug("Buzzer not available (no-op)", "tone", t)
	return nil
}

func (n *noop) Silence() error { return nil }
