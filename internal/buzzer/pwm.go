package buzzer

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/smazurov/indicatord/internal/intent"
)

// pwmPin is the part of gpio.PinIO the buzzer needs.
type pwmPin interface {
	PWM(duty gpio.Duty, f physic.Frequency) error
	Out(l gpio.Level) error
	Name() string
}

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// pwmSink drives a passive piezo with a square wave whose frequency is the
// tone pitch and whose duty cycle is the amplitude.
type pwmSink struct {
	mu  sync.Mutex
	pin pwmPin
}

func newPWM(name string) (*pwmSink, error) {
	if name == "" {
		return nil, errors.New("buzzer pin required")
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("PWM pin %q not found: %w", name, intent.ErrDeviceNotReady)
	}
	return &pwmSink{pin: p}, nil
}

func (s *pwmSink) Name() string { return "pwm" }

// PlayTone starts the square wave. It keeps sounding until the next call.
func (s *pwmSink) PlayTone(t intent.Tone) error {
	if t.Silent() {
		return s.Silence()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pin.PWM(duty(t.Amplitude), frequency(t.FrequencyHz)); err != nil {
		return fmt.Errorf("PWM %s at %s: %w", s.pin.Name(), t, err)
	}
	return nil
}

// Silence pulls the pin low.
func (s *pwmSink) Silence() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("silence %s: %w", s.pin.Name(), err)
	}
	return nil
}

func duty(amplitude float64) gpio.Duty {
	amplitude = min(max(amplitude, 0), 1)
	return gpio.Duty(amplitude * float64(gpio.DutyMax))
}

func frequency(hz float64) physic.Frequency {
	return physic.Frequency(hz * float64(physic.Hertz))
}
