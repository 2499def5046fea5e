package led

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/smazurov/indicatord/internal/intent"
)

// outPin is the part of gpio.PinIO the sink needs. Tests substitute it.
type outPin interface {
	Out(l gpio.Level) error
	Name() string
}

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// gpioSink drives a common-cathode (or, with activeLow, common-anode) RGB
// LED wired to three GPIO lines.
type gpioSink struct {
	mu        sync.Mutex
	pins      [3]outPin
	activeLow bool
}

func newGPIO(names [3]string, activeLow bool) (*gpioSink, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	var pins [3]outPin
	for i, name := range names {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("GPIO pin %q not found: %w", name, intent.ErrDeviceNotReady)
		}
		pins[i] = p
	}
	return newGPIOFromPins(pins, activeLow), nil
}

func newGPIOFromPins(pins [3]outPin, activeLow bool) *gpioSink {
	return &gpioSink{pins: pins, activeLow: activeLow}
}

// Name identifies the sink in logs.
func (g *gpioSink) Name() string { return "gpio" }

// SetColor drives each channel's pin.
func (g *gpioSink) SetColor(c intent.Color) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, on := range c.Channels() {
		p := g.pins[i]
		if p == nil {
			continue
		}
		level := gpio.Level(on != g.activeLow)
		if err := p.Out(level); err != nil {
			return fmt.Errorf("GPIO %s: %w", p.Name(), err)
		}
	}
	return nil
}
