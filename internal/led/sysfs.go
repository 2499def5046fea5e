package led

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/smazurov/indicatord/internal/intent"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives up to three single-color LEDs through the Linux sysfs LED
// interface, one per color channel. An empty name leaves the channel unwired.
type sysfs struct {
	root string
	leds [3]string

	mu       sync.Mutex
	claimed  bool
	channels [3]bool
}

func newSysfs(root string, leds [3]string) *sysfs {
	return &sysfs{root: root, leds: leds}
}

// Name identifies the sink in logs.
func (s *sysfs) Name() string { return "sysfs" }

// SetColor switches each wired channel on or off.
func (s *sysfs) SetColor(c intent.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.claimed {
		if err := s.claim(); err != nil {
			return err
		}
		s.claimed = true
	}

	want := c.Channels()
	for i, name := range s.leds {
		if name == "" || s.channels[i] == want[i] {
			continue
		}
		if err := s.write(name, "brightness", brightness(want[i])); err != nil {
			return err
		}
		s.channels[i] = want[i]
	}
	return nil
}

// claim sets every wired LED's trigger to "none" so the kernel stops
// driving it and turns it off.
func (s *sysfs) claim() error {
	wired := 0
	for _, name := range s.leds {
		if name == "" {
			continue
		}
		wired++
		ledPath := filepath.Join(s.root, name)
		if _, err := os.Stat(ledPath); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("LED %q not found at %s: %w", name, ledPath, intent.ErrDeviceNotReady)
		}
		if err := s.write(name, "trigger", "none"); err != nil {
			return err
		}
		if err := s.write(name, "brightness", "0"); err != nil {
			return err
		}
	}
	if wired == 0 {
		return fmt.Errorf("no sysfs LEDs configured: %w", intent.ErrDeviceNotReady)
	}
	return nil
}

func (s *sysfs) write(name, attr, value string) error {
	path := filepath.Join(s.root, name, attr)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED %s %s: %w", name, attr, err)
	}
	return nil
}

func brightness(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
