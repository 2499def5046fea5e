// Package sources feeds signals into the event bus from outside the
// process. The file source mirrors a small TOML file that scripts or other
// daemons keep up to date.
package sources

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/indicatord/internal/config"
	"github.com/smazurov/indicatord/internal/events"
)

const fileSource = "file"

// SignalFile is the on-disk format. Absent sections leave their signal
// untouched.
//
//	[battery]
//	percent = 42
//
//	[link]
//	connected = true
//	profile = 1
//
//	[capslock]
//	active = false
//
//	[boot]
//	complete = true
//
//	[endpoint]
//	transport = "usb"
type SignalFile struct {
	Battery  *BatterySection  `toml:"battery"`
	Link     *LinkSection     `toml:"link"`
	CapsLock *CapsLockSection `toml:"capslock"`
	Boot     *BootSection     `toml:"boot"`
	Endpoint *EndpointSection `toml:"endpoint"`
}

// BatterySection reports the state of charge. A missing percent means the
// level is unknown.
type BatterySection struct {
	Percent *int `toml:"percent"`
}

// LinkSection reports the link of the active profile.
type LinkSection struct {
	Connected   bool `toml:"connected"`
	Advertising bool `toml:"advertising"`
	Profile     int  `toml:"profile"`
}

// CapsLockSection reports the host's caps lock state.
type CapsLockSection struct {
	Active bool `toml:"active"`
}

// BootSection marks the end of startup.
type BootSection struct {
	Complete bool `toml:"complete"`
}

// EndpointSection reports the active output transport.
type EndpointSection struct {
	Transport string `toml:"transport"`
}

// LoadSignalFile parses a signal file. Unknown keys are rejected.
func LoadSignalFile(path string) (SignalFile, error) {
	var sf SignalFile

	f, err := os.Open(path)
	if err != nil {
		return sf, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&sf); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return sf, fmt.Errorf("signal file %s: %s", path, strict.String())
		}
		return sf, fmt.Errorf("signal file %s: %w", path, err)
	}
	return sf, nil
}

// Events converts the file into bus events, in a fixed order.
func (sf SignalFile) Events(now time.Time) []events.Event {
	ts := now.Format(time.RFC3339)
	var evs []events.Event

	if sf.Boot != nil && sf.Boot.Complete {
		evs = append(evs, events.BootCompleteEvent{Source: fileSource, Timestamp: ts})
	}
	if sf.Battery != nil {
		ev := events.BatteryChangedEvent{Unknown: true, Source: fileSource, Timestamp: ts}
		if sf.Battery.Percent != nil {
			ev.Percent, ev.Unknown = *sf.Battery.Percent, false
		}
		evs = append(evs, ev)
	}
	if sf.Link != nil {
		evs = append(evs, events.LinkChangedEvent{
			Connected:   sf.Link.Connected,
			Advertising: sf.Link.Advertising,
			Profile:     sf.Link.Profile,
			Source:      fileSource,
			Timestamp:   ts,
		})
	}
	if sf.CapsLock != nil {
		var flags uint8
		if sf.CapsLock.Active {
			flags = 0x02
		}
		evs = append(evs, events.CapsLockChangedEvent{Flags: flags, Source: fileSource, Timestamp: ts})
	}
	if sf.Endpoint != nil {
		evs = append(evs, events.EndpointChangedEvent{Transport: sf.Endpoint.Transport, Source: fileSource, Timestamp: ts})
	}
	return evs
}

// FileSource republishes a signal file whenever it changes. Unchanged values
// are filtered by the signal store.
type FileSource struct {
	path    string
	bus     *events.Bus
	watcher *config.Watcher[SignalFile]
	logger  *slog.Logger
	unsub   func()
}

// NewFileSource creates a file source. debounce <= 0 uses 100ms.
func NewFileSource(path string, debounce time.Duration, bus *events.Bus, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &FileSource{
		path:    path,
		bus:     bus,
		logger:  logger,
		watcher: config.NewConfigWatcher(path, LoadSignalFile, logger, config.WithDebounce[SignalFile](debounce)),
	}
}

// Start publishes the current contents and begins watching. A missing file
// is not an error; it is picked up once created.
func (s *FileSource) Start() error {
	s.unsub = s.watcher.OnReload(s.publish)
	if err := s.watcher.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	if err := s.watcher.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Initial signal file load failed", "path", s.path, "error", err)
	}
	s.logger.Info("File source started", "path", s.path)
	return nil
}

// Stop stops watching.
func (s *FileSource) Stop() error {
	if s.unsub != nil {
		s.unsub()
	}
	return s.watcher.Stop()
}

func (s *FileSource) publish(sf SignalFile) {
	evs := sf.Events(time.Now())
	for _, ev := range evs {
		s.bus.Publish(ev)
	}
	s.logger.Debug("Signal file applied", "path", s.path, "events", len(evs))
}
