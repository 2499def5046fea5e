package sources

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/indicatord/internal/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSignalFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, sf SignalFile)
		wantErr string
	}{
		{
			name: "all sections",
			content: `
[battery]
percent = 42

[link]
connected = true
profile = 2

[capslock]
active = true

[boot]
complete = true

[endpoint]
transport = "ble"
`,
			check: func(t *testing.T, sf SignalFile) {
				if sf.Battery == nil || sf.Battery.Percent == nil || *sf.Battery.Percent != 42 {
					t.Errorf("battery = %+v", sf.Battery)
				}
				if sf.Link == nil || !sf.Link.Connected || sf.Link.Profile != 2 {
					t.Errorf("link = %+v", sf.Link)
				}
				if sf.CapsLock == nil || !sf.CapsLock.Active {
					t.Errorf("capslock = %+v", sf.CapsLock)
				}
				if sf.Endpoint == nil || sf.Endpoint.Transport != "ble" {
					t.Errorf("endpoint = %+v", sf.Endpoint)
				}
			},
		},
		{
			name:    "battery without percent",
			content: "[battery]\n",
			check: func(t *testing.T, sf SignalFile) {
				if sf.Battery == nil || sf.Battery.Percent != nil {
					t.Errorf("battery = %+v, want present without percent", sf.Battery)
				}
				if sf.Link != nil {
					t.Error("link should be absent")
				}
			},
		},
		{
			name:    "unknown key",
			content: "[battery]\nvoltage = 3.7\n",
			wantErr: "voltage",
		},
		{
			name:    "invalid toml",
			content: "[battery\n",
			wantErr: "signal file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "signals.toml")
			writeFile(t, path, tt.content)

			sf, err := LoadSignalFile(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, sf)
		})
	}
}

func TestSignalFileEvents(t *testing.T) {
	pct := 7
	sf := SignalFile{
		Battery:  &BatterySection{Percent: &pct},
		CapsLock: &CapsLockSection{Active: true},
		Boot:     &BootSection{Complete: true},
	}
	evs := sf.Events(time.Now())
	if len(evs) != 3 {
		t.Fatalf("got %d events, want 3", len(evs))
	}
	if _, ok := evs[0].(events.BootCompleteEvent); !ok {
		t.Errorf("first event = %T, want boot", evs[0])
	}
	if b := evs[1].(events.BatteryChangedEvent); b.Percent != 7 || b.Unknown {
		t.Errorf("battery = %+v", b)
	}
	if c := evs[2].(events.CapsLockChangedEvent); c.Flags != 0x02 {
		t.Errorf("caps lock flags = %#x", c.Flags)
	}

	unknown := SignalFile{Battery: &BatterySection{}}.Events(time.Now())
	if b := unknown[0].(events.BatteryChangedEvent); !b.Unknown {
		t.Error("battery without percent should be unknown")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.toml")
	writeFile(t, path, "[battery]\npercent = 80\n")

	bus := events.New()
	ch := make(chan any, 8)
	unsub := events.SubscribeToChannel[events.BatteryChangedEvent](bus, ch)
	defer unsub()

	src := NewFileSource(path, 50*time.Millisecond, bus, quietLogger())
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	expect := func(want int) {
		t.Helper()
		select {
		case ev := <-ch:
			if b := ev.(events.BatteryChangedEvent); b.Percent != want || b.Source != "file" {
				t.Errorf("battery event = %+v, want %d from file", b, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no battery event for %d", want)
		}
	}

	expect(80)

	writeFile(t, path, "[battery]\npercent = 15\n")
	expect(15)
}

func TestFileSource_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.toml")
	bus := events.New()
	ch := make(chan any, 8)
	unsub := events.SubscribeToChannel[events.LinkChangedEvent](bus, ch)
	defer unsub()

	src := NewFileSource(path, 50*time.Millisecond, bus, quietLogger())
	if err := src.Start(); err != nil {
		t.Fatalf("missing file should not fail Start: %v", err)
	}
	defer src.Stop()

	writeFile(t, path, "[link]\nconnected = true\nprofile = 1\n")

	select {
	case ev := <-ch:
		if l := ev.(events.LinkChangedEvent); !l.Connected || l.Profile != 1 {
			t.Errorf("link event = %+v", l)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("file created after start was not picked up")
	}
}
