package arbiter

import (
	"testing"

	"github.com/smazurov/indicatord/internal/signals"
)

func TestCue(t *testing.T) {
	a := New(DefaultConfig())
	snap := booted()

	tests := []struct {
		name     string
		change   signals.Change
		wantKind CueKind
		wantLen  int
		wantOK   bool
	}{
		{
			name: "profile switch plays profile melody",
			change: signals.Change{
				Kind:           signals.KindLink,
				Old:            signals.Link{Connected: true, ProfileIndex: 0},
				New:            signals.Link{Connected: true, ProfileIndex: 2},
				ProfileChanged: true,
			},
			wantKind: CueProfile,
			wantLen:  3,
			wantOK:   true,
		},
		{
			name: "profile index past the table clamps",
			change: signals.Change{
				Kind:           signals.KindLink,
				New:            signals.Link{ProfileIndex: 9},
				ProfileChanged: true,
			},
			wantKind: CueProfile,
			wantLen:  5,
			wantOK:   true,
		},
		{
			name: "connect plays connected melody",
			change: signals.Change{
				Kind: signals.KindLink,
				Old:  signals.Link{Advertising: true},
				New:  signals.Link{Connected: true},
			},
			wantKind: CueConnected,
			wantLen:  4,
			wantOK:   true,
		},
		{
			name: "disconnect is silent",
			change: signals.Change{
				Kind: signals.KindLink,
				Old:  signals.Link{Connected: true},
				New:  signals.Link{},
			},
		},
		{
			name:     "usb endpoint",
			change:   signals.Change{Kind: signals.KindEndpoint, New: signals.Endpoint{Transport: signals.TransportUSB}},
			wantKind: CueEndpoint,
			wantLen:  2,
			wantOK:   true,
		},
		{
			name:     "ble endpoint",
			change:   signals.Change{Kind: signals.KindEndpoint, New: signals.Endpoint{Transport: signals.TransportBLE}},
			wantKind: CueEndpoint,
			wantLen:  3,
			wantOK:   true,
		},
		{
			name:   "battery is silent",
			change: signals.Change{Kind: signals.KindBattery, New: signals.Battery{Percent: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cue, ok := a.Cue(tt.change, snap)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if cue.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", cue.Kind, tt.wantKind)
			}
			if len(cue.Intent.Melody) != tt.wantLen {
				t.Errorf("melody has %d notes, want %d", len(cue.Intent.Melody), tt.wantLen)
			}
			if !cue.Intent.IsSound() {
				t.Error("cue must be a sound intent")
			}
		})
	}
}

func TestCue_SilentBeforeBoot(t *testing.T) {
	a := New(DefaultConfig())
	ch := signals.Change{Kind: signals.KindEndpoint, New: signals.Endpoint{Transport: signals.TransportUSB}}
	if _, ok := a.Cue(ch, signals.Snapshot{}); ok {
		t.Error("no cues before boot completes")
	}
}

func TestMelodies(t *testing.T) {
	m := Melodies()
	for _, name := range []string{"startup", "usb", "ble", "connected", "profile0", "profile4"} {
		if len(m[name]) == 0 {
			t.Errorf("melody %q missing", name)
		}
	}
	if got := len(New(DefaultConfig()).StartupMelody().Melody); got != 4 {
		t.Errorf("startup melody has %d notes, want 4", got)
	}
}
