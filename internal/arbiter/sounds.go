package arbiter

import (
	"fmt"

	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/signals"
)

// CueKind tells the caller which rate limit category a cue belongs to.
type CueKind uint8

// Sound cue kinds.
const (
	CueProfile CueKind = iota + 1
	CueConnected
	CueEndpoint
)

func (k CueKind) String() string {
	switch k {
	case CueProfile:
		return "profile"
	case CueConnected:
		return "connected"
	case CueEndpoint:
		return "endpoint"
	default:
		return "unknown"
	}
}

// Cue is a sound intent produced in response to a signal change.
type Cue struct {
	Kind   CueKind
	Intent intent.Intent
}

// Profile melodies grow by one note per profile index.
var profileMelodies = [][]intent.Note{
	{intent.N(intent.C5, 100)},
	{intent.N(intent.C5, 80), intent.N(intent.E5, 80)},
	{intent.N(intent.C5, 70), intent.N(intent.E5, 70), intent.N(intent.G5, 70)},
	{intent.N(intent.C5, 60), intent.N(intent.E5, 60), intent.N(intent.G5, 60), intent.N(intent.C6, 60)},
	{intent.N(intent.C5, 50), intent.N(intent.D5, 50), intent.N(intent.E5, 50), intent.N(intent.F5, 50), intent.N(intent.G5, 50)},
}

var (
	startupMelody   = []intent.Note{intent.N(intent.C5, 120), intent.N(intent.E5, 120), intent.N(intent.G5, 120), intent.N(intent.C6, 150)}
	usbMelody       = []intent.Note{intent.N(intent.FS5, 60), intent.N(intent.GS5, 60)}
	bleMelody       = []intent.Note{intent.N(intent.G5, 90), intent.N(intent.A5, 90), intent.N(intent.B5, 90)}
	connectedMelody = []intent.Note{intent.N(intent.C5, 70), intent.N(intent.E5, 70), intent.N(intent.G5, 70), intent.N(intent.A5, 70)}
)

// Melodies returns every built-in melody by name.
func Melodies() map[string][]intent.Note {
	m := map[string][]intent.Note{
		"startup":   startupMelody,
		"usb":       usbMelody,
		"ble":       bleMelody,
		"connected": connectedMelody,
	}
	for i, mel := range profileMelodies {
		m[fmt.Sprintf("profile%d", i)] = mel
	}
	return m
}

// StartupMelody is played once when the daemon comes up.
func (a *Arbiter) StartupMelody() intent.Intent {
	return melodyIntent("startup", startupMelody)
}

// Cue maps a signal change to a sound cue. It reports false when the change
// has no sound.
func (a *Arbiter) Cue(ch signals.Change, s signals.Snapshot) (Cue, bool) {
	if !s.Boot.Complete {
		return Cue{}, false
	}

	switch ch.Kind {
	case signals.KindLink:
		newLink, _ := ch.New.(signals.Link)
		oldLink, _ := ch.Old.(signals.Link)
		if ch.ProfileChanged {
			idx := min(max(newLink.ProfileIndex, 0), len(profileMelodies)-1)
			return Cue{
				Kind:   CueProfile,
				Intent: melodyIntent(fmt.Sprintf("profile%d", newLink.ProfileIndex), profileMelodies[idx]),
			}, true
		}
		if newLink.Connected && !oldLink.Connected {
			return Cue{Kind: CueConnected, Intent: melodyIntent("connected", connectedMelody)}, true
		}

	case signals.KindEndpoint:
		ep, _ := ch.New.(signals.Endpoint)
		switch ep.Transport {
		case signals.TransportUSB:
			return Cue{Kind: CueEndpoint, Intent: melodyIntent("usb", usbMelody)}, true
		case signals.TransportBLE:
			return Cue{Kind: CueEndpoint, Intent: melodyIntent("ble", bleMelody)}, true
		}
	}
	return Cue{}, false
}

func melodyIntent(name string, notes []intent.Note) intent.Intent {
	return intent.Intent{
		Class:  intent.ClassLink,
		Melody: notes,
		Reason: "melody_" + name,
	}
}
