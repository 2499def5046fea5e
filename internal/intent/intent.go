package intent

import (
	"fmt"
	"slices"
	"time"
)

// Class is a priority class. Larger values win the device.
type Class uint8

// Priority classes, lowest to highest.
const (
	ClassIdle Class = iota
	ClassLink
	ClassBattery
	ClassCapsLock
	ClassCritical
)

var classNames = [...]string{"idle", "link", "battery", "caps_lock", "critical"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Classes returns every class from highest to lowest priority.
func Classes() []Class {
	return []Class{ClassCritical, ClassCapsLock, ClassBattery, ClassLink, ClassIdle}
}

// ModeKind selects how an intent occupies the device over time.
type ModeKind uint8

// Rendering modes.
const (
	ModeSolid ModeKind = iota
	ModeBlink
)

func (k ModeKind) String() string {
	if k == ModeBlink {
		return "blink"
	}
	return "solid"
}

// Continuous is the blink count of a blink that repeats until pre-empted.
const Continuous = -1

// Mode is the temporal shape of an intent.
type Mode struct {
	Kind  ModeKind      `json:"kind"`
	Count int           `json:"count,omitempty"` // blink cycles, Continuous for forever
	On    time.Duration `json:"on,omitempty"`
	Off   time.Duration `json:"off,omitempty"`
	Hold  time.Duration `json:"hold,omitempty"` // solid only; zero holds until replaced
}

// Solid lights the device until another intent replaces it.
func Solid() Mode { return Mode{Kind: ModeSolid} }

// SolidFor lights the device for hold, then switches it off.
func SolidFor(hold time.Duration) Mode { return Mode{Kind: ModeSolid, Hold: hold} }

// Blink toggles the device count times.
func Blink(count int, on, off time.Duration) Mode {
	return Mode{Kind: ModeBlink, Count: count, On: on, Off: off}
}

// BlinkForever toggles the device until pre-empted.
func BlinkForever(on, off time.Duration) Mode {
	return Mode{Kind: ModeBlink, Count: Continuous, On: on, Off: off}
}

// Continuous reports whether the mode never finishes on its own.
func (m Mode) Continuous() bool { return m.Kind == ModeBlink && m.Count == Continuous }

func (m Mode) String() string {
	switch {
	case m.Kind == ModeSolid && m.Hold > 0:
		return fmt.Sprintf("solid(%s)", m.Hold)
	case m.Kind == ModeSolid:
		return "solid"
	case m.Continuous():
		return fmt.Sprintf("blink(forever,%s/%s)", m.On, m.Off)
	default:
		return fmt.Sprintf("blink(%d,%s/%s)", m.Count, m.On, m.Off)
	}
}

// Intent is a fully specified render request (DisplayIntent). Light intents
// carry a Color and a Mode; sound intents carry a Melody.
type Intent struct {
	Class  Class  `json:"class"`
	Color  Color  `json:"color"`
	Mode   Mode   `json:"mode"`
	Melody []Note `json:"melody,omitempty"`
	Reason string `json:"reason"`

	// Seq is assigned at admission and orders intents across queues.
	Seq uint64 `json:"seq"`
}

// Off is the safe default: idle class, device dark.
func Off() Intent {
	return Intent{Class: ClassIdle, Color: Black, Mode: Solid(), Reason: "idle"}
}

// IsSound reports whether the intent targets the tone generator.
func (i Intent) IsSound() bool { return len(i.Melody) > 0 }

// Same compares everything but the sequence number.
func (i Intent) Same(o Intent) bool {
	return i.Class == o.Class &&
		i.Color == o.Color &&
		i.Mode == o.Mode &&
		i.Reason == o.Reason &&
		slices.Equal(i.Melody, o.Melody)
}

// Degraded returns a shortened copy used while a category is being spammed:
// blink phases and notes run at half length and blinks stop after one cycle.
func (i Intent) Degraded() Intent {
	d := i
	if d.Mode.Kind == ModeBlink {
		d.Mode.On /= 2
		d.Mode.Off /= 2
		if d.Mode.Count != 0 {
			d.Mode.Count = 1
		}
	}
	if d.Mode.Hold > 0 {
		d.Mode.Hold /= 2
	}
	if len(i.Melody) > 0 {
		d.Melody = make([]Note, len(i.Melody))
		for n, note := range i.Melody {
			note.Duration /= 2
			d.Melody[n] = note
		}
	}
	d.Reason = i.Reason + "/degraded"
	return d
}

// Duration estimates how long rendering takes, zero for solid and continuous.
func (i Intent) Duration(gap time.Duration) time.Duration {
	if i.IsSound() {
		var total time.Duration
		for _, n := range i.Melody {
			total += n.Duration + gap
		}
		return total
	}
	switch {
	case i.Mode.Kind == ModeSolid:
		return i.Mode.Hold
	case i.Mode.Continuous():
		return 0
	default:
		return time.Duration(i.Mode.Count) * (i.Mode.On + i.Mode.Off)
	}
}

func (i Intent) String() string {
	if i.IsSound() {
		return fmt.Sprintf("%s:%s melody(%d notes)", i.Class, i.Reason, len(i.Melody))
	}
	return fmt.Sprintf("%s:%s %s %s", i.Class, i.Reason, i.Color, i.Mode)
}
