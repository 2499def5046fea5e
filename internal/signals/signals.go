// Package signals holds the last known value of every external status signal
// the indicator tracks.
package signals

import "fmt"

// Kind identifies a tracked signal.
type Kind uint8

// Tracked signals.
const (
	KindBattery Kind = iota + 1
	KindLink
	KindCapsLock
	KindBoot
	KindEndpoint
)

func (k Kind) String() string {
	switch k {
	case KindBattery:
		return "battery"
	case KindLink:
		return "link"
	case KindCapsLock:
		return "caps_lock"
	case KindBoot:
		return "boot"
	case KindEndpoint:
		return "endpoint"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Signal is one of Battery, Link, CapsLock, BootPhase or Endpoint.
type Signal interface {
	Kind() Kind
}

// Battery is the state of charge. Unknown means no reading has been taken
// yet; a Percent of 0 with Unknown false is a genuinely empty battery.
type Battery struct {
	Percent int  `json:"percent"`
	Unknown bool `json:"unknown"`
}

// Kind implements Signal.
func (Battery) Kind() Kind { return KindBattery }

// Link is the wireless link of the active profile.
type Link struct {
	Connected    bool `json:"connected"`
	Advertising  bool `json:"advertising"`
	ProfileIndex int  `json:"profile_index"`
}

// Kind implements Signal.
func (Link) Kind() Kind { return KindLink }

// CapsLock is the host's caps lock indicator state.
type CapsLock struct {
	Active bool `json:"active"`
}

// Kind implements Signal.
func (CapsLock) Kind() Kind { return KindCapsLock }

// BootPhase reports whether startup has finished.
type BootPhase struct {
	Complete bool `json:"complete"`
}

// Kind implements Signal.
func (BootPhase) Kind() Kind { return KindBoot }

// Transport is the output endpoint the keyboard reports through.
type Transport uint8

// Output transports.
const (
	TransportNone Transport = iota
	TransportUSB
	TransportBLE
)

func (t Transport) String() string {
	switch t {
	case TransportUSB:
		return "usb"
	case TransportBLE:
		return "ble"
	default:
		return "none"
	}
}

// ParseTransport maps "usb" or "ble" to a Transport.
func ParseTransport(s string) (Transport, error) {
	switch s {
	case "usb", "USB":
		return TransportUSB, nil
	case "ble", "BLE":
		return TransportBLE, nil
	case "", "none":
		return TransportNone, nil
	default:
		return TransportNone, fmt.Errorf("unknown transport %q", s)
	}
}

// Endpoint is the active output transport.
type Endpoint struct {
	Transport Transport `json:"transport"`
}

// Kind implements Signal.
func (Endpoint) Kind() Kind { return KindEndpoint }

// Snapshot is a consistent copy of every signal at one instant.
type Snapshot struct {
	Battery       Battery   `json:"battery"`
	Link          Link      `json:"link"`
	LinkKnown     bool      `json:"link_known"`
	CapsLock      CapsLock  `json:"caps_lock"`
	CapsLockKnown bool      `json:"caps_lock_known"`
	Boot          BootPhase `json:"boot"`
	BootKnown     bool      `json:"boot_known"`
	Endpoint      Endpoint  `json:"endpoint"`

	// An unknown caps lock reads as inactive and an unknown boot phase as
	// incomplete, so neither can light the device before it is reported.

	// Version increases with every applied change.
	Version uint64 `json:"version"`
}

// Change describes one applied update.
type Change struct {
	Kind Kind
	Old  Signal
	New  Signal

	// ProfileChanged is set for link changes that moved the active profile.
	ProfileChanged bool

	// Snapshot is the store state right after the change.
	Snapshot Snapshot
}
