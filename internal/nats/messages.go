package nats

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subject prefixes for NATS topics.
const (
	SubjectSignalsPrefix  = "indicatord.signals"
	SubjectIndicatePrefix = "indicatord.indicate"
	SubjectRendered       = "indicatord.rendered"
	SubjectSpam           = "indicatord.spam"
)

// Signal subject tokens.
const (
	SignalBattery  = "battery"
	SignalLink     = "link"
	SignalCapsLock = "capslock"
	SignalBoot     = "boot"
	SignalEndpoint = "endpoint"
)

// capsLockFlag is the caps lock bit of the HID LED report.
const capsLockFlag = 0x02

// SubjectSignal returns the full NATS subject for a signal.
func SubjectSignal(signal string) string {
	return fmt.Sprintf("%s.%s", SubjectSignalsPrefix, signal)
}

// SubjectIndicate returns the NATS subject for an on-demand indication.
func SubjectIndicate(kind string) string {
	return fmt.Sprintf("%s.%s", SubjectIndicatePrefix, kind)
}

// lastToken returns the final dot-separated element of a subject.
func lastToken(subject string) string {
	return subject[strings.LastIndexByte(subject, '.')+1:]
}

// BatteryMessage reports the state of charge.
type BatteryMessage struct {
	Percent   int    `json:"percent"`
	Unknown   bool   `json:"unknown,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// LinkMessage reports the link of the active profile.
type LinkMessage struct {
	Connected   bool   `json:"connected"`
	Advertising bool   `json:"advertising,omitempty"`
	Profile     int    `json:"profile"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// CapsLockMessage carries either raw HID LED flags or a plain active flag.
type CapsLockMessage struct {
	Flags     uint8  `json:"flags,omitempty"`
	Active    bool   `json:"active,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// HIDFlags merges Active into the raw flags.
func (m CapsLockMessage) HIDFlags() uint8 {
	if m.Active {
		return m.Flags | capsLockFlag
	}
	return m.Flags
}

// BootMessage marks the end of startup.
type BootMessage struct {
	Complete  bool   `json:"complete"`
	Timestamp string `json:"timestamp,omitempty"`
}

// EndpointMessage reports the active output transport (usb, ble, none).
type EndpointMessage struct {
	Transport string `json:"transport"`
	Timestamp string `json:"timestamp,omitempty"`
}

// IndicateMessage requests a one-shot indication. The kind is taken from
// the subject.
type IndicateMessage struct {
	Timestamp string `json:"timestamp,omitempty"`
}

// Marshal serializes a message to JSON.
func Marshal(m any) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal deserializes a message from JSON. An empty payload yields the
// zero message.
func Unmarshal[T any](data []byte) (T, error) {
	var m T
	if len(data) == 0 {
		return m, nil
	}
	err := json.Unmarshal(data, &m)
	return m, err
}
