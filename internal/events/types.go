package events

// Event type constants for kelindar/event.
const (
	TypeCapsLockChanged uint32 = iota + 1
	TypeBatteryChanged
	TypeLinkChanged
	TypeBootComplete
	TypeEndpointChanged
	TypeIndicateRequested
	TypeIntentRendered
	TypeSpamModeChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CapsLockChangedEvent carries the raw HID indicator flags reported by the host.
type CapsLockChangedEvent struct {
	Flags     uint8  `json:"flags" example:"2" doc:"HID keyboard LED flags, bit 1 is caps lock"`
	Source    string `json:"source,omitempty" example:"nats" doc:"Producer that reported the change"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CapsLockChangedEvent.
func (e CapsLockChangedEvent) Type() uint32 { return TypeCapsLockChanged }

// BatteryChangedEvent reports a new state of charge.
type BatteryChangedEvent struct {
	Percent   int    `json:"percent" example:"42" doc:"State of charge, 0-100"`
	Unknown   bool   `json:"unknown,omitempty" doc:"No reading available"`
	Source    string `json:"source,omitempty" example:"file" doc:"Producer that reported the change"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BatteryChangedEvent.
func (e BatteryChangedEvent) Type() uint32 { return TypeBatteryChanged }

// LinkChangedEvent reports the wireless link of the active profile.
type LinkChangedEvent struct {
	Connected   bool   `json:"connected" doc:"Active profile is connected"`
	Advertising bool   `json:"advertising" doc:"Active profile is advertising"`
	Profile     int    `json:"profile" example:"0" doc:"Active profile index"`
	Source      string `json:"source,omitempty" example:"api" doc:"Producer that reported the change"`
	Timestamp   string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LinkChangedEvent.
func (e LinkChangedEvent) Type() uint32 { return TypeLinkChanged }

// BootCompleteEvent marks the end of startup.
type BootCompleteEvent struct {
	Source    string `json:"source,omitempty" doc:"Producer that reported the change"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BootCompleteEvent.
func (e BootCompleteEvent) Type() uint32 { return TypeBootComplete }

// EndpointChangedEvent reports the active output transport.
type EndpointChangedEvent struct {
	Transport string `json:"transport" example:"usb" enum:"usb,ble,none" doc:"Active output transport"`
	Source    string `json:"source,omitempty" doc:"Producer that reported the change"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EndpointChangedEvent.
func (e EndpointChangedEvent) Type() uint32 { return TypeEndpointChanged }

// IndicateRequestedEvent asks for a one-shot indication.
type IndicateRequestedEvent struct {
	Kind      string `json:"kind" example:"battery" enum:"battery,connectivity,profile" doc:"Indication to show"`
	Source    string `json:"source,omitempty" doc:"Producer that requested it"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for IndicateRequestedEvent.
func (e IndicateRequestedEvent) Type() uint32 { return TypeIndicateRequested }

// IntentRenderedEvent is published by the indicator after each render.
type IntentRenderedEvent struct {
	Worker    string `json:"worker" example:"light" doc:"Device lane that rendered the intent"`
	Class     string `json:"class" example:"critical" doc:"Priority class"`
	Color     string `json:"color,omitempty" example:"red" doc:"Rendered color"`
	Mode      string `json:"mode,omitempty" example:"blink(forever,250ms/250ms)" doc:"Rendering mode"`
	Notes     int    `json:"notes,omitempty" example:"4" doc:"Melody length for sound intents"`
	Reason    string `json:"reason" example:"battery_critical" doc:"Why the intent was produced"`
	Outcome   string `json:"outcome" example:"completed" doc:"How the render ended"`
	Seq       uint64 `json:"seq" example:"12" doc:"Admission sequence number"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for IntentRenderedEvent.
func (e IntentRenderedEvent) Type() uint32 { return TypeIntentRendered }

// SpamModeChangedEvent reports a spam guard category entering or leaving
// spam mode.
type SpamModeChangedEvent struct {
	Lane      string `json:"lane" example:"light" doc:"Device lane"`
	Category  string `json:"category" example:"link" doc:"Guard category"`
	Active    bool   `json:"active" doc:"Spam mode is active"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SpamModeChangedEvent.
func (e SpamModeChangedEvent) Type() uint32 { return TypeSpamModeChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"render" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
