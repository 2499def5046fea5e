// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/indicatord/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionResponse struct {
	Body version.Info
}

// SignalsData is the current value of every signal.
type SignalsData struct {
	BatteryPercent *int   `json:"battery_percent,omitempty" example:"42" doc:"State of charge, absent while unknown"`
	Connected      bool   `json:"connected" doc:"Active profile is connected"`
	Advertising    bool   `json:"advertising" doc:"Active profile is advertising"`
	Profile        int    `json:"profile" example:"0" doc:"Active profile index"`
	LinkKnown      bool   `json:"link_known" doc:"A link state has been reported"`
	CapsLock       bool   `json:"caps_lock" doc:"Caps lock is active"`
	CapsLockKnown  bool   `json:"caps_lock_known" doc:"A caps lock state has been reported"`
	BootComplete   bool   `json:"boot_complete" doc:"Startup has finished"`
	Transport      string `json:"transport" example:"usb" enum:"usb,ble,none" doc:"Active output transport"`
	Version        uint64 `json:"version" example:"17" doc:"Number of applied changes"`
}

// IntentData describes one render request.
type IntentData struct {
	Class  string `json:"class" example:"battery" doc:"Priority class"`
	Color  string `json:"color,omitempty" example:"yellow" doc:"Light color"`
	Mode   string `json:"mode,omitempty" example:"solid" doc:"Light mode"`
	Notes  int    `json:"notes,omitempty" example:"3" doc:"Melody length for sound intents"`
	Reason string `json:"reason" example:"battery_low" doc:"Why the intent was produced"`
	Seq    uint64 `json:"seq" example:"12" doc:"Admission sequence number"`
}

// LaneData describes one output lane.
type LaneData struct {
	Name          string          `json:"name" example:"light" doc:"Lane name"`
	State         string          `json:"state" example:"rendering" doc:"Worker state"`
	Rendering     *IntentData     `json:"rendering,omitempty" doc:"Intent being rendered"`
	QueueDepth    int             `json:"queue_depth" example:"0" doc:"Queued intents"`
	QueueCapacity int             `json:"queue_capacity" example:"8" doc:"Queue capacity"`
	Spam          map[string]bool `json:"spam" doc:"Spam mode per guard category"`
	Admitted      uint64          `json:"admitted" doc:"Intents admitted by the guard"`
	Suppressed    uint64          `json:"suppressed" doc:"Intents suppressed by the guard"`
	Degraded      uint64          `json:"degraded" doc:"Intents shortened by the guard"`
	Bypassed      uint64          `json:"bypassed" doc:"Intents that skipped the guard"`
	Dropped       uint64          `json:"dropped" doc:"Intents dropped by a full queue"`
}

// IndicatorData is the state of the whole pipeline.
type IndicatorData struct {
	Signals    SignalsData `json:"signals"`
	Current    IntentData  `json:"current" doc:"Authoritative light intent"`
	Pending    bool        `json:"pending" doc:"Authoritative intent is waiting for the guard"`
	Recomputes uint64      `json:"recomputes" doc:"Arbitration passes so far"`
	Lanes      []LaneData  `json:"lanes"`
}

type IndicatorResponse struct {
	Body IndicatorData
}

// Signal request models
type BatteryRequest struct {
	Body struct {
		Percent *int `json:"percent,omitempty" minimum:"0" maximum:"100" example:"42" doc:"State of charge, omit for unknown"`
	}
}

type LinkRequest struct {
	Body struct {
		Connected   bool `json:"connected" doc:"Active profile is connected"`
		Advertising bool `json:"advertising,omitempty" doc:"Active profile is advertising"`
		Profile     int  `json:"profile" minimum:"0" example:"0" doc:"Active profile index"`
	}
}

type CapsLockRequest struct {
	Body struct {
		Active bool   `json:"active,omitempty" doc:"Caps lock is active"`
		Flags  *uint8 `json:"flags,omitempty" example:"2" doc:"Raw HID LED flags, overrides active"`
	}
}

type EndpointRequest struct {
	Body struct {
		Transport string `json:"transport" enum:"usb,ble,none" example:"ble" doc:"Active output transport"`
	}
}

type IndicateRequest struct {
	Kind string `path:"kind" enum:"battery,connectivity,profile" doc:"Indication to show"`
}

// AcceptedData acknowledges a signal handed to the pipeline.
type AcceptedData struct {
	Signal string `json:"signal" example:"battery" doc:"Signal that was published"`
}

type AcceptedResponse struct {
	Body AcceptedData
}

// Log models
type LogsRequest struct {
	Since uint64 `query:"since" doc:"Only return entries with a higher sequence number"`
}

type LogEntryData struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Sequence number"`
	Timestamp  string         `json:"timestamp" example:"2026-01-27T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"indicator" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsResponse struct {
	Body struct {
		Entries []LogEntryData `json:"entries"`
		Count   int            `json:"count" example:"12"`
	}
}
