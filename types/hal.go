package types

import "time"

// ------------------------
// Common HAL state (retained)
// ------------------------

type HALState struct {
	Level  string    `json:"level"`  // "idle", "ready", "stopped", "error"
	Status string    `json:"status"` // freeform short code
	Error  string    `json:"error,omitempty"`
	TS     time.Time `json:"ts"`
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityState struct {
	Link  Link      `json:"link"`
	TS    time.Time `json:"ts"`
	Error string    `json:"error,omitempty"` // machine-readable short code
}

// ------------------------
// Controls
// ------------------------

type ReadNowAck struct {
	OK bool `json:"ok"`
}

type SetRate struct {
	Period time.Duration `json:"period"`
}

type SetRateAck struct {
	OK     bool          `json:"ok"`
	Period time.Duration `json:"period"`
}

// ------------------------
// Generic replies
// ------------------------

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ------------------------
// Info envelope (retained)
// ------------------------

type Info struct {
	SchemaVersion int         `json:"schema_version"`
	Driver        string      `json:"driver"`
	Detail        interface{} `json:"detail,omitempty"` // e.g. TemperatureInfo
}
