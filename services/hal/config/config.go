package config

import "errors"

var (
	ErrEmptyID     = errors.New("config: device id is empty")
	ErrDuplicateID = errors.New("config: duplicate device id")
)

// HALConfig is supplied on the "config/hal" bus topic.
type HALConfig struct {
	Devices []Device `json:"devices"`
}

// Device describes one physical device to be managed by HAL.
type Device struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Params any    `json:"params,omitempty"`
	BusRef BusRef `json:"bus_ref,omitempty"` // for bus-attached devices (SPI)
}

// BusRef identifies a named bus instance provided by the platform layer.
type BusRef struct {
	Type string `json:"type"` // e.g. "spi"
	ID   string `json:"id"`   // e.g. "spi0"
}

// Validate checks that every device has a unique, non-empty id.
func (c HALConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Devices))
	for _, d := range c.Devices {
		if d.ID == "" {
			return ErrEmptyID
		}
		if _, dup := seen[d.ID]; dup {
			return ErrDuplicateID
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
