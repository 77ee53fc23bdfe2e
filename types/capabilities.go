package types

// ------------------------
// Capability kinds
// ------------------------

type Kind string

const (
	KindTemperature Kind = "temperature"
)
