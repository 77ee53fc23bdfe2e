// services/hal/internal/halerr/errors.go
package halerr

import "errors"

var (
	// Service/control plane
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidCapAddr = errors.New("invalid_capability_address")
	ErrUnknownCap     = errors.New("unknown_capability")
	ErrNoAdaptor      = errors.New("no_adaptor")

	// Build/config
	ErrMissingBusRef = errors.New("missing_bus_ref")
	ErrUnknownBus    = errors.New("unknown_bus")
	ErrInvalidMode   = errors.New("invalid_mode")
	ErrUnknownPin    = errors.New("unknown_pin")
	ErrMissingCSPin  = errors.New("missing_cs_pin")
	ErrNoAsyncBus    = errors.New("bus_not_async")
	ErrUnknownType   = errors.New("unknown_device_type")
)
