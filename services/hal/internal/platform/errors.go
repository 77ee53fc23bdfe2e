// services/hal/internal/platform/errors.go
package platform

import "errors"

var (
	ErrBusBusy          = errors.New("platform: spi transfer in progress")
	ErrHandlerInstalled = errors.New("platform: completion handler already installed")
)

// Options select platform resources. The zero value uses the defaults.
type Options struct {
	GPIOChip string // Linux GPIO character device, e.g. "gpiochip0"
	SPIHz    int    // SPI clock; MAX6675 tops out at 4.3 MHz
}

const (
	defaultGPIOChip = "gpiochip0"
	defaultSPIHz    = 4_000_000
)

func (o Options) withDefaults() Options {
	if o.GPIOChip == "" {
		o.GPIOChip = defaultGPIOChip
	}
	if o.SPIHz <= 0 {
		o.SPIHz = defaultSPIHz
	}
	return o
}
