// services/hal/hal.go
package hal

import (
	"context"
	"io"

	"max6675-go/bus"
	"max6675-go/services/hal/internal/platform"
	"max6675-go/services/hal/internal/service"

	// Device builders register themselves.
	_ "max6675-go/services/hal/internal/devices/max6675adpt"
)

// Options select platform resources. The zero value uses the defaults.
type Options struct {
	GPIOChip string // Linux only, e.g. "gpiochip0"
	SPIHz    int    // SPI clock in Hz; 0 means 4 MHz
}

// Run serves the HAL on conn until ctx is cancelled. Configuration arrives
// on config/hal.
func Run(ctx context.Context, conn *bus.Connection, opts Options) {
	po := platform.Options{GPIOChip: opts.GPIOChip, SPIHz: opts.SPIHz}
	service.New(conn, platform.DefaultSPIFactory(po), platform.DefaultPinFactory(po)).Run(ctx)
}

// Console is the platform's text output: UART0 on MCU builds, stdout
// elsewhere.
func Console() io.Writer { return platform.Console() }
