// services/hal/internal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"

	halcore "max6675-go/services/hal/internal/halcore"
)

// -----------------------------------------------------------------------------
// Defaults used by hal.Run on Raspberry Pi Pico / Pico 2 (RP2 family)
// -----------------------------------------------------------------------------

// DefaultSPIFactory configures spi0 on the board-default pins, mode 0.
// Receives run on a goroutine and signal completion through the bus
// handler.
func DefaultSPIFactory(o Options) halcore.SPIBusFactory {
	o = o.withDefaults()
	f := &rp2SPIFactory{buses: make(map[string]drivers.SPI)}

	s0 := machine.SPI0
	_ = s0.Configure(machine.SPIConfig{
		Frequency: uint32(o.SPIHz),
		SCK:       machine.SPI0_SCK_PIN,
		SDO:       machine.SPI0_SDO_PIN,
		SDI:       machine.SPI0_SDI_PIN,
		Mode:      0,
	})
	f.buses["spi0"] = newGoAsyncSPI(s0)

	s1 := machine.SPI1
	_ = s1.Configure(machine.SPIConfig{
		Frequency: uint32(o.SPIHz),
		SCK:       machine.SPI1_SCK_PIN,
		SDO:       machine.SPI1_SDO_PIN,
		SDI:       machine.SPI1_SDI_PIN,
		Mode:      0,
	})
	f.buses["spi1"] = newGoAsyncSPI(s1)

	return f
}

// DefaultPinFactory maps logical numbers directly to machine.Pin(n). This
// matches Pico/Pico 2 GP numbering.
func DefaultPinFactory(Options) halcore.PinFactory { return rp2PinFactory{} }

// Console returns UART0 at 115200 baud.
func Console() interface{ Write([]byte) (int, error) } {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	return u
}

// ---- SPI implementation ----

type rp2SPIFactory struct {
	buses map[string]drivers.SPI
}

func (f *rp2SPIFactory) ByID(id string) (drivers.SPI, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// ---- GPIO implementation ----

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	// Constrain to RP2’s user GPIOs (GP0..GP28).
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull halcore.Pull) error {
	var mode machine.PinMode
	switch pull {
	case halcore.PullUp:
		mode = machine.PinInputPullup
	case halcore.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

// ConfigureOutput sets the level before switching direction so a chip
// select never glitches low.
func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Set(initial)
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Toggle()        { r.p.Set(!r.p.Get()) }
func (r *rp2Pin) Number() int    { return r.n }
