// services/hal/internal/platform/factories_linux.go
//go:build linux && !(rp2040 || rp2350)

package platform

import (
	"os"
	"strings"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"max6675-go/services/hal/internal/halcore"
)

var (
	hostOnce sync.Once
	hostErr  error
)

func initHost() error {
	hostOnce.Do(func() { _, hostErr = host.Init() })
	return hostErr
}

// DefaultSPIFactory opens spidev ports through periph on first use. Chip
// select is driven by the device as a GPIO, so ports are opened with NoCS.
func DefaultSPIFactory(o Options) halcore.SPIBusFactory {
	o = o.withDefaults()
	return &linuxSPIFactory{hz: o.SPIHz, buses: map[string]drivers.SPI{}}
}

// DefaultPinFactory requests lines on the configured gpiochip.
func DefaultPinFactory(o Options) halcore.PinFactory {
	o = o.withDefaults()
	return &linuxPinFactory{chip: o.GPIOChip, pins: map[int]*linuxPin{}}
}

// Console is stdout on Linux.
func Console() interface{ Write([]byte) (int, error) } { return os.Stdout }

// ---- SPI implementation ----

type linuxSPIFactory struct {
	hz    int
	mu    sync.Mutex
	buses map[string]drivers.SPI
}

func (f *linuxSPIFactory) ByID(id string) (drivers.SPI, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buses[id]; ok {
		return b, true
	}
	if initHost() != nil {
		return nil, false
	}
	port, err := spireg.Open(portName(id))
	if err != nil {
		return nil, false
	}
	conn, err := port.Connect(physic.Frequency(f.hz)*physic.Hertz, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		_ = port.Close()
		return nil, false
	}
	b := newGoAsyncSPI(&periphSPI{conn: conn})
	f.buses[id] = b
	return b, true
}

// portName maps "spi0" to periph's "SPI0.0" and "spi1.2" to "SPI1.2".
// Anything else, e.g. "/dev/spidev0.0", is passed through.
func portName(id string) string {
	rest, ok := strings.CutPrefix(id, "spi")
	if !ok || rest == "" {
		return id
	}
	if !strings.Contains(rest, ".") {
		rest += ".0"
	}
	return "SPI" + rest
}

// periphSPI adapts a periph spi.Conn to drivers.SPI.
type periphSPI struct {
	conn spi.Conn
}

func (p *periphSPI) Tx(w, r []byte) error {
	switch {
	case w == nil:
		w = make([]byte, len(r))
	case r == nil:
		r = make([]byte, len(w))
	}
	return p.conn.Tx(w, r)
}

func (p *periphSPI) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := p.conn.Tx([]byte{b}, r[:])
	return r[0], err
}

// ---- GPIO implementation ----

type linuxPinFactory struct {
	chip string
	mu   sync.Mutex
	pins map[int]*linuxPin
}

func (f *linuxPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = &linuxPin{chip: f.chip, n: n}
		f.pins[n] = p
	}
	return p, true
}

// linuxPin requests its line lazily, on the first Configure call.
type linuxPin struct {
	chip  string
	n     int
	mu    sync.Mutex
	line  *gpiocdev.Line
	level bool
}

func (p *linuxPin) request(opts ...gpiocdev.LineConfigOption) error {
	if p.line != nil {
		return p.line.Reconfigure(opts...)
	}
	ro := []gpiocdev.LineReqOption{gpiocdev.WithConsumer("max6675-go")}
	for _, o := range opts {
		ro = append(ro, o.(gpiocdev.LineReqOption))
	}
	l, err := gpiocdev.RequestLine(p.chip, p.n, ro...)
	if err != nil {
		return err
	}
	p.line = l
	return nil
}

func (p *linuxPin) ConfigureInput(pull halcore.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	bias := gpiocdev.WithBiasDisabled
	switch pull {
	case halcore.PullUp:
		bias = gpiocdev.WithPullUp
	case halcore.PullDown:
		bias = gpiocdev.WithPullDown
	}
	return p.request(gpiocdev.AsInput, bias)
}

func (p *linuxPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = initial
	return p.request(gpiocdev.AsOutput(boolToInt(initial)))
}

func (p *linuxPin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	if p.line != nil {
		_ = p.line.SetValue(boolToInt(level))
	}
}

func (p *linuxPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return p.level
	}
	v, err := p.line.Value()
	if err != nil {
		return p.level
	}
	return v != 0
}

func (p *linuxPin) Toggle()     { p.Set(!p.Get()) }
func (p *linuxPin) Number() int { return p.n }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
