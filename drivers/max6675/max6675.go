// Package max6675 provides a driver for the MAX6675 K-type thermocouple
// to digital converter. The device is read-only: pulling CS low stops any
// conversion in progress and clocks out one 16-bit word on SO.
//
// Two acquisition paths are provided:
//
//	s, err := d.Read()      // blocking: CS low, receive, settle, CS high
//
//	err := d.Start()        // interrupt mode: CS low, submit receive, return
//	d.TransferComplete()    // called from the bus completion interrupt
//	err = d.Collect(&s)     // ErrNotReady until the completion has run
//
// The chip select is released only after a short settling delay following
// the last clock edge; some device revisions corrupt the tail of the word if
// CS rises too early. The delay is a busy-wait and blocks whatever context
// runs it.
//
// Datasheet: https://www.analog.com/media/en/technical-documentation/data-sheets/MAX6675.pdf
package max6675

import (
	"errors"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"
)

// Default settling delay between the end of the transfer and CS release.
const DefaultSettle = 1 * time.Microsecond

// Errors returned by the driver.
var (
	ErrNotReady = errors.New("max6675: not ready")
	ErrBusy     = errors.New("max6675: conversion pending")
	ErrNoAsync  = errors.New("max6675: bus has no async receive")
)

// Pin is the chip-select output. Set(true) drives the line high (inactive).
type Pin interface {
	Set(level bool)
}

// AsyncSPI is a bus that can also submit a receive without waiting for it.
// StartRx returns once the request is accepted; the platform then calls
// Device.TransferComplete when r has been filled.
type AsyncSPI interface {
	drivers.SPI
	StartRx(r []byte) error
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Settle is the busy-wait between transfer end and CS release.
	// Default 1 µs.
	Settle time.Duration
}

// Async acquisition states.
const (
	stateIdle uint32 = iota
	statePending
)

// Device wraps an SPI connection and a CS pin to a MAX6675. Neither is
// owned by the Device.
type Device struct {
	bus   drivers.SPI
	async AsyncSPI // nil if the bus cannot submit asynchronously
	cs    Pin

	cfg Config
	buf [2]byte // receive buffer, also the target of async receives
	raw uint16  // last raw sample

	state     uint32 // stateIdle / statePending
	available uint32 // 1 once a completed async conversion has not been collected
	rxErr     error  // failure of the last async receive, reported by Collect
}

// New creates a Device bound to bus and cs and drives CS high so the bus
// starts idle. If bus also implements AsyncSPI the interrupt-mode calls are
// enabled.
func New(bus drivers.SPI, cs Pin, cfgs ...Config) *Device {
	d := &Device{bus: bus, cs: cs}
	if a, ok := bus.(AsyncSPI); ok {
		d.async = a
	}
	d.Configure(cfgs...)
	d.cs.Set(true)
	return d
}

// Configure applies optional config. It may be called with no cfg to
// restore defaults.
func (d *Device) Configure(cfgs ...Config) {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	d.cfg = c
}

// Settle returns the configured settling delay.
func (d *Device) Settle() time.Duration { return d.cfg.Settle }

// Read performs one blocking acquisition and stores the word. The transfer
// has no timeout of its own; a bus error is returned as-is, with CS
// released all the same.
func (d *Device) Read() (Sample, error) {
	d.cs.Set(false)
	err := d.bus.Tx(nil, d.buf[:])
	spin(d.cfg.Settle)
	d.cs.Set(true)
	if err != nil {
		return Sample(d.raw), err
	}
	d.raw = wordOf(d.buf)
	return Sample(d.raw), nil
}

// ReadCelsius acquires a sample and returns whole degrees (raw >> 5).
func (d *Device) ReadCelsius() (uint16, error) {
	s, err := d.Read()
	if err != nil {
		return 0, err
	}
	return s.Celsius(), nil
}

// ReadFloat acquires a sample and returns °C at 0.25 °C resolution.
func (d *Device) ReadFloat() (float32, error) {
	s, err := d.Read()
	if err != nil {
		return 0, err
	}
	return s.FloatCelsius(), nil
}

// ReadOpenCircuit acquires a sample and reports the open thermocouple bit.
func (d *Device) ReadOpenCircuit() (bool, error) {
	s, err := d.Read()
	if err != nil {
		return false, err
	}
	return s.OpenCircuit(), nil
}

// Start begins an interrupt-mode acquisition: CS low, then the receive is
// submitted and Start returns without waiting. If the bus rejects the
// request, CS is released and the bus error is returned.
func (d *Device) Start() error {
	if d.async == nil {
		return ErrNoAsync
	}
	if !atomic.CompareAndSwapUint32(&d.state, stateIdle, statePending) {
		return ErrBusy
	}
	atomic.StoreUint32(&d.available, 0)
	d.rxErr = nil
	d.cs.Set(false)
	if err := d.async.StartRx(d.buf[:]); err != nil {
		d.cs.Set(true)
		atomic.StoreUint32(&d.state, stateIdle)
		return err
	}
	return nil
}

// TransferComplete finishes an interrupt-mode acquisition. The platform
// calls it once per Start, typically from interrupt context. A call with no
// acquisition pending is ignored.
func (d *Device) TransferComplete() { d.finish(nil) }

// TransferFailed finishes an interrupt-mode acquisition whose receive did
// not complete. CS is released as usual, the stored sample is kept and the
// next Collect returns err.
func (d *Device) TransferFailed(err error) { d.finish(err) }

func (d *Device) finish(err error) {
	if atomic.LoadUint32(&d.state) != statePending {
		return
	}
	spin(d.cfg.Settle)
	d.cs.Set(true)
	if err == nil {
		d.raw = wordOf(d.buf)
	}
	d.rxErr = err
	atomic.StoreUint32(&d.available, 1)
	atomic.StoreUint32(&d.state, stateIdle)
}

// Pending reports whether an interrupt-mode acquisition is outstanding.
func (d *Device) Pending() bool { return atomic.LoadUint32(&d.state) == statePending }

// Available reports whether a completed conversion is waiting to be
// collected. The sample is safe to read once this returns true.
func (d *Device) Available() bool { return atomic.LoadUint32(&d.available) == 1 }

// Collect returns the sample of the last completed interrupt-mode
// acquisition. It returns ErrNotReady while the transfer is outstanding or
// when nothing new has completed since the previous Collect, and the bus
// error if the receive failed.
func (d *Device) Collect(out *Sample) error {
	if !atomic.CompareAndSwapUint32(&d.available, 1, 0) {
		return ErrNotReady
	}
	if err := d.rxErr; err != nil {
		d.rxErr = nil
		return err
	}
	if out != nil {
		*out = Sample(d.raw)
	}
	return nil
}

// Sample returns the last stored word without touching the bus. Before the
// first acquisition it decodes whatever the buffer holds.
func (d *Device) Sample() Sample { return Sample(d.raw) }

// Celsius returns the stored sample in whole degrees (raw >> 5).
func (d *Device) Celsius() uint16 { return IntegerCelsius(d.raw) }

// FloatCelsius returns the stored sample in °C at 0.25 °C resolution.
func (d *Device) FloatCelsius() float32 { return FloatCelsius(d.raw) }

// OpenCircuit reports the open thermocouple bit of the stored sample.
func (d *Device) OpenCircuit() bool { return IsOpenCircuit(d.raw) }

// CentiCelsius returns the stored sample in hundredths of a degree.
func (d *Device) CentiCelsius() int32 { return Sample(d.raw).CentiCelsius() }

// DeciCelsius returns the stored sample in tenths of a degree, truncated.
func (d *Device) DeciCelsius() int32 { return Sample(d.raw).DeciCelsius() }

// wordOf assembles the device word; SO shifts out MSB first.
func wordOf(b [2]byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

// spin busy-waits for d on the monotonic clock.
func spin(d time.Duration) {
	if d <= 0 {
		return
	}
	t0 := time.Now()
	for time.Since(t0) < d {
	}
}
