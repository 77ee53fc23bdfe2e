// services/hal/internal/platform/fakes.go
//go:build !rp2040 && !rp2350

package platform

import (
	"strconv"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"max6675-go/services/hal/internal/halcore"
)

// ----------------------------- SPI (host) ------------------------------------

// FakeSPI implements halcore.AsyncSPI for host-side tests. Each receive
// returns the next scripted word, repeating the last one when the script
// runs out.
type FakeSPI struct {
	mu    sync.Mutex
	words []uint16
	last  uint16
	log   []string
	delay time.Duration
	gate  chan struct{}
	*goAsyncSPI
}

func NewFakeSPI(words ...uint16) *FakeSPI {
	f := &FakeSPI{words: words}
	f.goAsyncSPI = newGoAsyncSPI(fakeWire{f})
	return f
}

// Script replaces the remaining words.
func (f *FakeSPI) Script(words ...uint16) {
	f.mu.Lock()
	f.words = append([]uint16(nil), words...)
	f.mu.Unlock()
}

// SetDelay makes every transfer take d.
func (f *FakeSPI) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

// Hold stalls transfers until Release.
func (f *FakeSPI) Hold() {
	f.mu.Lock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
	f.mu.Unlock()
}

// Release lets held and later transfers run.
func (f *FakeSPI) Release() {
	f.mu.Lock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
	f.mu.Unlock()
}

// Log returns the transfer log ("tx:<n>").
func (f *FakeSPI) Log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func (f *FakeSPI) next() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.words) > 0 {
		f.last, f.words = f.words[0], f.words[1:]
	}
	return f.last
}

// fakeWire is the blocking side of FakeSPI.
type fakeWire struct{ f *FakeSPI }

func (w fakeWire) Tx(wb, r []byte) error {
	w.f.mu.Lock()
	gate, delay := w.f.gate, w.f.delay
	w.f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	word := w.f.next()
	for i := range r {
		if i < 2 {
			r[i] = byte(word >> (8 * (1 - i)))
		} else {
			r[i] = 0
		}
	}
	w.f.mu.Lock()
	w.f.log = append(w.f.log, "tx:"+strconv.Itoa(len(r)))
	w.f.mu.Unlock()
	return nil
}

func (w fakeWire) Transfer(b byte) (byte, error) { return 0, nil }

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements halcore.GPIOPin and records every level written.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	history []bool
}

func (p *FakePin) ConfigureInput(_ halcore.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.history = append(p.history, initial)
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.history = append(p.history, level)
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *FakePin) Toggle() { p.Set(!p.Get()) }

func (p *FakePin) Number() int { return p.number }

// IsOutput reports whether the pin was last configured as an output.
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// History returns every level written, oldest first.
func (p *FakePin) History() []bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]bool(nil), p.history...)
}

// ----------------------------- Factories -------------------------------------

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func (f *HostPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	return f.Get(n), true
}

// Get exposes the underlying *FakePin for tests.
func (f *HostPinFactory) Get(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}

// HostSPIFactory serves FakeSPI buses by id.
type HostSPIFactory struct {
	Buses map[string]*FakeSPI
}

func (f *HostSPIFactory) ByID(id string) (drivers.SPI, bool) {
	b, ok := f.Buses[id]
	if !ok {
		return nil, false
	}
	return b, true
}
