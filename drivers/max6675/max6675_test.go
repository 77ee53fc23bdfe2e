package max6675

import (
	"errors"
	"testing"
	"time"
)

// recorder keeps an ordered log of bus and pin activity shared by the fakes.
type recorder struct {
	events []string
	csAt   []time.Time // time of each CS transition
	txEnd  time.Time
}

type fakePin struct {
	rec   *recorder
	level bool
}

func (p *fakePin) Set(level bool) {
	p.level = level
	if level {
		p.rec.events = append(p.rec.events, "cs_high")
	} else {
		p.rec.events = append(p.rec.events, "cs_low")
	}
	p.rec.csAt = append(p.rec.csAt, time.Now())
}

// fakeSPI returns word on every receive.
type fakeSPI struct {
	rec  *recorder
	word uint16
	err  error
}

func (f *fakeSPI) Tx(w, r []byte) error {
	f.rec.events = append(f.rec.events, "tx")
	if len(r) == 2 {
		r[0] = byte(f.word >> 8)
		r[1] = byte(f.word)
	}
	f.rec.txEnd = time.Now()
	return f.err
}

func (f *fakeSPI) Transfer(b byte) (byte, error) { return 0, nil }

// fakeAsyncSPI fills the buffer on StartRx but leaves completion to the test.
type fakeAsyncSPI struct {
	fakeSPI
	reject error
	rx     []byte
}

func (f *fakeAsyncSPI) StartRx(r []byte) error {
	f.rec.events = append(f.rec.events, "start_rx")
	if f.reject != nil {
		return f.reject
	}
	f.rx = r
	r[0] = byte(f.word >> 8)
	r[1] = byte(f.word)
	return nil
}

func equalEvents(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewReleasesChipSelect(t *testing.T) {
	rec := &recorder{}
	cs := &fakePin{rec: rec}
	d := New(&fakeSPI{rec: rec}, cs)

	if !equalEvents(rec.events, []string{"cs_high"}) {
		t.Fatalf("unexpected events: %v", rec.events)
	}
	if d.Pending() || d.Available() {
		t.Fatal("fresh device must be idle with nothing available")
	}
	if d.Settle() != DefaultSettle {
		t.Fatalf("settle = %v, want %v", d.Settle(), DefaultSettle)
	}
}

func TestReadOrdering(t *testing.T) {
	rec := &recorder{}
	cs := &fakePin{rec: rec}
	const settle = 200 * time.Microsecond
	d := New(&fakeSPI{rec: rec, word: 0x0484}, cs, Config{Settle: settle})
	rec.events = nil
	rec.csAt = nil

	s, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s != 0x0484 || d.Sample() != 0x0484 {
		t.Fatalf("sample = %#04x, stored = %#04x", uint16(s), uint16(d.Sample()))
	}
	if !equalEvents(rec.events, []string{"cs_low", "tx", "cs_high"}) {
		t.Fatalf("unexpected events: %v", rec.events)
	}
	if gap := rec.csAt[1].Sub(rec.txEnd); gap < settle {
		t.Fatalf("CS released %v after transfer, want >= %v", gap, settle)
	}
	if !cs.level {
		t.Fatal("CS left low")
	}
	if d.Pending() {
		t.Fatal("blocking read must not leave a conversion pending")
	}
}

func TestReadHelpers(t *testing.T) {
	rec := &recorder{}
	bus := &fakeSPI{rec: rec, word: 0x0484}
	d := New(bus, &fakePin{rec: rec})

	c, err := d.ReadCelsius()
	if err != nil || c != 36 {
		t.Fatalf("ReadCelsius = %d, %v", c, err)
	}
	f, err := d.ReadFloat()
	if err != nil || f != 36.0 {
		t.Fatalf("ReadFloat = %v, %v", f, err)
	}
	open, err := d.ReadOpenCircuit()
	if err != nil || !open {
		t.Fatalf("ReadOpenCircuit = %v, %v", open, err)
	}

	// Every helper goes through the full CS cycle.
	n := 0
	for _, e := range rec.events {
		if e == "tx" {
			n++
		}
	}
	if n != 3 {
		t.Fatalf("expected 3 transfers, got %d (%v)", n, rec.events)
	}
}

func TestReadBusErrorReleasesCS(t *testing.T) {
	rec := &recorder{}
	cs := &fakePin{rec: rec}
	boom := errors.New("boom")
	d := New(&fakeSPI{rec: rec, word: 0xFFFF, err: boom}, cs)

	if _, err := d.ReadFloat(); err != boom {
		t.Fatalf("err = %v, want boom", err)
	}
	if !cs.level {
		t.Fatal("CS left low after bus error")
	}
	if d.Sample() != 0 {
		t.Fatalf("failed read must not replace the stored sample, got %#04x", uint16(d.Sample()))
	}
}

func TestCachedAccessors(t *testing.T) {
	rec := &recorder{}
	d := New(&fakeSPI{rec: rec, word: (100<<2|3)<<3 | 1<<2}, &fakePin{rec: rec})

	// Nothing acquired yet: zero word decodes to zero.
	if d.Celsius() != 0 || d.FloatCelsius() != 0 || d.OpenCircuit() {
		t.Fatal("unexpected decode of empty sample")
	}
	if _, err := d.Read(); err != nil {
		t.Fatal(err)
	}
	if d.FloatCelsius() != 100.75 {
		t.Fatalf("FloatCelsius = %v", d.FloatCelsius())
	}
	if !d.OpenCircuit() {
		t.Fatal("expected open circuit")
	}
	if d.CentiCelsius() != 10075 || d.DeciCelsius() != 1007 {
		t.Fatalf("fixed point = %d / %d", d.CentiCelsius(), d.DeciCelsius())
	}
}

func TestAsyncCycle(t *testing.T) {
	rec := &recorder{}
	cs := &fakePin{rec: rec}
	bus := &fakeAsyncSPI{fakeSPI: fakeSPI{rec: rec, word: 0x0C80}}
	d := New(bus, cs)
	rec.events = nil

	if d.Pending() {
		t.Fatal("pending before Start")
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Pending() {
		t.Fatal("not pending after Start")
	}
	if cs.level {
		t.Fatal("CS must be low while the transfer is outstanding")
	}
	var s Sample
	if err := d.Collect(&s); err != ErrNotReady {
		t.Fatalf("Collect while pending = %v", err)
	}
	if err := d.Start(); err != ErrBusy {
		t.Fatalf("overlapping Start = %v, want ErrBusy", err)
	}
	if !equalEvents(rec.events, []string{"cs_low", "start_rx"}) {
		t.Fatalf("unexpected events before completion: %v", rec.events)
	}

	d.TransferComplete()

	if !equalEvents(rec.events, []string{"cs_low", "start_rx", "cs_high"}) {
		t.Fatalf("unexpected events after completion: %v", rec.events)
	}
	if d.Pending() || !d.Available() {
		t.Fatal("expected idle with a conversion available")
	}
	if err := d.Collect(&s); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if s.FloatCelsius() != 100 || s.OpenCircuit() {
		t.Fatalf("unexpected sample %#04x", uint16(s))
	}
	if err := d.Collect(&s); err != ErrNotReady {
		t.Fatalf("second Collect = %v, want ErrNotReady", err)
	}

	// A stray notification changes nothing.
	n := len(rec.events)
	d.TransferComplete()
	if len(rec.events) != n || d.Available() {
		t.Fatal("stray completion must be ignored")
	}
}

func TestAsyncRejectedSubmit(t *testing.T) {
	rec := &recorder{}
	cs := &fakePin{rec: rec}
	nak := errors.New("queue full")
	d := New(&fakeAsyncSPI{fakeSPI: fakeSPI{rec: rec}, reject: nak}, cs)

	if err := d.Start(); err != nak {
		t.Fatalf("Start = %v, want rejection", err)
	}
	if d.Pending() || !cs.level {
		t.Fatal("rejected submit must leave the device idle with CS high")
	}
}

func TestStartWithoutAsyncBus(t *testing.T) {
	rec := &recorder{}
	d := New(&fakeSPI{rec: rec}, &fakePin{rec: rec})
	if err := d.Start(); err != ErrNoAsync {
		t.Fatalf("Start = %v, want ErrNoAsync", err)
	}
}

func TestAsyncTransferFailed(t *testing.T) {
	rec := &recorder{}
	cs := &fakePin{rec: rec}
	bus := &fakeAsyncSPI{fakeSPI: fakeSPI{rec: rec, word: 0x0C80}}
	d := New(bus, cs)

	// One good conversion to have something stored.
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	d.TransferComplete()
	var s Sample
	if err := d.Collect(&s); err != nil {
		t.Fatal(err)
	}

	bus.word = 0xFFFF
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	stall := errors.New("stall")
	d.TransferFailed(stall)

	if d.Pending() || !cs.level {
		t.Fatal("failed transfer must leave the device idle with CS high")
	}
	if err := d.Collect(&s); err != stall {
		t.Fatalf("Collect = %v, want the bus error", err)
	}
	if d.Sample() != 0x0C80 {
		t.Fatalf("failed transfer replaced the stored sample: %#04x", uint16(d.Sample()))
	}
	if err := d.Collect(&s); err != ErrNotReady {
		t.Fatalf("second Collect = %v, want ErrNotReady", err)
	}

	// The error does not leak into the next cycle.
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	d.TransferComplete()
	if err := d.Collect(&s); err != nil || s != 0xFFFF {
		t.Fatalf("Collect after recovery = %#04x, %v", uint16(s), err)
	}
}
