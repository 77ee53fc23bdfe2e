package util

import (
	"testing"
	"time"
)

func TestDecodeJSON(t *testing.T) {
	type P struct {
		CSPin int    `json:"cs_pin"`
		Mode  string `json:"mode"`
	}

	for name, in := range map[string]any{
		"bytes":  []byte(`{"cs_pin":17,"mode":"irq"}`),
		"string": `{"cs_pin":17,"mode":"irq"}`,
		"map":    map[string]any{"cs_pin": 17, "mode": "irq"},
		"struct": struct {
			CSPin int    `json:"cs_pin"`
			Mode  string `json:"mode"`
		}{17, "irq"},
	} {
		var p P
		if err := DecodeJSON(in, &p); err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		if p.CSPin != 17 || p.Mode != "irq" {
			t.Fatalf("%s: unexpected result: %+v", name, p)
		}
	}

	p := struct{ A int }{A: 3}
	if err := DecodeJSON(nil, &p); err != nil || p.A != 3 {
		t.Fatalf("nil source should leave dst untouched: %+v, %v", p, err)
	}
}

func TestClampDuration(t *testing.T) {
	lo, hi := 200*time.Millisecond, time.Hour
	if ClampDuration(time.Millisecond, lo, hi) != lo {
		t.Fatal("clamp low failed")
	}
	if ClampDuration(2*time.Hour, lo, hi) != hi {
		t.Fatal("clamp high failed")
	}
	if ClampDuration(time.Second, lo, hi) != time.Second {
		t.Fatal("clamp mid failed")
	}
}

func TestResetAndDrainTimer(t *testing.T) {
	tm := time.NewTimer(time.Hour)
	if !tm.Stop() {
		DrainTimer(tm)
	}
	// Reset to near-zero and ensure it fires quickly.
	ResetTimer(tm, 1*time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after ResetTimer")
	}
	// Negative reset clamps to zero and should fire immediately.
	ResetTimer(tm, -1)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after negative ResetTimer")
	}
}
