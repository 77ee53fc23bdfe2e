package max6675

import "testing"

func TestDecodeAllWords(t *testing.T) {
	for r := 0; r <= 0xFFFF; r++ {
		raw := uint16(r)
		if got := IntegerCelsius(raw); got != raw>>5 {
			t.Fatalf("IntegerCelsius(%#04x) = %d", raw, got)
		}
		mag := raw >> 3
		want := float32(mag>>2) + []float32{0, 0.25, 0.50, 0.75}[mag&0x3]
		if got := FloatCelsius(raw); got != want {
			t.Fatalf("FloatCelsius(%#04x) = %v, want %v", raw, got, want)
		}
		if got := IsOpenCircuit(raw); got != ((raw>>2)&1 == 1) {
			t.Fatalf("IsOpenCircuit(%#04x) = %v", raw, got)
		}
		// Pure: a second call agrees with the first.
		if again := FloatCelsius(raw); again != want {
			t.Fatalf("decode of %#04x not stable", raw)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for d := uint16(0); d < 4096; d += 7 {
		for f := uint16(0); f < 4; f++ {
			for b := uint16(0); b < 2; b++ {
				r := ((d<<2|f)<<3 | b<<2)
				// Only 10 integer bits survive the 16-bit word.
				wantInt := float32((r >> 3) >> 2)
				if got := FloatCelsius(r); got != wantInt+float32(f)*0.25 {
					t.Fatalf("d=%d f=%d b=%d: FloatCelsius = %v", d, f, b, got)
				}
				if got := IsOpenCircuit(r); got != (b == 1) {
					t.Fatalf("d=%d f=%d b=%d: IsOpenCircuit = %v", d, f, b, got)
				}
			}
		}
	}
}

func TestRoundTripInRange(t *testing.T) {
	for _, tc := range []struct {
		deg   uint16
		frac  uint16
		open  uint16
		float float32
	}{
		{0, 0, 0, 0},
		{25, 1, 0, 25.25},
		{36, 0, 1, 36},
		{512, 2, 0, 512.5},
		{1023, 3, 1, 1023.75},
	} {
		r := Sample((tc.deg<<2|tc.frac)<<3 | tc.open<<2)
		if r.FloatCelsius() != tc.float {
			t.Fatalf("%+v: FloatCelsius = %v", tc, r.FloatCelsius())
		}
		if r.OpenCircuit() != (tc.open == 1) {
			t.Fatalf("%+v: OpenCircuit = %v", tc, r.OpenCircuit())
		}
		if r.Magnitude() != tc.deg<<2|tc.frac {
			t.Fatalf("%+v: Magnitude = %d", tc, r.Magnitude())
		}
	}
}

func TestExampleWord(t *testing.T) {
	s := Sample(0b0000010010000100)
	if s.Magnitude() != 144 {
		t.Fatalf("magnitude = %d", s.Magnitude())
	}
	if s.FloatCelsius() != 36.0 {
		t.Fatalf("float = %v", s.FloatCelsius())
	}
	if !s.OpenCircuit() {
		t.Fatal("expected open circuit")
	}
	if s.Celsius() != 36 {
		t.Fatalf("integer = %d", s.Celsius())
	}
	if s.CentiCelsius() != 3600 || s.DeciCelsius() != 360 {
		t.Fatalf("fixed point = %d / %d", s.CentiCelsius(), s.DeciCelsius())
	}
}

func TestIntegerQuirk(t *testing.T) {
	// The integer contract shifts by 5, not by 3+2 with status bits masked:
	// fractional bits are dropped and the status bits never carry in.
	s := Sample(0b0000000000111111)
	if s.Celsius() != 1 {
		t.Fatalf("Celsius = %d, want 1", s.Celsius())
	}
	if s.FloatCelsius() != 1.75 {
		t.Fatalf("FloatCelsius = %v, want 1.75", s.FloatCelsius())
	}
}
