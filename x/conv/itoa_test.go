package conv

import "testing"

func TestItoa(t *testing.T) {
	var buf [20]byte
	for in, want := range map[int64]string{0: "0", 7: "7", -42: "-42", 1234567: "1234567"} {
		if got := string(Itoa(buf[:], in)); got != want {
			t.Errorf("Itoa(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFixed(t *testing.T) {
	var buf [24]byte
	cases := []struct {
		n      int64
		places int
		want   string
	}{
		{2325, 2, "23.25"},
		{5, 2, "0.05"},
		{0, 2, "0.00"},
		{-125, 2, "-1.25"},
		{-5, 1, "-0.5"},
		{3600, 0, "3600"},
	}
	for _, c := range cases {
		if got := string(Fixed(buf[:], c.n, c.places)); got != c.want {
			t.Errorf("Fixed(%d, %d) = %q, want %q", c.n, c.places, got, c.want)
		}
	}
}
