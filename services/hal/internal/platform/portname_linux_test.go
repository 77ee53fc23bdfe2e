//go:build linux && !(rp2040 || rp2350)

package platform

import "testing"

func TestPortName(t *testing.T) {
	for in, want := range map[string]string{
		"spi0":           "SPI0.0",
		"spi1.2":         "SPI1.2",
		"/dev/spidev0.1": "/dev/spidev0.1",
		"SPI0.1":         "SPI0.1",
	} {
		if got := portName(in); got != want {
			t.Errorf("portName(%q) = %q, want %q", in, got, want)
		}
	}
}
