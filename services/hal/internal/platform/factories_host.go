// services/hal/internal/platform/factories_host.go
//go:build !linux && !(rp2040 || rp2350)

package platform

import (
	"os"

	"max6675-go/services/hal/internal/halcore"
)

// Hosts without spidev get inert fake buses "spi0" and "spi1".
func DefaultSPIFactory(Options) halcore.SPIBusFactory {
	return &HostSPIFactory{Buses: map[string]*FakeSPI{
		"spi0": NewFakeSPI(),
		"spi1": NewFakeSPI(),
	}}
}

func DefaultPinFactory(Options) halcore.PinFactory { return &HostPinFactory{} }

func Console() interface{ Write([]byte) (int, error) } { return os.Stdout }
