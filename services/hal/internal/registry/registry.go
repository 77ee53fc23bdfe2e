// services/hal/internal/registry/registry.go
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"max6675-go/services/hal/internal/halcore"
)

// BuildInput is passed to a device builder.
type BuildInput struct {
	Ctx        context.Context
	SPIs       halcore.SPIBusFactory
	Pins       halcore.PinFactory
	DeviceID   string
	Type       string
	ParamsJSON interface{}
	BusRefType string // e.g. "spi"
	BusRefID   string // e.g. "spi0"
}

// BuildOutput describes a constructed device.
type BuildOutput struct {
	Adaptor     halcore.Adaptor
	BusID       string             // "" if not on a shared bus
	SampleEvery time.Duration      // 0 if not a periodic producer
	Completion  *CompletionRequest // nil unless the device runs in interrupt mode
}

// Completer finishes a transfer from the bus completion context.
type Completer interface {
	TransferComplete()
	TransferFailed(err error)
}

// CompletionRequest asks the service to route a bus's transfer-complete
// interrupt to a device.
type CompletionRequest struct {
	DevID     string
	Bus       halcore.AsyncSPI
	Completer Completer
}

// Builder creates an adaptor from config and factories.
type Builder interface {
	Build(in BuildInput) (BuildOutput, error)
}

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

func RegisterBuilder(deviceType string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[deviceType]; exists {
		panic(fmt.Sprintf("device builder already registered for type %q", deviceType))
	}
	builders[deviceType] = b
}

func Lookup(deviceType string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}
