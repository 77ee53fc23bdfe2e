// services/hal/internal/platform/asyncbus.go
package platform

import (
	"sync"
	"sync/atomic"

	"tinygo.org/x/drivers"
)

// goAsyncSPI adds a background receive to a blocking SPI bus: StartRx runs
// the transfer on a goroutine and calls the completion handler with its
// error when it returns. Blocking transfers are refused with ErrBusBusy
// while a background one is in flight.
type goAsyncSPI struct {
	drivers.SPI

	mu      sync.Mutex
	handler func(error)
	busy    uint32
}

func newGoAsyncSPI(bus drivers.SPI) *goAsyncSPI { return &goAsyncSPI{SPI: bus} }

func (b *goAsyncSPI) Tx(w, r []byte) error {
	if !atomic.CompareAndSwapUint32(&b.busy, 0, 1) {
		return ErrBusBusy
	}
	defer atomic.StoreUint32(&b.busy, 0)
	return b.SPI.Tx(w, r)
}

func (b *goAsyncSPI) Transfer(x byte) (byte, error) {
	if !atomic.CompareAndSwapUint32(&b.busy, 0, 1) {
		return 0, ErrBusBusy
	}
	defer atomic.StoreUint32(&b.busy, 0)
	return b.SPI.Transfer(x)
}

// StartRx submits r. The handler installed now is the one called on
// completion, so clearing it afterwards cannot strand the transfer.
func (b *goAsyncSPI) StartRx(r []byte) error {
	if !atomic.CompareAndSwapUint32(&b.busy, 0, 1) {
		return ErrBusBusy
	}
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	w := make([]byte, len(r))
	go func() {
		err := b.SPI.Tx(w, r)
		atomic.StoreUint32(&b.busy, 0)
		if h != nil {
			h(err)
		}
	}()
	return nil
}

func (b *goAsyncSPI) SetRxIRQ(handler func(error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler != nil {
		return ErrHandlerInstalled
	}
	b.handler = handler
	return nil
}

func (b *goAsyncSPI) ClearRxIRQ() error {
	b.mu.Lock()
	b.handler = nil
	b.mu.Unlock()
	return nil
}
