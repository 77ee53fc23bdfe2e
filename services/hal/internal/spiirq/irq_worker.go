// services/hal/internal/spiirq/irq_worker.go
package spiirq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"max6675-go/services/hal/internal/halcore"
	"max6675-go/services/hal/internal/registry"
)

// CompletionEvent is delivered from the worker to the HAL service once a
// device has finished an interrupt-mode transfer.
type CompletionEvent struct {
	DevID string
	TS    time.Time
}

type Worker struct {
	// Written by ISR; MUST NOT block the ISR:
	isrQ chan string
	// Consumed by the HAL service:
	outQ    chan CompletionEvent
	stopped chan struct{}

	mu    sync.Mutex
	buses map[string]halcore.AsyncSPI // devID -> bus with our handler installed

	drops uint32 // ISR drop counter
}

func New(isrBuf, outBuf int) *Worker {
	if isrBuf <= 0 {
		isrBuf = 16
	}
	if outBuf <= 0 {
		outBuf = 16
	}
	return &Worker{
		isrQ:    make(chan string, isrBuf),
		outQ:    make(chan CompletionEvent, outBuf),
		stopped: make(chan struct{}),
		buses:   map[string]halcore.AsyncSPI{},
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-w.isrQ:
				select {
				case w.outQ <- CompletionEvent{DevID: id, TS: time.Now()}:
				default:
					// drop to protect system if consumer is slow
				}
			}
		}
	}()
}

func (w *Worker) Events() <-chan CompletionEvent { return w.outQ }

// Register routes the bus completion interrupt to c. The handler finishes
// the transfer in interrupt context (settle, CS release) and only then hands
// the device id to the worker. The returned func removes the handler; a
// transfer already submitted still completes through it.
func (w *Worker) Register(req registry.CompletionRequest) (func(), error) {
	devID, bus, c := req.DevID, req.Bus, req.Completer

	handler := func(err error) {
		if err != nil {
			c.TransferFailed(err)
		} else {
			c.TransferComplete()
		}
		select {
		case w.isrQ <- devID:
		default:
			atomic.AddUint32(&w.drops, 1) // protect ISR path
		}
	}
	if err := bus.SetRxIRQ(handler); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.buses[devID] = bus
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		if b, ok := w.buses[devID]; ok {
			_ = b.ClearRxIRQ()
			delete(w.buses, devID)
		}
		w.mu.Unlock()
	}, nil
}

func (w *Worker) ISRDrops() uint32 { return atomic.LoadUint32(&w.drops) }
