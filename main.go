package main

import (
	"context"
	"time"

	"max6675-go/bus"
	"max6675-go/services/config"
	"max6675-go/services/hal"
	"max6675-go/services/heartbeat"
	"max6675-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")

	b := bus.NewBus(8)
	go hal.Run(ctx, b.NewConnection("hal"), hal.Options{})

	hb := &heartbeat.Service{Out: hal.Console()}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	errs := make(chan error, 1)
	config.NewConfigService().Start(ctx, b.NewConnection("config"), errs)

	stateSub := b.NewConnection("main").Subscribe(bus.T("hal", "state"))
	for {
		select {
		case err := <-errs:
			println("Error: config:", err.Error())
		case m := <-stateSub.Channel():
			if st, ok := m.Payload.(types.HALState); ok {
				println("Info: hal", st.Level, st.Status, st.Error)
			}
		}
	}
}
