// Command max6675-read reads a MAX6675 thermocouple converter on a Linux
// SPI bus, with chip select on a GPIO line, and prints the median of a few
// samples. With --metrics it keeps sampling and serves Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"max6675-go/bus"
	"max6675-go/services/hal"
	"max6675-go/services/heartbeat"
	"max6675-go/types"
	"max6675-go/x/mathx"
)

var maskAny = errors.WithStack

type options struct {
	spi      string
	chip     string
	cs       int
	mode     string
	samples  int
	interval time.Duration
	settle   time.Duration
	hz       int
	metrics  string
	level    string
}

func main() {
	var o options
	pflag.StringVar(&o.spi, "spi", "spi0", "SPI port (spi0, spi0.1 or a periph port name)")
	pflag.StringVar(&o.chip, "chip", "gpiochip0", "GPIO chip carrying the chip-select line")
	pflag.IntVar(&o.cs, "cs", 8, "Chip-select line offset")
	pflag.StringVar(&o.mode, "mode", "blocking", "Acquisition mode (blocking|irq)")
	pflag.IntVarP(&o.samples, "samples", "n", 3, "Samples to take; the median is printed")
	pflag.DurationVar(&o.interval, "interval", 250*time.Millisecond, "Time between samples (min 200ms)")
	pflag.DurationVar(&o.settle, "settle", time.Microsecond, "Delay between end of transfer and CS release")
	pflag.IntVar(&o.hz, "hz", 4_000_000, "SPI clock in Hz")
	pflag.StringVar(&o.metrics, "metrics", "", "Serve Prometheus metrics on this address and sample until interrupted")
	pflag.StringVarP(&o.level, "level", "l", "info", "Set log level")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(o.level); err == nil {
		logger = logger.Level(lvl)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o, logger); err != nil && errors.Cause(err) != context.Canceled {
		Exitf("max6675-read: %v\n", err)
	}
}

func run(ctx context.Context, o options, log zerolog.Logger) error {
	if err := o.validate(); err != nil {
		return err
	}

	b := bus.NewBus(16)
	conn := b.NewConnection("cli")
	m := newMetrics(prometheus.DefaultRegisterer)

	g, ctx := errgroup.WithContext(ctx)
	halCtx, stopHAL := context.WithCancel(ctx)
	defer stopHAL()

	g.Go(func() error {
		hal.Run(halCtx, b.NewConnection("hal"), hal.Options{GPIOChip: o.chip, SPIHz: o.hz})
		return nil
	})

	if o.metrics != "" {
		srv := &http.Server{Addr: o.metrics, Handler: promhttp.Handler()}
		g.Go(func() error {
			log.Info().Str("addr", o.metrics).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "metrics server")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}

	g.Go(func() error {
		defer stopHAL()
		return collect(ctx, conn, o, log, m)
	})
	return g.Wait()
}

func (o options) validate() error {
	switch {
	case o.mode != "blocking" && o.mode != "irq":
		return errors.Errorf("unknown mode %q", o.mode)
	case o.samples <= 0 && o.metrics == "":
		return errors.New("--samples must be positive")
	case o.cs < 0:
		return errors.New("--cs must not be negative")
	}
	return nil
}

// deviceConfig is the HAL configuration for the single device.
func (o options) deviceConfig() map[string]any {
	return map[string]any{
		"devices": []map[string]any{{
			"id":   "tc0",
			"type": "max6675",
			"params": map[string]any{
				"cs_pin":    o.cs,
				"mode":      o.mode,
				"settle_us": int(o.settle / time.Microsecond),
				"sample_ms": int(o.interval / time.Millisecond),
			},
			"bus_ref": map[string]any{"type": "spi", "id": o.spi},
		}},
	}
}

// collect configures the HAL and gathers readings until enough samples
// (or, with metrics enabled, until ctx ends).
func collect(ctx context.Context, conn *bus.Connection, o options, log zerolog.Logger, m *metrics) error {
	stateSub := conn.Subscribe(bus.T("hal", "state"))
	valSub := conn.Subscribe(bus.T("hal", "capability", string(types.KindTemperature), 0, "value"))
	capSub := conn.Subscribe(bus.T("hal", "capability", string(types.KindTemperature), 0, "state"))
	defer conn.Disconnect()

	conn.Publish(conn.NewMessage(bus.T("config", "hal"), o.deviceConfig(), true))

	var centi []int32
	faults := 0
	timeout := time.NewTimer(readTimeout(o))
	defer timeout.Stop()

	for o.metrics != "" || len(centi) < o.samples {
		select {
		case <-ctx.Done():
			return maskAny(ctx.Err())

		case <-timeout.C:
			return errors.Errorf("no reading within %s", readTimeout(o))

		case msg := <-stateSub.Channel():
			st, ok := msg.Payload.(types.HALState)
			if !ok {
				continue
			}
			log.Debug().Str("level", st.Level).Str("status", st.Status).Msg("hal state")
			if st.Error != "" {
				return errors.Errorf("hal %s: %s", st.Status, st.Error)
			}

		case msg := <-capSub.Channel():
			st, ok := msg.Payload.(types.CapabilityState)
			if !ok || st.Link != types.LinkDegraded {
				continue
			}
			m.reads.WithLabelValues(st.Error).Inc()
			log.Warn().Str("error", st.Error).Msg("read failed")
			if faults++; faults >= 3 && o.metrics == "" {
				return errors.Errorf("thermocouple fault: %s", st.Error)
			}

		case msg := <-valSub.Channel():
			v, ok := msg.Payload.(types.TemperatureValue)
			if !ok {
				continue
			}
			faults = 0
			centi = append(centi, v.CentiC)
			c := float64(v.CentiC) / 100
			m.reads.WithLabelValues("ok").Inc()
			m.celsius.Set(c)
			log.Debug().Float64("celsius", c).Uint16("raw", v.Raw).Msg("sample")
			timeout.Reset(readTimeout(o))
			if o.metrics != "" && len(centi) > 64 {
				centi = centi[1:]
			}
		}
	}

	fmt.Printf("Thermocouple: %s°C\n", heartbeat.FormatCenti(mathx.Median(centi)))
	return nil
}

// readTimeout allows a few missed periods before giving up.
func readTimeout(o options) time.Duration {
	return 5*o.interval + 2*time.Second
}

type metrics struct {
	celsius prometheus.Gauge
	reads   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		celsius: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "max6675_temperature_celsius",
			Help: "Last thermocouple temperature.",
		}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "max6675_reads_total",
			Help: "Reads by result (ok or an error code such as open_circuit).",
		}, []string{"result"}),
	}
	reg.MustRegister(m.celsius, m.reads)
	return m
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
