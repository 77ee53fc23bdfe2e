// services/hal/internal/devices/max6675adpt/adaptor.go
package max6675adpt

import (
	"context"
	"sync"
	"time"

	"max6675-go/drivers/max6675"
	"max6675-go/errcode"
	"max6675-go/services/hal/internal/consts"
	"max6675-go/services/hal/internal/halcore"
	"max6675-go/services/hal/internal/halerr"
	"max6675-go/services/hal/internal/registry"
	"max6675-go/services/hal/internal/util"
	"max6675-go/types"
	"max6675-go/x/mathx"
)

// Register this device type with the registry.
func init() {
	registry.RegisterBuilder("max6675", builder{})
}

const (
	ModeBlocking = "blocking"
	ModeIRQ      = "irq"

	defaultSampleEvery = time.Second
	// A 16-bit receive at 4 MHz takes a few µs.
	collectHint = time.Millisecond
)

// Params supplied via config: { "cs_pin": 17, "mode": "irq", "settle_us": 1, "sample_ms": 1000 }
type Params struct {
	CSPin    *int   `json:"cs_pin"`
	Mode     string `json:"mode,omitempty"` // "blocking" (default) | "irq"
	SettleUS int    `json:"settle_us,omitempty"`
	SampleMS int    `json:"sample_ms,omitempty"`
}

type builder struct{}

func (builder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	if in.BusRefType != "spi" || in.BusRefID == "" {
		return registry.BuildOutput{}, halerr.ErrMissingBusRef
	}
	bus, ok := in.SPIs.ByID(in.BusRefID)
	if !ok {
		return registry.BuildOutput{}, halerr.ErrUnknownBus
	}
	var p Params
	if err := util.DecodeJSON(in.ParamsJSON, &p); err != nil {
		return registry.BuildOutput{}, util.Errf("max6675 params: %w", err)
	}
	if p.CSPin == nil {
		return registry.BuildOutput{}, halerr.ErrMissingCSPin
	}
	if p.SettleUS < 0 || p.SampleMS < 0 {
		return registry.BuildOutput{}, errcode.InvalidParams
	}
	if p.Mode == "" {
		p.Mode = ModeBlocking
	}

	var async halcore.AsyncSPI
	switch p.Mode {
	case ModeBlocking:
	case ModeIRQ:
		if async, ok = bus.(halcore.AsyncSPI); !ok {
			return registry.BuildOutput{}, halerr.ErrNoAsyncBus
		}
	default:
		return registry.BuildOutput{}, halerr.ErrInvalidMode
	}

	cs, ok := in.Pins.ByNumber(*p.CSPin)
	if !ok {
		return registry.BuildOutput{}, halerr.ErrUnknownPin
	}
	if err := cs.ConfigureOutput(true); err != nil {
		return registry.BuildOutput{}, err
	}

	var cfg max6675.Config
	if p.SettleUS > 0 {
		cfg.Settle = time.Duration(p.SettleUS) * time.Microsecond
	}
	dev := max6675.New(bus, cs, cfg)

	ad := &adaptor{
		id:   in.DeviceID,
		dev:  dev,
		mode: p.Mode,
		info: types.TemperatureInfo{
			Sensor: "max6675",
			Bus:    in.BusRefID,
			CSPin:  *p.CSPin,
			Mode:   p.Mode,
			StepC:  "0.25",
		},
	}

	out := registry.BuildOutput{
		Adaptor:     ad,
		BusID:       in.BusRefID,
		SampleEvery: defaultSampleEvery,
	}
	if p.SampleMS > 0 {
		out.SampleEvery = time.Duration(p.SampleMS) * time.Millisecond
	}
	if async != nil {
		out.Completion = &registry.CompletionRequest{DevID: in.DeviceID, Bus: async, Completer: dev}
	}
	return out, nil
}

type adaptor struct {
	id   string
	dev  *max6675.Device
	mode string
	info types.TemperatureInfo

	mu   sync.Mutex
	last *types.TemperatureValue
}

func (a *adaptor) ID() string { return a.id }

func (a *adaptor) Capabilities() []halcore.CapInfo {
	return []halcore.CapInfo{{
		Kind: string(types.KindTemperature),
		Info: types.Info{SchemaVersion: 1, Driver: "max6675", Detail: a.info},
	}}
}

// Trigger runs the whole read in blocking mode. In irq mode it only starts
// the transfer; the bus completion finishes it.
func (a *adaptor) Trigger(ctx context.Context) (time.Duration, error) {
	if a.mode == ModeIRQ {
		if err := a.dev.Start(); err != nil {
			if err == max6675.ErrBusy || err == max6675.ErrNoAsync {
				return 0, errcode.MapDriverErr(err)
			}
			return 0, err
		}
		return collectHint, nil
	}
	_, err := a.dev.Read()
	return 0, err
}

func (a *adaptor) Collect(ctx context.Context) (halcore.Sample, error) {
	var s max6675.Sample
	if a.mode == ModeIRQ {
		if err := a.dev.Collect(&s); err != nil {
			if err == max6675.ErrNotReady {
				return nil, halcore.ErrNotReady
			}
			return nil, err
		}
	} else {
		s = a.dev.Sample()
	}
	if s.OpenCircuit() {
		return nil, errcode.OpenCircuit
	}

	v := valueOf(s)
	a.mu.Lock()
	a.last = &v
	a.mu.Unlock()

	return halcore.Sample{{
		Kind:    string(types.KindTemperature),
		Payload: v,
		TsMs:    time.Now().UnixMilli(),
	}}, nil
}

// Control supports "sample": the last collected value, with no bus access.
func (a *adaptor) Control(kind, method string, payload any) (any, error) {
	if kind != string(types.KindTemperature) || method != consts.CtrlSample {
		return nil, halcore.ErrUnsupported
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return nil, errcode.NotReady
	}
	return *a.last, nil
}

func valueOf(s max6675.Sample) types.TemperatureValue {
	deci := mathx.Clamp(s.DeciCelsius(), -32768, 32767)
	return types.TemperatureValue{DeciC: int16(deci), CentiC: s.CentiCelsius(), Raw: uint16(s)}
}
