// services/hal/internal/service/service.go
package service

import (
	"context"
	"time"

	"max6675-go/bus"
	"max6675-go/errcode"
	"max6675-go/services/hal/config"
	"max6675-go/services/hal/internal/consts"
	"max6675-go/services/hal/internal/halcore"
	"max6675-go/services/hal/internal/halerr"
	"max6675-go/services/hal/internal/registry"
	"max6675-go/services/hal/internal/spiirq"
	"max6675-go/services/hal/internal/util"
	"max6675-go/services/hal/internal/worker"
	"max6675-go/types"
)

const (
	minPeriod  = consts.MinSamplePeriodMs * time.Millisecond
	maxPeriod  = consts.MaxSamplePeriodMs * time.Millisecond
	firstDelay = 200 * time.Millisecond
)

type devEntry struct {
	adaptor halcore.Adaptor
	caps    map[string]int // kind -> numeric capability id
	busID   string
}

type capKey struct {
	kind string
	id   int
}

type Service struct {
	conn *bus.Connection
	spis halcore.SPIBusFactory
	pins halcore.PinFactory

	workers map[string]*worker.MeasureWorker // busID -> worker
	results chan halcore.Result

	devices   map[string]devEntry
	capToDev  map[capKey]string // (kind,id) -> devID
	nextCapID map[string]int

	devPeriod  map[string]time.Duration
	devNextDue map[string]time.Time

	timer *time.Timer

	// Transfer-complete routing for interrupt-mode devices
	irqW      *spiirq.Worker
	irqCancel map[string]func() // devID -> unregister
}

var (
	topicConfigHAL = bus.Topic{consts.TokConfig, consts.TokHAL}
	topicCtrl      = bus.Topic{consts.TokHAL, consts.TokCapability, "+", "+", consts.TokControl, "+"}
)

func New(conn *bus.Connection, spis halcore.SPIBusFactory, pins halcore.PinFactory) *Service {
	return &Service{
		conn:       conn,
		spis:       spis,
		pins:       pins,
		workers:    map[string]*worker.MeasureWorker{},
		results:    make(chan halcore.Result, 64),
		devices:    map[string]devEntry{},
		capToDev:   map[capKey]string{},
		nextCapID:  map[string]int{},
		devPeriod:  map[string]time.Duration{},
		devNextDue: map[string]time.Time{},
		irqW:       spiirq.New(32, 32),
		irqCancel:  map[string]func(){},
	}
}

func (s *Service) Run(ctx context.Context) {
	s.irqW.Start(ctx)

	cfgSub := s.conn.Subscribe(topicConfigHAL)
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		util.DrainTimer(s.timer)
	}

	for {
		if next := s.earliestDevDue(); next.IsZero() {
			util.ResetTimer(s.timer, time.Hour)
		} else {
			util.ResetTimer(s.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			for _, c := range s.irqCancel {
				c()
			}
			return

		case msg := <-cfgSub.Channel():
			var cfg config.HALConfig
			switch p := msg.Payload.(type) {
			case config.HALConfig:
				cfg = p
			case *config.HALConfig:
				cfg = *p
			default:
				if err := util.DecodeJSON(p, &cfg); err != nil {
					s.publishState("error", "config_wrong_type", err)
					continue
				}
			}
			if err := cfg.Validate(); err != nil {
				s.publishState("error", "invalid_config", err)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.publishState("ready", "configured_with_errors", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-s.timer.C:
			now := time.Now()
			for devID, due := range s.devNextDue {
				if !now.Before(due) {
					s.submitMeasure(devID, false)
					s.bumpDevNext(devID, now)
				}
			}

		case r := <-s.results:
			s.handleResult(r)

		case ev := <-s.irqW.Events():
			s.handleCompletion(ev)
		}
	}
}

// applyConfig builds devices not yet known and tears down those no longer
// listed. A device that fails to build is skipped; the first error is
// returned once the rest are applied.
func (s *Service) applyConfig(ctx context.Context, cfg config.HALConfig) error {
	var firstErr error
	seen := map[string]struct{}{}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}

		if _, exists := s.devices[d.ID]; exists {
			continue
		}
		if err := s.buildDevice(ctx, d); err != nil && firstErr == nil {
			firstErr = util.Errf("%s: %w", d.ID, err)
		}
	}

	for devID := range s.devices {
		if _, ok := seen[devID]; !ok {
			s.removeDevice(devID)
		}
	}
	return firstErr
}

func (s *Service) buildDevice(ctx context.Context, d *config.Device) error {
	b, ok := registry.Lookup(d.Type)
	if !ok {
		return halerr.ErrUnknownType
	}
	out, err := b.Build(registry.BuildInput{
		Ctx:        ctx,
		SPIs:       s.spis,
		Pins:       s.pins,
		DeviceID:   d.ID,
		Type:       d.Type,
		ParamsJSON: d.Params,
		BusRefType: d.BusRef.Type,
		BusRefID:   d.BusRef.ID,
	})
	if err != nil {
		return err
	}

	if out.Completion != nil {
		cancel, err := s.irqW.Register(*out.Completion)
		if err != nil {
			return err
		}
		s.irqCancel[d.ID] = cancel
	}

	if out.BusID != "" {
		if _, ok := s.workers[out.BusID]; !ok {
			// Devices share SO on a bus, so one transfer at a time.
			w := worker.New(halcore.WorkerConfig{Exclusive: true}, s.results)
			w.Start(ctx)
			s.workers[out.BusID] = w
		}
	}

	ad := out.Adaptor
	entry := devEntry{adaptor: ad, busID: out.BusID, caps: map[string]int{}}
	now := time.Now()
	for _, ci := range ad.Capabilities() {
		id := s.nextCapID[ci.Kind]
		s.nextCapID[ci.Kind]++

		entry.caps[ci.Kind] = id
		s.capToDev[capKey{kind: ci.Kind, id: id}] = d.ID

		s.pubRet(ci.Kind, id, consts.TokInfo, ci.Info)
		s.pubRet(ci.Kind, id, consts.TokState, types.CapabilityState{Link: types.LinkUp, TS: now})
	}
	s.devices[d.ID] = entry

	if out.SampleEvery > 0 {
		s.devPeriod[d.ID] = util.ClampDuration(out.SampleEvery, minPeriod, maxPeriod)
		s.devNextDue[d.ID] = now.Add(firstDelay)
	}
	return nil
}

func (s *Service) removeDevice(devID string) {
	ent := s.devices[devID]
	for kind, id := range ent.caps {
		s.pubRet(kind, id, consts.TokInfo, nil)
		s.pubRet(kind, id, consts.TokState, types.CapabilityState{Link: types.LinkDown, TS: time.Now()})
		delete(s.capToDev, capKey{kind: kind, id: id})
	}
	if c, ok := s.irqCancel[devID]; ok {
		c()
		delete(s.irqCancel, devID)
	}
	delete(s.devices, devID)
	delete(s.devPeriod, devID)
	delete(s.devNextDue, devID)
}

// ---- control plane ----

func (s *Service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 6 {
		return
	}
	kind, _ := msg.Topic[2].(string)
	idNum, ok := asInt(msg.Topic[3])
	if !ok || kind == "" {
		s.replyErr(msg, halerr.ErrInvalidCapAddr)
		return
	}
	devID, ok := s.capToDev[capKey{kind: kind, id: idNum}]
	if !ok {
		s.replyErr(msg, halerr.ErrUnknownCap)
		return
	}
	method, _ := msg.Topic[5].(string)

	switch method {
	case consts.CtrlReadNow:
		if s.submitMeasure(devID, true) {
			s.bumpDevNext(devID, time.Now())
			s.conn.Reply(msg, types.ReadNowAck{OK: true}, false)
		} else {
			s.replyErr(msg, errcode.Busy)
		}
	case consts.CtrlSetRate:
		p, ok := periodOf(msg.Payload)
		if !ok || p <= 0 {
			s.replyErr(msg, halerr.ErrInvalidPeriod)
			return
		}
		s.devPeriod[devID] = util.ClampDuration(p, minPeriod, maxPeriod)
		s.bumpDevNext(devID, time.Now())
		s.conn.Reply(msg, types.SetRateAck{OK: true, Period: s.devPeriod[devID]}, false)
	default:
		ent := s.devices[devID]
		if ent.adaptor == nil {
			s.replyErr(msg, halerr.ErrNoAdaptor)
			return
		}
		res, err := ent.adaptor.Control(kind, method, msg.Payload)
		switch {
		case err == nil:
			s.conn.Reply(msg, res, false)
		case err == halcore.ErrUnsupported:
			s.replyErr(msg, errcode.Unsupported)
		default:
			s.replyErr(msg, err)
		}
	}
}

// periodOf accepts types.SetRate or a JSON-shaped {"period_ms": n}.
func periodOf(payload any) (time.Duration, bool) {
	if p, ok := payload.(types.SetRate); ok {
		return p.Period, true
	}
	var v struct {
		PeriodMS int `json:"period_ms"`
	}
	if payload == nil || util.DecodeJSON(payload, &v) != nil {
		return 0, false
	}
	return time.Duration(v.PeriodMS) * time.Millisecond, true
}

// ---- measurement helpers ----

func (s *Service) submitMeasure(devID string, prio bool) bool {
	ent, ok := s.devices[devID]
	if !ok {
		return false
	}
	w := s.workers[ent.busID]
	if w == nil {
		return false
	}
	return w.Submit(halcore.MeasureReq{ID: devID, Adaptor: ent.adaptor, Prio: prio})
}

func (s *Service) bumpDevNext(devID string, from time.Time) {
	period, ok := s.devPeriod[devID]
	if !ok {
		return
	}
	s.devNextDue[devID] = from.Add(util.ClampDuration(period, minPeriod, maxPeriod))
}

func (s *Service) earliestDevDue() time.Time {
	var min time.Time
	for _, t := range s.devNextDue {
		if !t.IsZero() && (min.IsZero() || t.Before(min)) {
			min = t
		}
	}
	return min
}

// ---- results & events ----

func (s *Service) handleResult(r halcore.Result) {
	ent, ok := s.devices[r.ID]
	if !ok {
		return
	}
	now := time.Now()

	if r.Err != nil {
		for kind, id := range ent.caps {
			s.pubRet(kind, id, consts.TokState, types.CapabilityState{
				Link:  types.LinkDegraded,
				TS:    now,
				Error: errText(r.Err),
			})
		}
		return
	}
	for _, rd := range r.Sample {
		id, ok := ent.caps[rd.Kind]
		if !ok {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(capTopicInt(rd.Kind, id, consts.TokValue), rd.Payload, false))
		s.pubRet(rd.Kind, id, consts.TokState, types.CapabilityState{Link: types.LinkUp, TS: now})
	}
}

// handleCompletion brings the pending collect forward once the transfer
// has finished.
func (s *Service) handleCompletion(ev spiirq.CompletionEvent) {
	ent, ok := s.devices[ev.DevID]
	if !ok {
		return
	}
	if w := s.workers[ent.busID]; w != nil {
		w.Nudge(ev.DevID)
	}
}

// ---- bus helpers & utils ----

func (s *Service) publishState(level, status string, err error) {
	pl := types.HALState{Level: level, Status: status, TS: time.Now()}
	if err != nil {
		pl.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{consts.TokHAL, consts.TokState}, pl, true))
}

func (s *Service) replyErr(req *bus.Message, err error) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: errText(err)}, false)
}

// errText prefers the stable short code; unknown errors keep their text.
func errText(err error) string {
	if c := errcode.Of(err); c != errcode.Error {
		return string(c)
	}
	return err.Error()
}

func capTopicInt(kind string, id int, suffix string) bus.Topic {
	return bus.Topic{consts.TokHAL, consts.TokCapability, kind, id, suffix}
}

func (s *Service) pubRet(kind string, id int, suffix string, p any) {
	s.conn.Publish(s.conn.NewMessage(capTopicInt(kind, id, suffix), p, true))
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
