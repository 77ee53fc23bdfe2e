package config

import (
	"context"
	"encoding/json"
	"errors"

	"max6675-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

var (
	ErrNoDevice  = errors.New("config: missing device ID in context")
	ErrNoConfig  = errors.New("config: no embedded config for device")
	ErrNotObject = errors.New("config: embedded config is not a JSON object")
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Publish reads the device config and publishes each top-level key as a
// retained message on config/<key>. Values stay raw JSON; consumers decode
// them into their own types.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return ErrNoDevice
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return ErrNoConfig
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return ErrNotObject
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, k}, []byte(v), true))
	}
	return nil
}

// Start launches the config publisher in a goroutine; errors go to errs
// when non-nil.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection, errs chan<- error) {
	go func() {
		if err := s.Publish(ctx, conn); err != nil && errs != nil {
			errs <- err
		}
	}()
}
