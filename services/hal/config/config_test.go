package config

import (
	"encoding/json"
	"testing"
)

func TestHALConfigFromJSON(t *testing.T) {
	const doc = `{"devices":[{"id":"tc0","type":"max6675",
		"params":{"cs_pin":17,"mode":"irq"},
		"bus_ref":{"type":"spi","id":"spi0"}}]}`

	var got HALConfig
	if err := json.Unmarshal([]byte(doc), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Devices) != 1 {
		t.Fatalf("devices = %+v", got.Devices)
	}
	d := got.Devices[0]
	if d.ID != "tc0" || d.Type != "max6675" || d.BusRef != (BusRef{Type: "spi", ID: "spi0"}) {
		t.Fatalf("device = %+v", d)
	}
	p, ok := d.Params.(map[string]any)
	if !ok || p["cs_pin"] != float64(17) || p["mode"] != "irq" {
		t.Fatalf("params = %#v", d.Params)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		cfg  HALConfig
		want error
	}{
		{HALConfig{}, nil},
		{HALConfig{Devices: []Device{{ID: "a"}, {ID: "b"}}}, nil},
		{HALConfig{Devices: []Device{{ID: ""}}}, ErrEmptyID},
		{HALConfig{Devices: []Device{{ID: "a"}, {ID: "a"}}}, ErrDuplicateID},
	}
	for i, tc := range cases {
		if err := tc.cfg.Validate(); err != tc.want {
			t.Errorf("case %d: err = %v, want %v", i, err, tc.want)
		}
	}
}
