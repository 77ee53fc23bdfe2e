package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON; each top-level key is published on config/<key>
// -----------------------------------------------------------------------------

// One MAX6675 on spi0 (SCK GP18, SO GP16) with CS on GP17, interrupt mode.
const cfgPico = `{
  "hal": {
    "devices": [
      {
        "id": "tc0",
        "type": "max6675",
        "params": { "cs_pin": 17, "mode": "irq", "sample_ms": 1000 },
        "bus_ref": { "type": "spi", "id": "spi0" }
      }
    ]
  },
  "heartbeat": {
    "interval": 5
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
