package max6675

// Word layout, MSB first:
//
//	15..3  temperature, 12 bits, 0.25 °C per LSB
//	2      thermocouple input open
//	1      device ID (always 0)
//	0      tristate
const (
	bitOpen   = 2
	tempShift = 3
)

// quarter maps the two fractional bits to their addend.
var quarter = [4]float32{0, 0.25, 0.50, 0.75}

// Sample is one raw 16-bit word as clocked out by the device.
type Sample uint16

// IntegerCelsius returns raw >> 5. This is the library's integer contract:
// it drops the two fractional bits together with the status bits and is not
// rounded.
func IntegerCelsius(raw uint16) uint16 { return raw >> 5 }

// FloatCelsius returns the temperature at 0.25 °C resolution.
func FloatCelsius(raw uint16) float32 {
	t := raw >> tempShift
	return float32(t>>2) + quarter[t&0x3]
}

// IsOpenCircuit reports the open thermocouple bit.
func IsOpenCircuit(raw uint16) bool { return (raw>>bitOpen)&1 == 1 }

func (s Sample) Celsius() uint16       { return IntegerCelsius(uint16(s)) }
func (s Sample) FloatCelsius() float32 { return FloatCelsius(uint16(s)) }
func (s Sample) OpenCircuit() bool     { return IsOpenCircuit(uint16(s)) }

// Magnitude returns the 12-bit temperature field in quarter degrees.
func (s Sample) Magnitude() uint16 { return uint16(s) >> tempShift }

// Fixed-point helpers, avoiding float on MCU builds.

// CentiCelsius returns hundredths of °C (exact).
func (s Sample) CentiCelsius() int32 { return int32(s.Magnitude()) * 25 }

// DeciCelsius returns tenths of °C, truncated.
func (s Sample) DeciCelsius() int32 { return s.CentiCelsius() / 10 }
