package types

// ------------------------
// Temperature
// ------------------------

type TemperatureInfo struct {
	Sensor string `json:"sensor"` // "max6675"
	Bus    string `json:"bus"`    // "spi0", ...
	CSPin  int    `json:"cs_pin"` // chip-select GPIO
	Mode   string `json:"mode"`   // "blocking" | "irq"
	StepC  string `json:"step_c"` // resolution, "0.25"
}

type TemperatureValue struct {
	// Tenths of °C (e.g. 231 => 23.1°C), truncated.
	DeciC int16 `json:"deci_c"`
	// Hundredths of °C; exact for 0.25 °C steps.
	CentiC int32 `json:"centi_c"`
	// Raw device word.
	Raw uint16 `json:"raw"`
}
