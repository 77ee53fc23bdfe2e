// services/hal/internal/consts/consts.go
package consts

// Top-level topics
const (
	TokConfig     = "config"
	TokHAL        = "hal"
	TokCapability = "capability"
	TokInfo       = "info"
	TokState      = "state"
	TokValue      = "value"
	TokControl    = "control"
	TokEvent      = "event"
)

// Control verbs
const (
	CtrlReadNow = "read_now"
	CtrlSetRate = "set_rate"
	CtrlSample  = "sample"
)

// Sample period limits for set_rate and sample_ms.
const (
	MinSamplePeriodMs = 200
	MaxSamplePeriodMs = 3_600_000
)
