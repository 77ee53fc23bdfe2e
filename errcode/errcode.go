package errcode

import (
	"errors"

	"max6675-go/drivers/max6675"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"

	// Thermocouple
	OpenCircuit Code = "open_circuit"
	NotReady    Code = "not_ready"
	NoAsync     Code = "no_async"

	Error Code = "error" // generic fallback
)

// Of extracts a Code from an error, looking through wrapping, and defaults
// to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	switch err {
	case nil:
		return OK
	case max6675.ErrNotReady:
		return NotReady
	case max6675.ErrBusy:
		return Busy
	case max6675.ErrNoAsync:
		return NoAsync
	}
	return Of(err)
}
