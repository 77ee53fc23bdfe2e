package errcode

import (
	"errors"
	"fmt"
	"testing"

	"max6675-go/drivers/max6675"
)

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil should map to ok")
	}
	if Of(OpenCircuit) != OpenCircuit {
		t.Fatal("bare code should map to itself")
	}
	if got := Of(fmt.Errorf("tc0: %w", InvalidParams)); got != InvalidParams {
		t.Fatalf("wrapped code = %q", got)
	}
	if Of(errors.New("other")) != Error {
		t.Fatal("unknown errors should map to error")
	}
}

func TestMapDriverErr(t *testing.T) {
	cases := map[error]Code{
		nil:                 OK,
		max6675.ErrNotReady: NotReady,
		max6675.ErrBusy:     Busy,
		max6675.ErrNoAsync:  NoAsync,
		OpenCircuit:         OpenCircuit,
		errors.New("spi"):   Error,
	}
	for in, want := range cases {
		if got := MapDriverErr(in); got != want {
			t.Fatalf("MapDriverErr(%v) = %q, want %q", in, got, want)
		}
	}
}
