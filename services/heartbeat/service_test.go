package heartbeat

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"max6675-go/bus"
	"max6675-go/types"
)

type syncBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuf) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuf) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestFormatCenti(t *testing.T) {
	for in, want := range map[int32]string{0: "0.00", 2325: "23.25", 3600: "36.00", 5: "0.05", -150: "-1.50"} {
		if got := FormatCenti(in); got != want {
			t.Errorf("FormatCenti(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestIntervalOf(t *testing.T) {
	if d, ok := intervalOf([]byte(`{"interval": 2}`)); !ok || d != 2*time.Second {
		t.Fatalf("json: %v %v", d, ok)
	}
	if d, ok := intervalOf(map[string]any{"interval": 0.5}); !ok || d != 500*time.Millisecond {
		t.Fatalf("map: %v %v", d, ok)
	}
	if _, ok := intervalOf(Config{}); ok {
		t.Fatal("zero interval accepted")
	}
}

func TestHeartbeatReportsReadings(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	out := &syncBuf{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &Service{Out: out}
	_ = s.Start(ctx, conn)

	conn.Publish(conn.NewMessage(topicConfigHeartbeat, Config{Interval: 0.05}, true))
	conn.Publish(conn.NewMessage(bus.Topic{"hal", "capability", "temperature", 1, "state"},
		types.CapabilityState{Link: types.LinkDegraded, Error: "open_circuit"}, true))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		// Values are not retained; repeat until the service has subscribed.
		conn.Publish(conn.NewMessage(bus.Topic{"hal", "capability", "temperature", 0, "value"},
			types.TemperatureValue{DeciC: 232, CentiC: 2325}, false))
		if strings.Contains(out.String(), "tc0=23.25C tc1=degraded:open_circuit") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("output:\n%s", out.String())
}
