package heartbeat

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"max6675-go/bus"
	"max6675-go/types"
	"max6675-go/x/conv"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicTempValues      = bus.Topic{"hal", "capability", string(types.KindTemperature), "+", "value"}
	topicTempStates      = bus.Topic{"hal", "capability", string(types.KindTemperature), "+", "state"}
)

const defaultInterval = time.Second

// Service prints a periodic status line with the latest thermocouple
// readings and faults.
type Service struct {
	Out io.Writer

	last  map[int]types.TemperatureValue
	fault map[int]string
}

type Config struct {
	Interval float64 `json:"interval"` // seconds
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	valSub := conn.Subscribe(topicTempValues)
	stSub := conn.Subscribe(topicTempStates)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(valSub)
	defer conn.Unsubscribe(stSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			s.println(s.line(t))
		case msg := <-cfgSub.Channel():
			if iv, ok := intervalOf(msg.Payload); ok {
				tick.Reset(iv)
				s.println("Info: heartbeat interval set to " + iv.String())
			}
		case msg := <-valSub.Channel():
			if id, ok := msg.Topic[3].(int); ok {
				if v, ok := msg.Payload.(types.TemperatureValue); ok {
					s.last[id] = v
					delete(s.fault, id)
				}
			}
		case msg := <-stSub.Channel():
			if id, ok := msg.Topic[3].(int); ok {
				if st, ok := msg.Payload.(types.CapabilityState); ok && st.Link != types.LinkUp {
					s.fault[id] = string(st.Link) + ":" + st.Error
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Out == nil {
		s.Out = io.Discard
	}
	s.last = map[int]types.TemperatureValue{}
	s.fault = map[int]string{}
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) line(t time.Time) string {
	out := "Info: " + t.Format("15:04:05") + " heartbeat"
	ids := make([]int, 0, len(s.last)+len(s.fault))
	for id := range s.last {
		ids = append(ids, id)
	}
	for id := range s.fault {
		if _, ok := s.last[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	var buf [20]byte
	for _, id := range ids {
		out += " tc" + string(conv.Itoa(buf[:], int64(id))) + "="
		if f, ok := s.fault[id]; ok {
			out += f
			continue
		}
		out += FormatCenti(s.last[id].CentiC) + "C"
	}
	return out
}

func (s *Service) println(line string) {
	_, _ = io.WriteString(s.Out, line+"\n")
}

// FormatCenti renders hundredths as a decimal, e.g. 2325 => "23.25".
func FormatCenti(c int32) string {
	var buf [24]byte
	return string(conv.Fixed(buf[:], int64(c), 2))
}

func intervalOf(p any) (time.Duration, bool) {
	var c Config
	switch v := p.(type) {
	case Config:
		c = v
	case []byte:
		if json.Unmarshal(v, &c) != nil {
			return 0, false
		}
	case map[string]any:
		f, ok := v["interval"].(float64)
		if !ok {
			return 0, false
		}
		c.Interval = f
	default:
		return 0, false
	}
	if c.Interval <= 0 {
		return 0, false
	}
	return time.Duration(c.Interval * float64(time.Second)), true
}
