package integration

import (
	"context"
	"strconv"
	"strings"
	"time"

	"max6675-go/bus"
)

func recvOrTimeout(ch <-chan *bus.Message, d time.Duration) (*bus.Message, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m := <-ch:
		return m, nil
	case <-timer.C:
		return nil, context.DeadlineExceeded
	}
}

func topicStr(t bus.Topic) string {
	parts := make([]string, len(t))
	for i, tok := range t {
		switch v := tok.(type) {
		case string:
			parts[i] = v
		case int:
			parts[i] = strconv.Itoa(v)
		default:
			parts[i] = "<unk>"
		}
	}
	return strings.Join(parts, "/")
}
