package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
)

// EventForwarder republishes storefront events on the message queue under
// <prefix>.<type>.<client>.
type EventForwarder struct {
	mq     MessageQueue
	prefix string
	log    *zap.Logger
}

func NewEventForwarder(mq MessageQueue, prefix string, log *zap.Logger) *EventForwarder {
	if prefix == "" {
		prefix = "vitrina.events"
	}
	return &EventForwarder{mq: mq, prefix: prefix, log: log}
}

func (f *EventForwarder) Subject(ev domain.Event) string {
	client := ev.ClientID
	if client == "" {
		client = "anonymous"
	}
	return fmt.Sprintf("%s.%s.%s", f.prefix, ev.Type, client)
}

// Handle is meant to be subscribed to the event bus.
func (f *EventForwarder) Handle(ctx context.Context, ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.log.Error("Failed to encode event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	if err := f.mq.Publish(f.Subject(ev), data); err != nil {
		f.log.Warn("Failed to forward event",
			zap.String("subject", f.Subject(ev)),
			zap.Error(err),
		)
	}
}
