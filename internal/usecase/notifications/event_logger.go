// Package notifications records notable bot events in the process log so
// they can be ingested later.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"guardBot/internal/app/events"
)

type Subscriber interface {
	Subscribe(topic string) (<-chan any, func())
}

// LoggedTopics are the topics worth an audit line. Plain chat traffic is
// left out.
var LoggedTopics = []string{
	events.TopicModeration,
	events.TopicCommand,
	events.TopicConnection,
	events.TopicAppError,
}

type EventLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{
		logger: logger.With("component", "event_log"),
		now:    time.Now,
	}
}

// Run logs every event on LoggedTopics until ctx is done or the bus closes.
func (l *EventLogger) Run(ctx context.Context, bus Subscriber) {
	var wg sync.WaitGroup
	for _, topic := range LoggedTopics {
		ch, unsubscribe := bus.Subscribe(topic)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					l.Log(topic, payload)
				}
			}
		}()
	}
	wg.Wait()
}

func (l *EventLogger) Log(topic string, payload any) {
	level := slog.LevelInfo
	if topic == events.TopicAppError {
		level = slog.LevelError
	}
	data, err := json.Marshal(payload)
	if err != nil {
		l.logger.Log(context.Background(), level, "event", "topic", topic, "payload", payload, "logged_at", l.now().UTC().Format(time.RFC3339Nano))
		return
	}
	l.logger.Log(context.Background(), level, "event", "topic", topic, "payload", json.RawMessage(data), "logged_at", l.now().UTC().Format(time.RFC3339Nano))
}
