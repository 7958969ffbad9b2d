package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "inspector"

// envelope is the JSON body published for each forwarded event
type envelope struct {
	Topic   Topic     `json:"topic"`
	SentAt  time.Time `json:"sent_at"`
	Payload Event     `json:"payload"`
}

// Forwarder republishes bus events on NATS subjects "<prefix>.<topic>"
type Forwarder struct {
	nc     *nats.Conn
	prefix string
}

func NewForwarder(natsURL string) (*Forwarder, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("inspector"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &Forwarder{nc: nc, prefix: DefaultSubjectPrefix}, nil
}

func Subject(prefix string, topic Topic) string {
	return prefix + "." + string(topic)
}

func Encode(e Event, sentAt time.Time) ([]byte, error) {
	data, err := json.Marshal(envelope{Topic: e.Topic(), SentAt: sentAt.UTC(), Payload: e})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Topic(), err)
	}
	return data, nil
}

// Run forwards events until ctx is done, then drains the connection.
func (f *Forwarder) Run(ctx context.Context, bus *Bus) {
	ch, cancel := bus.Subscribe(64)
	defer cancel()
	defer func() {
		if err := f.nc.Drain(); err != nil {
			slog.Warn("Failed to drain nats connection", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, err := Encode(e, time.Now())
			if err != nil {
				slog.Error("Unable to encode event", "err", err)
				continue
			}
			if err := f.nc.Publish(Subject(f.prefix, e.Topic()), data); err != nil {
				slog.Warn("Failed to publish event", "topic", e.Topic(), "err", err)
			}
		}
	}
}
