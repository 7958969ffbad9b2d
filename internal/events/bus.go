package events

import (
	"log/slog"
	"sync"

	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/observability"
)

type Topic string

const (
	TopicMediaUploaded     Topic = "media.uploaded"
	TopicMediaUpdated      Topic = "media.updated"
	TopicAnalysisProgress  Topic = "analysis.progress"
	TopicTranscriptChanged Topic = "chat.transcript"
)

// Event is anything published on the bus
type Event interface {
	Topic() Topic
}

// MediaUploaded is published once the backend accepted an upload
type MediaUploaded struct {
	Result models.UploadResult `json:"result"`
}

func (MediaUploaded) Topic() Topic { return TopicMediaUploaded }

// MediaUpdated is published on every orchestrator state change
type MediaUpdated struct {
	MediaID string        `json:"media_id"`
	State   string        `json:"state"`
	Status  models.Status `json:"status,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (MediaUpdated) Topic() Topic { return TopicMediaUpdated }

type AnalysisProgress struct {
	MediaID  string `json:"media_id"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

func (AnalysisProgress) Topic() Topic { return TopicAnalysisProgress }

type TranscriptChanged struct {
	MediaID  string `json:"media_id"`
	Messages int    `json:"messages"`
	Pending  bool   `json:"pending"`
}

func (TranscriptChanged) Topic() Topic { return TopicTranscriptChanged }

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	next   uint64
	closed bool
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]chan Event),
	}
}

// Subscribe returns a channel of future events and a function that removes
// the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers e to every subscriber. A nil bus discards events.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			observability.EventsDropped.Inc()
			slog.Debug("Dropping event for slow subscriber", "topic", e.Topic())
		}
	}
}

// Close closes every subscriber channel; later subscriptions get a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
