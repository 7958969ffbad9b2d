package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/observability"
)

// FallbackAnswer replaces the assistant reply when a question fails.
const FallbackAnswer = "Sorry, I encountered an error processing your question."

var (
	ErrBlankQuestion = errors.New("question is blank")
	ErrSendInFlight  = errors.New("a question is already being answered")
)

type Asker interface {
	AskQuestion(ctx context.Context, mediaID, question string) (*models.AskResponse, error)
	GetChatHistory(ctx context.Context, mediaID string) ([]models.ChatMessage, error)
}

// Session holds the chat transcript for one media item. Messages are only
// ever appended, except by Load which replaces the transcript wholesale.
type Session struct {
	client  Asker
	bus     *events.Bus
	mediaID string
	now     func() time.Time

	mu       sync.Mutex
	messages []models.ChatMessage
	pending  bool
}

func NewSession(client Asker, mediaID string, bus *events.Bus) *Session {
	return &Session{
		client:  client,
		bus:     bus,
		mediaID: mediaID,
		now:     time.Now,
	}
}

func (s *Session) MediaID() string {
	return s.mediaID
}

// Load replaces the transcript with the backend's stored history. On failure
// the current transcript is kept.
func (s *Session) Load(ctx context.Context) error {
	history, err := s.client.GetChatHistory(ctx, s.mediaID)
	if err != nil {
		slog.Error("Failed to load chat history", "media_id", s.mediaID, "err", err)
		return fmt.Errorf("failed to load chat history: %w", err)
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.messages = append([]models.ChatMessage(nil), history...)
	s.mu.Unlock()

	s.changed()
	return nil
}

// Send asks question about the media. The user's message is appended right
// away; the answer, or FallbackAnswer if the request fails, follows it. The
// returned message is the one appended for the assistant.
func (s *Session) Send(ctx context.Context, question string) (models.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.ChatMessage{}, ErrBlankQuestion
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return models.ChatMessage{}, ErrSendInFlight
	}
	s.pending = true
	s.messages = append(s.messages, s.message(models.RoleUser, question, nil))
	s.mu.Unlock()
	s.changed()

	resp, err := s.client.AskQuestion(ctx, s.mediaID, question)

	var reply models.ChatMessage
	if err != nil {
		slog.Error("Ask failed", "media_id", s.mediaID, "err", err)
		observability.ChatQuestions.WithLabelValues("error").Inc()
		reply = s.message(models.RoleAssistant, FallbackAnswer, nil)
		err = fmt.Errorf("failed to ask question: %w", err)
	} else {
		observability.ChatQuestions.WithLabelValues("ok").Inc()
		reply = s.message(models.RoleAssistant, resp.Answer, resp.Sources)
	}

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.pending = false
	s.mu.Unlock()
	s.changed()

	return reply, err
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) message(role models.Role, text string, sources []string) models.ChatMessage {
	return models.ChatMessage{
		ID:        models.RecordID(uuid.NewString()),
		Role:      role,
		Message:   text,
		CreatedAt: models.NewTimestamp(s.now()),
		Sources:   sources,
	}
}

func (s *Session) changed() {
	s.mu.Lock()
	e := events.TranscriptChanged{
		MediaID:  s.mediaID,
		Messages: len(s.messages),
		Pending:  s.pending,
	}
	s.mu.Unlock()
	s.bus.Publish(e)
}
