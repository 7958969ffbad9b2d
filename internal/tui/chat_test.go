package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mminspector/inspector/internal/chat"
	"github.com/mminspector/inspector/internal/models"
)

type stubAsker struct {
	history []models.ChatMessage
	asked   []string
}

func (s *stubAsker) AskQuestion(ctx context.Context, mediaID, question string) (*models.AskResponse, error) {
	s.asked = append(s.asked, question)
	return &models.AskResponse{Answer: "It is brown"}, nil
}

func (s *stubAsker) GetChatHistory(ctx context.Context, mediaID string) ([]models.ChatMessage, error) {
	return s.history, nil
}

func typeText(m *ChatModel, text string) {
	for _, r := range text {
		if r == ' ' {
			m.Update(tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestEnterSendsQuestion(t *testing.T) {
	asker := &stubAsker{}
	session := chat.NewSession(asker, "abc", nil)
	m := NewChatModel(context.Background(), session, "dog.png", nil)

	typeText(m, "what color")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Expected a send command")
	}
	if len(m.input) != 0 {
		t.Errorf("Expected input cleared, got %q", string(m.input))
	}

	msg := cmd()
	if answered, ok := msg.(answeredMsg); !ok || answered.err != nil {
		t.Errorf("Unexpected message %#v", msg)
	}
	m.Update(msg)

	if len(asker.asked) != 1 || asker.asked[0] != "what color" {
		t.Errorf("Expected question to be asked, got %v", asker.asked)
	}
	view := m.View()
	if !strings.Contains(view, "what color") || !strings.Contains(view, "It is brown") {
		t.Errorf("Expected transcript in view, got:\n%s", view)
	}
}

func TestSecondEnterWaitsForAnswer(t *testing.T) {
	asker := &stubAsker{}
	m := NewChatModel(context.Background(), chat.NewSession(asker, "abc", nil), "dog.png", nil)

	typeText(m, "first")
	_, first := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if first == nil {
		t.Fatal("Expected a send command")
	}

	typeText(m, "second")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("Expected no second send while the first is in flight")
	}
	if got := string(m.input); got != "second" {
		t.Errorf("Expected input to be kept, got %q", got)
	}
	if !strings.Contains(m.View(), "Assistant is typing") {
		t.Error("Expected typing indicator while sending")
	}

	m.Update(first())
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Error("Expected send after the answer arrived")
	}
	if len(asker.asked) != 1 || asker.asked[0] != "first" {
		t.Errorf("Expected only the first question asked so far, got %v", asker.asked)
	}
}

func TestBlankEnterDoesNothing(t *testing.T) {
	asker := &stubAsker{}
	m := NewChatModel(context.Background(), chat.NewSession(asker, "abc", nil), "dog.png", nil)

	typeText(m, "   ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("Expected no command for blank input")
	}
	if len(asker.asked) != 0 {
		t.Errorf("Expected no request, got %v", asker.asked)
	}
}

func TestBackspace(t *testing.T) {
	m := NewChatModel(context.Background(), chat.NewSession(&stubAsker{}, "abc", nil), "dog.png", nil)
	typeText(m, "dogs")
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if string(m.input) != "dog" {
		t.Errorf("Expected dog, got %q", string(m.input))
	}
}

func TestViewShowsNewestMessages(t *testing.T) {
	var history []models.ChatMessage
	for i := 0; i < 40; i++ {
		history = append(history, models.ChatMessage{Role: models.RoleUser, Message: fmt.Sprintf("question %d", i)})
	}
	session := chat.NewSession(&stubAsker{history: history}, "abc", nil)
	m := NewChatModel(context.Background(), session, "dog.png", nil)
	m.Update(m.load()())
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	view := m.View()
	if !strings.Contains(view, "question 39") {
		t.Errorf("Expected newest message in view, got:\n%s", view)
	}
	if strings.Contains(view, "question 0") {
		t.Errorf("Expected oldest message scrolled away, got:\n%s", view)
	}
}

func TestTypingIndicator(t *testing.T) {
	tests := []struct {
		frame    int
		expected string
	}{
		{0, "Assistant is typing."},
		{1, "Assistant is typing.."},
		{2, "Assistant is typing..."},
		{3, "Assistant is typing."},
	}

	for _, tt := range tests {
		if got := TypingIndicator(tt.frame); got != tt.expected {
			t.Errorf("Frame %d: expected %q, got %q", tt.frame, tt.expected, got)
		}
	}
}

func TestTail(t *testing.T) {
	if got := Tail("a\nb\nc\nd", 2); got != "c\nd" {
		t.Errorf("Expected c\\nd, got %q", got)
	}
	if got := Tail("a\nb", 5); got != "a\nb" {
		t.Errorf("Expected unchanged input, got %q", got)
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewChatModel(context.Background(), chat.NewSession(&stubAsker{}, "abc", nil), "dog.png", nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected QuitMsg")
	}
}
