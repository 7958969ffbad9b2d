// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mminspector/inspector/internal/chat"
	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/render"
)

const typingInterval = 300 * time.Millisecond

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("63")).Padding(0, 1)
	inputStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Padding(0, 1)
	typingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Italic(true)
)

type tickMsg time.Time

type loadedMsg struct{ err error }

type answeredMsg struct{ err error }

type transcriptMsg struct{}

// ChatModel is a bubbletea model around a chat session
type ChatModel struct {
	ctx     context.Context
	session *chat.Session
	title   string
	updates <-chan events.Event

	input   []rune
	width   int
	height  int
	frame   int
	status  string
	sending bool // set on enter, before the session marks itself pending
}

// NewChatModel builds the model. updates, when non-nil, should carry the
// session's TranscriptChanged events so the view redraws as soon as they happen.
func NewChatModel(ctx context.Context, session *chat.Session, title string, updates <-chan events.Event) *ChatModel {
	return &ChatModel{
		ctx:     ctx,
		session: session,
		title:   title,
		updates: updates,
		width:   80,
		height:  24,
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(m.load(), tick(), m.listen())
}

func tick() tea.Cmd {
	return tea.Tick(typingInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *ChatModel) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.session.Load(m.ctx)}
	}
}

func (m *ChatModel) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		for e := range m.updates {
			if changed, ok := e.(events.TranscriptChanged); ok && changed.MediaID == m.session.MediaID() {
				return transcriptMsg{}
			}
		}
		return nil
	}
}

func (m *ChatModel) send(question string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.Send(m.ctx, question)
		return answeredMsg{err: err}
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tickMsg:
		m.frame++
		return m, tick()
	case transcriptMsg:
		return m, m.listen()
	case loadedMsg:
		if msg.err != nil {
			m.status = "Could not load chat history"
		}
		return m, nil
	case answeredMsg:
		m.sending = false
		if msg.err != nil {
			m.status = "Last question failed"
		} else {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *ChatModel) handleKeyPress(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		question := strings.TrimSpace(string(m.input))
		if question == "" || m.sending || m.session.Pending() {
			return m, nil
		}
		m.sending = true
		m.input = nil
		m.status = ""
		return m, m.send(question)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, key.Runes...)
	}
	return m, nil
}

func (m *ChatModel) View() string {
	header := headerStyle.Width(m.width).Render(m.title)

	footer := statusStyle.Render("enter send • esc quit")
	if m.status != "" {
		footer = errorStyle.Render(m.status)
	}

	input := inputStyle.Width(max(m.width-2, 10)).Render("> " + string(m.input) + "█")

	typing := ""
	if m.sending || m.session.Pending() {
		typing = typingStyle.Render(TypingIndicator(m.frame))
	}

	// header, input box (3 lines), footer, typing line
	available := m.height - lipgloss.Height(header) - lipgloss.Height(input) - 2
	transcript := Tail(render.TerminalTranscript(m.session.Messages(), m.width-2), available)

	return lipgloss.JoinVertical(lipgloss.Left, header, transcript, typing, input, footer)
}

// TypingIndicator animates while an answer is pending.
func TypingIndicator(frame int) string {
	return "Assistant is typing" + strings.Repeat(".", frame%3+1)
}

// Tail keeps the last n lines so the newest message is always visible.
func Tail(s string, n int) string {
	if n < 1 {
		n = 1
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, session *chat.Session, title string, bus *events.Bus) error {
	var updates <-chan events.Event
	if bus != nil {
		ch, cancel := bus.Subscribe(16)
		defer cancel()
		updates = ch
	}

	p := tea.NewProgram(NewChatModel(ctx, session, title, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat program failed: %w", err)
	}
	return nil
}
