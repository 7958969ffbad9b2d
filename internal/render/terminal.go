package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mminspector/inspector/internal/models"
)

const NoResults = "No analysis results"

var (
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	badgeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("63")).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)

	headerCellStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
)

// TerminalCards renders cards as bordered boxes, width being the outer width
// of a full-width card. With no cards it prints a placeholder that depends on
// whether analysis is still running.
func TerminalCards(cards []Card, width int, analyzing bool) string {
	if len(cards) == 0 {
		if analyzing {
			return mutedStyle.Render("Analyzing media...")
		}
		return mutedStyle.Render(NoResults)
	}
	if width < 20 {
		width = 20
	}

	blocks := make([]string, 0, len(cards))
	for _, card := range cards {
		blocks = append(blocks, terminalCard(card, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func terminalCard(card Card, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.TrimSpace(card.Icon + " " + card.Title)))

	if card.Text != "" {
		b.WriteString("\n" + card.Text)
	}
	if len(card.Swatches) > 0 {
		swatches := make([]string, 0, len(card.Swatches))
		for _, color := range card.Swatches {
			swatches = append(swatches, lipgloss.NewStyle().Background(lipgloss.Color(color)).Render("    ")+" "+labelStyle.Render(color))
		}
		b.WriteString("\n" + strings.Join(swatches, "  "))
	}
	if card.Badge != "" {
		b.WriteString("\n" + badgeStyle.Render(card.Badge))
	}
	if card.Detail != "" {
		b.WriteString("\n" + labelStyle.Render(card.Detail))
	}
	for _, row := range card.Rows {
		b.WriteString("\n" + labelStyle.Render(row.Label) + "  " + row.Value)
	}

	return cardStyle.Width(width - 2).Render(b.String())
}

// TerminalMedia renders the media header and metadata rows.
func TerminalMedia(m *models.MediaRecord, assetURL string) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Filename))
	for _, row := range MediaRows(m) {
		b.WriteString(fmt.Sprintf("\n%s %s", labelStyle.Render(row.Label+":"), row.Value))
	}
	if assetURL != "" {
		b.WriteString(fmt.Sprintf("\n%s %s", labelStyle.Render("Asset:"), assetURL))
	}
	return b.String()
}

// TerminalMediaTable renders a media listing as a table.
func TerminalMediaTable(media []models.MediaRecord) string {
	if len(media) == 0 {
		return mutedStyle.Render("No media found")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle).
		Headers("ID", "TYPE", "SIZE", "UPLOADED", "FILENAME").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
	for _, m := range media {
		t.Row(m.ID, string(m.MediaType), FormatSize(m.SizeBytes), m.UploadedAt, m.Filename)
	}
	return t.String()
}

// TerminalMessage renders one transcript entry.
func TerminalMessage(msg models.ChatMessage, width int) string {
	name := botStyle.Render("Assistant")
	if msg.Role == models.RoleUser {
		name = userStyle.Render("You")
	}

	body := lipgloss.NewStyle().Width(max(width-2, 10)).Render(msg.Message)
	out := name + "\n" + body
	if len(msg.Sources) > 0 {
		out += "\n" + sourceStyle.Render("Sources: "+strings.Join(msg.Sources, ", "))
	}
	return out
}

// TerminalTranscript renders the whole transcript, oldest first.
func TerminalTranscript(messages []models.ChatMessage, width int) string {
	if len(messages) == 0 {
		return mutedStyle.Render("No messages yet. Ask a question about this media.")
	}
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, TerminalMessage(msg, width))
	}
	return strings.Join(parts, "\n\n")
}
