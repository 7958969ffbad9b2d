// Package render turns media records and analyses into display-ready values
// shared by the web UI and the terminal.
package render

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mminspector/inspector/internal/models"
)

// MaxFrameSamples caps how many frame samples a frames card lists
const MaxFrameSamples = 5

type Kind string

const (
	KindCaption       Kind = "caption"
	KindColors        Kind = "colors"
	KindTranscript    Kind = "transcript"
	KindSentiment     Kind = "sentiment"
	KindLanguage      Kind = "language"
	KindVisualSummary Kind = "visual_summary"
	KindFrames        Kind = "frames"
	KindWordCount     Kind = "word_count"
	KindObjects       Kind = "objects"
	KindError         Kind = "error"
)

type Row struct {
	Label string
	Value string
}

// Card is one rendered analysis field
type Card struct {
	Kind      Kind
	Icon      string
	Title     string
	Text      string
	Swatches  []string
	Badge     string
	Detail    string
	Rows      []Row
	FullWidth bool
}

// rules run in display order; each reports false when its field is absent
var rules = []func(*models.Analysis) (Card, bool){
	errorCard,
	captionCard,
	colorsCard,
	transcriptCard,
	sentimentCard,
	languageCard,
	visualSummaryCard,
	framesCard,
	wordCountCard,
	objectsCard,
}

// Cards renders every present field of a. A nil analysis has no cards.
func Cards(a *models.Analysis) []Card {
	if a == nil {
		return nil
	}
	var cards []Card
	for _, rule := range rules {
		if card, ok := rule(a); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

func errorCard(a *models.Analysis) (Card, bool) {
	if a.Error == "" {
		return Card{}, false
	}
	return Card{Kind: KindError, Icon: "⚠️", Title: "Analysis Failed", Detail: a.Error, FullWidth: true}, true
}

func captionCard(a *models.Analysis) (Card, bool) {
	if a.Caption == "" {
		return Card{}, false
	}
	return Card{Kind: KindCaption, Icon: "🖼️", Title: "Caption", Text: a.Caption}, true
}

func colorsCard(a *models.Analysis) (Card, bool) {
	if len(a.Colors) == 0 {
		return Card{}, false
	}
	return Card{Kind: KindColors, Icon: "🎨", Title: "Dominant Colors", Swatches: a.Colors}, true
}

func transcriptCard(a *models.Analysis) (Card, bool) {
	if a.Transcript == "" {
		return Card{}, false
	}
	return Card{Kind: KindTranscript, Icon: "📝", Title: "Transcript", Text: a.Transcript, FullWidth: true}, true
}

func sentimentCard(a *models.Analysis) (Card, bool) {
	if a.Sentiment == nil {
		return Card{}, false
	}
	return Card{
		Kind:   KindSentiment,
		Icon:   "💭",
		Title:  "Sentiment",
		Badge:  a.Sentiment.Label,
		Detail: "Confidence: " + FormatConfidence(a.Sentiment.Score),
	}, true
}

func languageCard(a *models.Analysis) (Card, bool) {
	if a.Language == "" {
		return Card{}, false
	}
	return Card{Kind: KindLanguage, Icon: "🌐", Title: "Language", Text: a.Language}, true
}

func visualSummaryCard(a *models.Analysis) (Card, bool) {
	if a.VisualSummary == "" {
		return Card{}, false
	}
	return Card{Kind: KindVisualSummary, Icon: "🎬", Title: "Visual Summary", Text: a.VisualSummary, FullWidth: true}, true
}

func framesCard(a *models.Analysis) (Card, bool) {
	if a.Frames == nil || len(a.Frames.Samples) == 0 {
		return Card{}, false
	}
	samples := a.Frames.Samples
	if len(samples) > MaxFrameSamples {
		samples = samples[:MaxFrameSamples]
	}
	rows := make([]Row, 0, len(samples))
	for _, frame := range samples {
		rows = append(rows, Row{Label: FormatSeconds(frame.Timestamp), Value: frame.Caption})
	}
	return Card{
		Kind:      KindFrames,
		Icon:      "🎞️",
		Title:     fmt.Sprintf("Frame Analysis (%d of %d)", a.Frames.Analyzed, a.Frames.TotalExtracted),
		Rows:      rows,
		FullWidth: true,
	}, true
}

func wordCountCard(a *models.Analysis) (Card, bool) {
	if a.WordCount == 0 {
		return Card{}, false
	}
	return Card{Kind: KindWordCount, Icon: "📊", Title: "Word Count", Text: strconv.Itoa(a.WordCount)}, true
}

func objectsCard(a *models.Analysis) (Card, bool) {
	od := a.ObjectDetection
	if od == nil {
		return Card{}, false
	}
	if od.Error != "" && len(od.Detections) == 0 {
		return Card{Kind: KindObjects, Icon: "🔍", Title: "Detected Objects", Detail: od.Error}, true
	}
	if od.TotalObjects == 0 && len(od.Detections) == 0 {
		return Card{}, false
	}

	total := od.TotalObjects
	if total == 0 {
		total = len(od.Detections)
	}
	counts := od.ObjectCounts
	if len(counts) == 0 {
		counts = make(map[string]int)
		for _, d := range od.Detections {
			counts[d.Label]++
		}
	}

	return Card{
		Kind:  KindObjects,
		Icon:  "🔍",
		Title: "Detected Objects",
		Text:  fmt.Sprintf("%d objects detected", total),
		Rows:  countRows(counts),
	}, true
}

// countRows orders labels by count, then name
func countRows(counts map[string]int) []Row {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	rows := make([]Row, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, Row{Label: label, Value: strconv.Itoa(counts[label])})
	}
	return rows
}

// FormatConfidence renders a 0..1 score as a percentage with one decimal.
func FormatConfidence(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.1fs", seconds)
}
