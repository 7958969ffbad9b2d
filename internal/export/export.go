package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/browser"
)

type Format string

const (
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

var Formats = []Format{FormatPDF, FormatJSON, FormatMarkdown}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatPDF, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use pdf, json or markdown)", s)
}

// Extension is the file extension used when saving an export
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// Label is the button text shown for a format
func (f Format) Label() string {
	switch f {
	case FormatPDF:
		return "PDF"
	case FormatJSON:
		return "JSON"
	default:
		return "Markdown"
	}
}

// URLBuilder produces the backend export URL
type URLBuilder interface {
	ExportURL(mediaID, format string) string
	CopyTo(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// Opener opens a URL in a new browsing context
type Opener interface {
	Open(url string) error
}

// BrowserOpener hands the URL to the system browser
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}

type Trigger struct {
	urls   URLBuilder
	opener Opener
}

func NewTrigger(urls URLBuilder, opener Opener) *Trigger {
	if opener == nil {
		opener = BrowserOpener{}
	}
	return &Trigger{urls: urls, opener: opener}
}

func (t *Trigger) URL(mediaID string, format Format) string {
	return t.urls.ExportURL(mediaID, string(format))
}

// Open hands the export URL to the opener. The download itself is not
// observed.
func (t *Trigger) Open(mediaID string, format Format) (string, error) {
	url := t.URL(mediaID, format)
	if err := t.opener.Open(url); err != nil {
		slog.Error("Export failed", "media_id", mediaID, "format", format, "err", err)
		return url, fmt.Errorf("failed to export as %s: %w", strings.ToUpper(string(format)), err)
	}
	slog.Info("Opened export", "media_id", mediaID, "format", format, "url", url)
	return url, nil
}

// DefaultFilename is used by Save when no path is given
func DefaultFilename(mediaID string, format Format) string {
	return "media_" + mediaID + format.Extension()
}

// Save downloads the export into path. A partially written file is removed.
func (t *Trigger) Save(ctx context.Context, mediaID string, format Format, path string) (int64, error) {
	if path == "" {
		path = DefaultFilename(mediaID, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := t.urls.CopyTo(ctx, t.URL(mediaID, format), f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to export as %s: %w", strings.ToUpper(string(format)), err)
	}

	slog.Info("Saved export", "media_id", mediaID, "format", format, "path", path, "bytes", n)
	return n, nil
}
