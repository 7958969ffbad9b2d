package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mminspector/inspector/internal/chat"
	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/inspector"
	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/observability"
	"github.com/mminspector/inspector/internal/orchestrator"
	"github.com/mminspector/inspector/internal/render"
	"github.com/mminspector/inspector/internal/upload"
)

//go:embed web
var webFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"size": render.FormatSize,
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}).ParseFS(webFS, "web/templates/*.html"))

// Backend is the slice of the API client the web UI uses
type Backend interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64, onProgress inspector.ProgressFunc) (*models.UploadResult, error)
	GetMedia(ctx context.Context, mediaID string) (*models.MediaRecord, error)
	ListMedia(ctx context.Context, limit, offset int) ([]models.MediaRecord, error)
	AskQuestion(ctx context.Context, mediaID, question string) (*models.AskResponse, error)
	GetChatHistory(ctx context.Context, mediaID string) ([]models.ChatMessage, error)
	DownloadURL(mediaID string) string
	ExportURL(mediaID, format string) string
}

type Options struct {
	Poll orchestrator.Options
	// HTTPClient fetches remote files for URL uploads
	HTTPClient *http.Client
}

// Handler serves a single-user UI: one watched media item and one chat
// session at a time.
type Handler struct {
	ctx        context.Context
	backend    Backend
	bus        *events.Bus
	uploads    *upload.Control
	watcher    *orchestrator.Orchestrator
	interval   time.Duration
	httpClient *http.Client

	mu      sync.Mutex
	session *chat.Session
}

// New builds a handler. ctx bounds the background watch loop.
func New(ctx context.Context, backend Backend, bus *events.Bus, opts Options) *Handler {
	poll := opts.Poll
	poll.Bus = bus
	interval := poll.Interval
	if interval <= 0 {
		interval = orchestrator.DefaultInterval
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Handler{
		ctx:        ctx,
		backend:    backend,
		bus:        bus,
		uploads:    upload.NewControl(backend, bus),
		watcher:    orchestrator.New(backend, poll),
		interval:   interval,
		httpClient: httpClient,
	}
}

// Close stops the watch loop.
func (h *Handler) Close() {
	h.watcher.Stop()
}

// selectMedia makes mediaID the current media. Switching media restarts the
// watch and starts a fresh transcript.
func (h *Handler) selectMedia(ctx context.Context, mediaID string) *chat.Session {
	h.mu.Lock()
	if h.session != nil && h.session.MediaID() == mediaID {
		session := h.session
		h.mu.Unlock()
		return session
	}
	session := chat.NewSession(h.backend, mediaID, h.bus)
	h.session = session
	h.watcher.Watch(h.ctx, mediaID)
	h.mu.Unlock()

	if err := session.Load(ctx); err != nil {
		slog.Warn("Continuing with empty transcript", "media_id", mediaID, "err", err)
	}
	return session
}

func (h *Handler) currentSession(mediaID string) (*chat.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil || h.session.MediaID() != mediaID {
		return nil, false
	}
	return h.session, true
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.writeError(w, "Unable to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	observability.PageRenders.WithLabelValues(name).Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Unable to write page", "page", name, "err", err)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// page carries the fields shared by every template
type page struct {
	Title   string
	Refresh int
	Flash   string
}
