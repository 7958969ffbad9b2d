package handlers

import (
	"html/template"
	"log/slog"
	"math"
	"net/http"

	"github.com/mminspector/inspector/internal/export"
	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/orchestrator"
	"github.com/mminspector/inspector/internal/render"
)

const recentMediaLimit = 20

type indexPage struct {
	page
	Media     []models.MediaRecord
	ListError string
	Busy      bool
	Progress  int
}

type mediaPage struct {
	page
	MediaID       string
	State         string
	Stage         string
	Progress      int
	Error         string
	AnalysisError string
	NoResults     string
	Record        *models.MediaRecord
	Rows          []render.Row
	Cards         []render.Card
	Element       string
	AssetURL      string
	Overlay       template.HTML
	Formats       []export.Format
	Messages      []models.ChatMessage
	Pending       bool
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := indexPage{
		page:     page{Title: "Upload"},
		Busy:     h.uploads.Busy(),
		Progress: h.uploads.Progress(),
	}
	media, err := h.backend.ListMedia(r.Context(), recentMediaLimit, 0)
	if err != nil {
		slog.Warn("Failed to list media", "err", err)
		data.ListError = err.Error()
	}
	data.Media = media

	h.render(w, "index", data)
}

func (h *Handler) HandleMediaPage(w http.ResponseWriter, r *http.Request) {
	mediaID := r.PathValue("id")
	session := h.selectMedia(r.Context(), mediaID)
	snap := h.watcher.Snapshot()

	data := mediaPage{
		page:     page{Title: mediaID},
		MediaID:  mediaID,
		State:    snap.State.String(),
		Stage:    snap.Stage,
		Progress: snap.Progress,
		Error:    snap.ErrorMessage(),
		Record:   snap.Record,
		AssetURL: "/media/" + mediaID + "/asset",
		Formats:  export.Formats,
		Messages: session.Messages(),
		Pending:  session.Pending(),
	}
	data.NoResults = render.NoResults
	if snap.State == orchestrator.AwaitingAnalysis || session.Pending() {
		data.Refresh = int(math.Ceil(h.interval.Seconds()))
	}

	if rec := snap.Record; rec != nil {
		data.Title = rec.Filename
		data.Rows = render.MediaRows(rec)
		data.Cards = render.Cards(rec.Analysis)
		if rec.Analysis.Failed() {
			data.AnalysisError = rec.Analysis.Error
		}
		data.Element = render.AssetElement(rec.MediaType)
		if rec.Analysis != nil && data.Element == "img" {
			if overlay, ok := render.BuildOverlay(rec.Analysis.ObjectDetection, rec, true); ok {
				svg, err := render.SVG(overlay)
				if err != nil {
					slog.Error("Unable to render overlay", "media_id", mediaID, "err", err)
				}
				data.Overlay = svg
			}
		}
	}

	h.render(w, "media", data)
}

// HandleStatus reports the watch state of the current media as JSON.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	mediaID := r.PathValue("id")
	snap := h.watcher.Snapshot()
	if snap.MediaID != mediaID {
		h.writeError(w, "Media is not being watched", http.StatusNotFound)
		return
	}

	h.writeJSON(w, struct {
		orchestrator.Snapshot
		Error string `json:"error,omitempty"`
	}{snap, snap.ErrorMessage()})
}

func (h *Handler) HandleAsset(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.backend.DownloadURL(r.PathValue("id")), http.StatusFound)
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, h.backend.ExportURL(r.PathValue("id"), string(format)), http.StatusFound)
}
