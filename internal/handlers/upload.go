package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/upload"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Check if this is a JSON request with a remote file URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		URL string `json:"url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.URL == "" {
		h.writeError(w, "url is required", http.StatusBadRequest)
		return
	}

	u, err := url.Parse(request.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		h.writeError(w, "url must be an http or https URL", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, request.URL, nil)
	if err != nil {
		h.writeError(w, "Failed to build download request: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.writeError(w, "Failed to download file: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.writeError(w, fmt.Sprintf("Failed to download file: HTTP %d", resp.StatusCode), http.StatusBadGateway)
		return
	}

	filename := path.Base(u.Path)
	if filename == "" || filename == "/" || filename == "." {
		filename = "download"
	}

	h.submit(w, r, upload.File{Name: filename, Size: resp.ContentLength, Reader: resp.Body})
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	h.submit(w, r, upload.File{Name: header.Filename, Size: header.Size, Reader: file})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, f upload.File) {
	result, err := h.uploads.Submit(r.Context(), f)
	switch {
	case errors.Is(err, upload.ErrBusy):
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, upload.ErrNoFile):
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.writeError(w, "Upload failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	slog.Info("Media uploaded", "media_id", result.MediaID, "filename", result.Filename)
	h.selectMedia(r.Context(), result.MediaID)

	if wantsJSON(r) {
		h.writeJSON(w, result)
		return
	}
	http.Redirect(w, r, mediaPath(result), http.StatusSeeOther)
}

func mediaPath(result *models.UploadResult) string {
	return "/media/" + url.PathEscape(result.MediaID)
}
