package handlers

import (
	"io/fs"
	"net/http"
	"strings"
)

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	filepath := strings.TrimPrefix(r.URL.Path, "/static/")

	// Prevent directory traversal attacks
	if filepath == "" || strings.Contains(filepath, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(filepath, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(filepath, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(filepath, ".svg"):
		w.Header().Set("Content-Type", "image/svg+xml")
	}

	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		h.writeError(w, "Static files unavailable", http.StatusInternalServerError)
		return
	}
	http.ServeFileFS(w, r, static, filepath)
}
