package handlers

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes registers every web UI route on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("/upload", h.HandleUpload)
	mux.HandleFunc("GET /media/{id}", h.HandleMediaPage)
	mux.HandleFunc("GET /media/{id}/status", h.HandleStatus)
	mux.HandleFunc("POST /media/{id}/ask", h.HandleAsk)
	mux.HandleFunc("GET /media/{id}/asset", h.HandleAsset)
	mux.HandleFunc("GET /media/{id}/export/{format}", h.HandleExport)
	mux.HandleFunc("GET /static/", h.HandleStatic)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}
