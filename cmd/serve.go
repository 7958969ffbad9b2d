package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		Long: `Starts the Inspector web interface on the specified port.

The web interface lets you upload media, follow the analysis as it runs,
view detected objects drawn over images, chat about the media and download
reports. Prometheus metrics are served on /metrics.

When events.nats_url is configured, upload, status and chat events are
also published on NATS subjects under "inspector.".`,
		Example: `  # Start server on default port 8888
  inspector serve

  # Start server on custom port
  inspector serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if port == "" {
				port = a.cfg.Server.Port
			}

			if a.cfg.Events.NATSURL != "" {
				forwarder, err := events.NewForwarder(a.cfg.Events.NATSURL)
				if err != nil {
					return err
				}
				go forwarder.Run(ctx, a.bus)
				slog.Info("Forwarding events to NATS", "url", a.cfg.Events.NATSURL)
			}

			handler := handlers.New(ctx, a.client, a.bus, handlers.Options{Poll: a.pollOptions()})
			defer handler.Close()

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Inspector interface available", "addr", addr, "url", "http://localhost"+addr, "api_url", a.cfg.API.URL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from config, 8888)")

	return cmd
}
