package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mminspector/inspector/internal/config"
	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/inspector"
	"github.com/mminspector/inspector/internal/orchestrator"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand, filled in before they run
type app struct {
	cfg    *config.Config
	client *inspector.Client
	bus    *events.Bus
}

func (a *app) pollOptions() orchestrator.Options {
	opts := orchestrator.Options{
		Interval:    a.cfg.Poll.Interval,
		MaxFailures: a.cfg.Poll.MaxFailures,
		MaxDuration: a.cfg.Poll.MaxDuration,
		Bus:         a.bus,
	}
	if a.cfg.API.UsePush {
		opts.Stream = a.client.StreamStatus
	}
	return opts
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	var configPath, apiURL, logLevel string

	cmd := &cobra.Command{
		Use:   "inspector",
		Short: "Upload media for AI analysis and explore the results",
		Long: `Inspector is a client for a multi-modal media analysis service.

Upload an image, audio or video file, follow its analysis until it completes,
browse captions, transcripts, sentiment and detected objects, ask questions
about the media and export reports. Use the CLI directly or start the local
web interface with "inspector serve".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.API.URL = strings.TrimRight(apiURL, "/")
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			a.cfg = cfg
			a.client = inspector.NewClient(cfg.API.URL, inspector.WithTimeout(cfg.API.Timeout))
			a.bus = events.NewBus()
			slog.Debug("Configuration loaded", "api_url", cfg.API.URL, "poll_interval", cfg.Poll.Interval)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Analysis backend URL (overrides INSPECTOR_API_URL)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	// Add subcommands
	cmd.AddCommand(newUploadCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newAskCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newChatCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newDownloadCmd(a))
	cmd.AddCommand(newOverlayCmd(a))
	cmd.AddCommand(newHealthCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case "", "text":
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05",
		})), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}
