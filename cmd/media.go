package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mminspector/inspector/internal/archive"
	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/inspector"
	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/orchestrator"
	"github.com/mminspector/inspector/internal/render"
	"github.com/mminspector/inspector/internal/upload"
	"github.com/spf13/cobra"
)

const cardWidth = 80

func newUploadCmd(a *app) *cobra.Command {
	var noWatch bool
	var output string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file and follow its analysis",
		Long: `Uploads one image, audio, video or text file to the analysis backend.

Unless --no-watch is given, the command then polls the backend until the
analysis completes and prints the results.`,
		Example: `  # Upload a photo and wait for the analysis
  inspector upload ./dog.png

  # Upload without waiting
  inspector upload ./talk.mp3 --no-watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			ctx := cmd.Context()
			control := upload.NewControl(a.client, a.bus)

			done := make(chan struct{})
			go reportProgress(cmd.ErrOrStderr(), control, done)
			result, err := control.SubmitPath(ctx, args[0])
			close(done)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "\rUploaded %s as %s (%s)\n", result.Filename, result.MediaID, result.MediaType)
			if noWatch {
				return writeOutput(cmd.OutOrStdout(), output, result, func() string { return result.MediaID })
			}
			return watchMedia(ctx, a, cmd, result.MediaID, output)
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Print the media id and exit without waiting for analysis")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")

	return cmd
}

func reportProgress(w io.Writer, control *upload.Control, done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if p := control.Progress(); control.Busy() && p != last {
				fmt.Fprintf(w, "\rUploading... %d%%", p)
				last = p
			}
		}
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Poll a media item until its analysis completes",
		Example: `  inspector watch 3f2b9c1e-2d4a-4f7e-9a51-0c8e5d7b6a10`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return watchMedia(cmd.Context(), a, cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")

	return cmd
}

// watchMedia follows mediaID until it settles or stalls, then prints it.
func watchMedia(ctx context.Context, a *app, cmd *cobra.Command, mediaID, output string) error {
	updates, cancel := a.bus.Subscribe(32)
	defer cancel()

	watcher := orchestrator.New(a.client, a.pollOptions())
	watcher.Watch(ctx, mediaID)
	defer watcher.Stop()

	stderr := cmd.ErrOrStderr()
	go func() {
		for e := range updates {
			switch e := e.(type) {
			case events.AnalysisProgress:
				fmt.Fprintf(stderr, "\rAnalyzing... %s %d%%", e.Stage, e.Progress)
			case events.MediaUpdated:
				if e.State == orchestrator.AwaitingAnalysis.String() {
					fmt.Fprint(stderr, "\rAnalyzing media...")
				}
			}
		}
	}()

	snap, err := watcher.Wait(ctx)
	fmt.Fprintln(stderr)
	if err != nil {
		return err
	}
	if snap.State == orchestrator.Stalled {
		if inspector.IsNotFound(snap.Err) {
			return mediaNotFound(a, mediaID)
		}
		return fmt.Errorf("analysis of %s did not complete: %w", mediaID, snap.Err)
	}

	return printMedia(cmd.OutOrStdout(), a, snap.Record, output)
}

func mediaNotFound(a *app, mediaID string) error {
	return fmt.Errorf("no media with id %s on %s (see \"inspector list\")", mediaID, a.cfg.API.URL)
}

func printMedia(w io.Writer, a *app, record *models.MediaRecord, output string) error {
	return writeOutput(w, output, record, func() string {
		var b strings.Builder
		b.WriteString(render.TerminalMedia(record, a.client.DownloadURL(record.ID)))
		b.WriteString("\n\n")
		b.WriteString(render.TerminalCards(render.Cards(record.Analysis), cardWidth, !record.Status.Terminal()))
		return b.String()
	})
}

func newShowCmd(a *app) *cobra.Command {
	var output string
	var all bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a media item and its analysis",
		Example: `  # Show the latest analysis
  inspector show 3f2b9c1e

  # Show every stored analysis stage as YAML
  inspector show 3f2b9c1e --all --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			ctx := cmd.Context()

			if all {
				analyses, err := a.client.GetAllAnalyses(ctx, args[0])
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, analyses, func() string {
					var b strings.Builder
					for _, record := range analyses {
						fmt.Fprintf(&b, "Stage %s (%s)\n", record.Stage, record.CreatedAt)
						b.WriteString(render.TerminalCards(render.Cards(record.Payload), cardWidth, false))
						b.WriteString("\n\n")
					}
					return strings.TrimRight(b.String(), "\n")
				})
			}

			record, err := a.client.GetMedia(ctx, args[0])
			if inspector.IsNotFound(err) {
				return mediaNotFound(a, args[0])
			}
			if err != nil {
				return err
			}
			return printMedia(cmd.OutOrStdout(), a, record, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&all, "all", false, "Show every stored analysis stage")

	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var limit, offset int
	var output, parquetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded media",
		Long: `Lists uploaded media, newest first.

With --parquet the listing is also merged into a .parquet or .jsonl archive:
media already in the archive are updated in place and new ones are added, so
repeated runs with --offset build up a full index. --overwrite replaces the
archive instead.`,
		Example: `  # Newest 20 uploads
  inspector list

  # Save the listing for later analysis
  inspector list --limit 500 --parquet media.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			media, err := a.client.ListMedia(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			if parquetPath != "" {
				total := len(media)
				if overwrite {
					err = archive.Write(parquetPath, media)
				} else {
					total, err = archive.Append(parquetPath, media)
				}
				if err != nil {
					return err
				}
				slog.Info("Saved media listing", "path", parquetPath, "listed", len(media), "rows", total)
			}

			return writeOutput(cmd.OutOrStdout(), output, media, func() string {
				return render.TerminalMediaTable(media)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of media to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of media to skip")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	cmd.Flags().StringVar(&parquetPath, "parquet", "", "Also save the listing to a .parquet or .jsonl archive")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the archive instead of merging into it")

	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the original media file",
		Example: `  # Save under the original filename
  inspector download 3f2b9c1e

  # Write to stdout
  inspector download 3f2b9c1e --output - > dog.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mediaID := args[0]

			if outputPath == "-" {
				_, err := a.client.CopyTo(ctx, a.client.DownloadURL(mediaID), cmd.OutOrStdout())
				return err
			}
			if outputPath == "" {
				record, err := a.client.GetMedia(ctx, mediaID)
				if err != nil {
					return err
				}
				outputPath = filepath.Base(record.Filename)
			}

			return saveURL(ctx, a, a.client.DownloadURL(mediaID), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: original filename, - for stdout)")

	return cmd
}

func saveURL(ctx context.Context, a *app, rawURL, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := a.client.CopyTo(ctx, rawURL, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	slog.Info("Saved file", "path", path, "bytes", n)
	return nil
}

func newOverlayCmd(a *app) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "overlay <id>",
		Short: "Write the detected objects of an image as an SVG overlay",
		Example: `  inspector overlay 3f2b9c1e --output boxes.svg`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := a.client.GetMedia(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var od *models.ObjectDetection
			if record.Analysis != nil {
				od = record.Analysis.ObjectDetection
			}
			overlay, ok := render.BuildOverlay(od, record, true)
			if !ok {
				return errors.New("no detected objects to draw")
			}
			svg, err := render.SVG(overlay)
			if err != nil {
				return err
			}

			if outputPath == "" || outputPath == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), string(svg))
				return err
			}
			if err := os.WriteFile(outputPath, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputPath, err)
			}
			slog.Info("Saved overlay", "path", outputPath, "boxes", len(overlay.Boxes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output SVG file (default stdout)")

	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			health, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, health, func() string {
				return fmt.Sprintf("Backend:  %s\nStatus:   %s\nDatabase: %s\nStorage:  %t", a.cfg.API.URL, health.Status, health.Database, health.Storage)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")

	return cmd
}
