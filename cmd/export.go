package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mminspector/inspector/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var format, outputPath string
	var open bool

	formats := make([]string, 0, len(export.Formats))
	for _, f := range export.Formats {
		formats = append(formats, string(f))
	}

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export an analysis report",
		Long: `Downloads the analysis report of a media item from the backend.

By default the report is saved as media_<id>.<ext> in the current directory.
With --open the export URL is handed to the system browser instead.`,
		Example: `  # Save a PDF report
  inspector export 3f2b9c1e

  # Markdown to a chosen file
  inspector export 3f2b9c1e --format markdown --output report.md

  # Let the browser download it
  inspector export 3f2b9c1e --format json --open`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			trigger := export.NewTrigger(a.client, nil)
			mediaID := args[0]

			if open {
				url, err := trigger.Open(mediaID, f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}

			if outputPath == "" {
				outputPath = export.DefaultFilename(mediaID, f)
			}
			n, err := trigger.Save(cmd.Context(), mediaID, f, outputPath)
			if err != nil {
				return err
			}
			slog.Info("Saved export", "format", f.Label(), "path", outputPath, "bytes", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatPDF), "Export format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default media_<id>.<ext>)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the export URL in the browser instead of saving it")

	return cmd
}
