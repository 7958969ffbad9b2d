package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mminspector/inspector/internal/chat"
	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/render"
	"github.com/mminspector/inspector/internal/tui"
	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ask <id> <question>",
		Short: "Ask a question about a media item",
		Example: `  inspector ask 3f2b9c1e "What breed is the dog?"`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			session := chat.NewSession(a.client, args[0], a.bus)
			reply, err := session.Send(cmd.Context(), strings.Join(args[1:], " "))
			if errors.Is(err, chat.ErrBlankQuestion) {
				return err
			}

			if writeErr := writeOutput(cmd.OutOrStdout(), output, reply, func() string {
				return reply.Message
			}); writeErr != nil {
				return writeErr
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Print the chat transcript of a media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			session := chat.NewSession(a.client, args[0], a.bus)
			if err := session.Load(cmd.Context()); err != nil {
				return err
			}
			messages := session.Messages()
			if messages == nil {
				messages = []models.ChatMessage{}
			}

			return writeOutput(cmd.OutOrStdout(), output, messages, func() string {
				return render.TerminalTranscript(messages, cardWidth)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")

	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <id>",
		Short: "Chat interactively about a media item",
		Long: `Opens a full screen chat about one media item.

Type a question and press enter to send it. The previous transcript is
loaded on start. Press esc or ctrl+c to leave.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mediaID := args[0]

			record, err := a.client.GetMedia(ctx, mediaID)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s (%s)", record.Filename, record.MediaType)

			session := chat.NewSession(a.client, mediaID, a.bus)
			return tui.Run(ctx, session, title, a.bus)
		},
	}
}
