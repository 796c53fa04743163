package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/agentx/chatwidget/internal/attachments"
	"github.com/agentx/chatwidget/internal/services"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		images    []string
		sessionID string
		newChat   bool
	)

	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send a prompt and stream the reply",
		Long: `Send a prompt to the current session and stream the reply to stdout.

Without --session the newest session of the app is continued.
Press Ctrl-C to stop the reply.

Examples:
  chatctl send "Explain quicksort"
  chatctl send --new --app 0b14a19f-d5c6-4ae9-aa9f-c57a2b5fac59 "Review this loop"
  chatctl send --image diagram.png "What does this show?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 1 {
				text = args[0]
			}

			var urls []string
			for _, path := range images {
				url, err := attachments.FromFile(path)
				if err != nil {
					return fmt.Errorf("attach %s: %w", path, err)
				}
				urls = append(urls, url)
			}

			term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.verbose)
			ctrl, err := a.controller(cmd.Context(), term, services.AlwaysConfirm)
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			switch {
			case newChat:
				if _, err := ctrl.CreateNewSession(""); err != nil {
					return err
				}
			case sessionID != "":
				if err := ctrl.SelectSession(sessionID); err != nil {
					return err
				}
			}

			if err := ctrl.SendUserMessage(cmd.Context(), text, urls); err != nil {
				return err
			}
			return stream(cmd.Context(), ctrl, term)
		}),
	}

	cmd.Flags().StringSliceVarP(&images, "image", "i", nil, "image file to attach (repeatable)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to continue")
	cmd.Flags().BoolVarP(&newChat, "new", "n", false, "start a new session")
	return cmd
}

func newRegenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <session-id> <message-id>",
		Short: "Replace an assistant reply with a fresh one",
		Long: `Discard an assistant reply and everything after it, then generate a new
reply to the prompt before it.`,
		Args: cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.verbose)
			ctrl, err := a.sessionController(cmd.Context(), term, services.AlwaysConfirm, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			if err := ctrl.Regenerate(cmd.Context(), args[1]); err != nil {
				return err
			}
			return stream(cmd.Context(), ctrl, term)
		}),
	}
}

// stream waits for the running reply. An interrupt stops the reply
// instead of killing the process, so the prompt stays stored.
func stream(ctx context.Context, ctrl *services.Controller, term *terminal) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := ctrl.Wait(sigCtx)
	if err != nil && ctx.Err() == nil {
		// interrupted
		err = ctrl.CancelGeneration()
	}
	term.finish()
	if err != nil {
		return err
	}

	if snap := ctrl.Snapshot(); snap.Current != nil && term.verbose {
		fmt.Fprintf(term.errOut, "session %s\n", snap.Current.ID)
	}
	return nil
}
