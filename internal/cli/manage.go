package cli

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

func newDeleteMessageCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-message <session-id> <message-id>",
		Short: "Delete a message from a session",
		Long: `Delete a message from a session. Deleting the first reply after a prompt
also deletes the rest of that turn, up to the next prompt.`,
		Args: cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.verbose)
			confirm := newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), yes)
			ctrl, err := a.sessionController(cmd.Context(), term, confirm, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			return ctrl.DeleteMessage(cmd.Context(), args[1])
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newDeleteSessionCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-session <session-id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.verbose)
			confirm := newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), yes)
			ctrl, err := a.controller(cmd.Context(), term, confirm)
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			return ctrl.DeleteSession(cmd.Context(), args[0])
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.verbose)
			ctrl, err := a.controller(cmd.Context(), term, nil)
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			return ctrl.RenameSession(cmd.Context(), args[0], args[1])
		}),
	}
}

func newCopyCmd(a *app) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "copy <session-id> <message-id>",
		Short: "Copy the raw text of a message to the clipboard",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			term := newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.verbose)
			ctrl, err := a.sessionController(cmd.Context(), term, nil, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			content, err := ctrl.CopyMessage(args[1])
			if err != nil {
				return err
			}

			if printOnly || clipboard.Unsupported {
				fmt.Fprintln(cmd.OutOrStdout(), content)
				return nil
			}
			if err := clipboard.WriteAll(content); err != nil {
				return fmt.Errorf("write clipboard: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard")
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&printOnly, "print", "p", false, "print instead of using the clipboard")
	return cmd
}
