package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentx/chatwidget/internal/models"
)

func newSessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions, newest first",
		Long: `List the stored sessions of the user, most recently updated first.

Examples:
  chatctl sessions
  chatctl sessions --app 0b14a19f-d5c6-4ae9-aa9f-c57a2b5fac59`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			var (
				sessions []*models.Session
				err      error
			)
			if a.appID != "" {
				sessions, err = a.store.ListByApp(cmd.Context(), a.appID)
			} else {
				sessions, err = a.store.ListByUser(cmd.Context(), a.userID)
			}
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPDATED\tMESSAGES\tTITLE")
			for _, s := range sessions {
				if s.UserID != a.userID {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.UpdatedAt.Local().Format(time.DateTime), len(s.Messages), s.Title)
			}
			return w.Flush()
		}),
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the transcript of a session",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			if s.UserID != a.userID {
				return models.ErrSessionNotFound
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", s.Title)
			for _, m := range s.Messages {
				if m.Role == models.RoleSystem && !a.verbose {
					continue
				}
				fmt.Fprintf(out, "\n[%s] %s (%s)\n%s\n", m.Role, m.ID, m.Time.Local().Format(time.DateTime), m.Content)
			}
			return nil
		}),
	}
}
