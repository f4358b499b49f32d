package cmds

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newInboxCmd() *cobra.Command {
	var unread bool
	var since string

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List items that need operator attention",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}

			p, err := a.console.Snapshot(cmd.Context(), a.cfg.Project, "")
			if err != nil {
				return err
			}

			entries := p.Inbox
			if since != "" {
				t, err := dateparse.ParseLocal(since)
				if err != nil {
					return errors.Wrapf(err, "parse --since %q", since)
				}
				entries = derive.FilterSince(entries, t.UnixMilli())
			}
			if unread {
				kept := make([]derive.InboxEntry, 0, len(entries))
				for _, e := range entries {
					if !e.Read {
						kept = append(kept, e)
					}
				}
				entries = kept
			}

			if a.json {
				return printJSON(cmd, map[string]any{"items": entries, "unread": p.Unread, "errors": p.Errors})
			}
			printErrors(cmd, p.Errors)
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "inbox is empty")
				return nil
			}
			for _, e := range entries {
				marker := styles.IconUnread
				if e.Read {
					marker = " "
				}
				when := "-"
				if e.Timestamp > 0 {
					when = time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04")
				}
				_, _ = fmt.Fprintf(out, "%s %s %-16s %s\n    %s\n    id=%s\n", marker, styles.InboxIcon(string(e.Type)), when, e.Title, e.Description, e.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "Only show unread items")
	cmd.Flags().StringVar(&since, "since", "", "Only show items newer than this date (e.g. \"2024-05-01\", \"yesterday 10:00\")")
	cmd.AddCommand(newInboxReadCmd())
	return cmd
}

func newInboxReadCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "read [id...]",
		Short: "Mark inbox items as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}

			ids := args
			if all {
				p, err := a.console.Snapshot(cmd.Context(), a.cfg.Project, "")
				if err != nil {
					return err
				}
				for _, e := range p.Inbox {
					if !e.Read {
						ids = append(ids, e.ID)
					}
				}
			}
			if len(ids) == 0 {
				return errors.New("no inbox ids given (pass ids or --all)")
			}
			n, err := a.console.MarkRead(a.cfg.Project, ids...)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "marked %d item(s) read\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Mark every unread item read")
	return cmd
}
