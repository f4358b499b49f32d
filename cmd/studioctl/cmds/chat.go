package cmds

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/action"
	"github.com/go-go-golems/studioctl/pkg/chat"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var confirm int

	cmd := &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Send one prompt to the studio assistant and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printed := 0
			final, err := a.session().Send(cmd.Context(), a.cfg.Project, strings.Join(args, " "), chat.SendOptions{
				OnUpdate: func(m protocol.ChatMessage) {
					if len(m.Content) > printed {
						_, _ = io.WriteString(out, m.Content[printed:])
						printed = len(m.Content)
					}
				},
			})
			if err != nil {
				return err
			}
			if printed < len(final.Content) {
				_, _ = io.WriteString(out, final.Content[printed:])
			}
			_, _ = fmt.Fprintln(out)

			visible := numbered(a.stores.Messages.Messages(a.cfg.Project))
			printActions(out, visible)
			if confirm > 0 {
				return confirmNth(cmd, a, visible, confirm)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&confirm, "confirm", 0, "Confirm the n-th proposed action right after the reply")
	cmd.AddCommand(newChatConfirmCmd())
	cmd.AddCommand(newChatHistoryCmd())
	return cmd
}

func newChatConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <n>",
		Short: "Confirm a pending proposed action from the chat history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return errors.Errorf("invalid action number %q", args[0])
			}
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}
			return confirmNth(cmd, a, numbered(a.stores.Messages.Messages(a.cfg.Project)), n)
		},
	}
}

func newChatHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the stored conversation and pending actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}

			msgs := a.stores.Messages.Messages(a.cfg.Project)
			if a.json {
				return printJSON(cmd, map[string]any{"messages": msgs, "visible_actions": action.VisibleActions(msgs)})
			}
			out := cmd.OutOrStdout()
			for _, m := range msgs {
				content := m.Content
				if m.Kind == protocol.MessageProgressCard {
					content = chat.ParseProgressCard(m.Content).Render("")
				}
				_, _ = fmt.Fprintf(out, "[%s] %s\n", m.Role, content)
			}
			printActions(out, numbered(msgs))
			return nil
		},
	}
}

type pendingAction struct {
	sourceMessageID string
	action          protocol.ProposedAction
}

// numbered lists confirmable actions in history order, numbered from 1.
func numbered(history []protocol.ChatMessage) []pendingAction {
	visible := action.VisibleActions(history)
	var out []pendingAction
	for _, m := range history {
		for _, a := range visible[m.ID] {
			out = append(out, pendingAction{sourceMessageID: m.ID, action: a})
		}
	}
	return out
}

func printActions(out io.Writer, actions []pendingAction) {
	if len(actions) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nproposed actions:")
	for i, pa := range actions {
		label := pa.action.Label
		if label == "" {
			label = string(pa.action.Type)
		}
		_, _ = fmt.Fprintf(out, "  [%d] %s\n", i+1, label)
		if pa.action.Confirm != "" {
			_, _ = fmt.Fprintf(out, "      %s\n", pa.action.Confirm)
		}
	}
}

func confirmNth(cmd *cobra.Command, a *app, actions []pendingAction, n int) error {
	if n > len(actions) {
		return errors.Errorf("no pending action #%d (%d pending)", n, len(actions))
	}
	pa := actions[n-1]
	g, err := a.guard()
	if err != nil {
		return err
	}
	outcome, err := g.Confirm(cmd.Context(), a.cfg.Project, pa.sourceMessageID, pa.action)
	if err != nil {
		if outcome.Failure != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), outcome.Failure.Content)
		}
		return err
	}
	out := cmd.OutOrStdout()
	if outcome.Confirmation != nil {
		_, _ = fmt.Fprintln(out, outcome.Confirmation.Content)
	}
	if outcome.ProgressCard != nil {
		_, _ = fmt.Fprintln(out, chat.ParseProgressCard(outcome.ProgressCard.Content).Render(""))
	}
	return nil
}
