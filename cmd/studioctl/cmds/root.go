package cmds

import "github.com/spf13/cobra"

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newTuiCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newInboxCmd())
	root.AddCommand(newProgressCmd())
	root.AddCommand(newRunsCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newServeCmd())
	return nil
}
