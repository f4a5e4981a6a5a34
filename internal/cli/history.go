package cli

import (
	"github.com/spf13/cobra"

	"github.com/pkgscout/pkgscout/pkg/history"
)

// historyCommand creates the search history command.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage search history",
	}
	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyClearCommand())
	return cmd
}

func (c *CLI) historyListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore("")
			if err != nil {
				return err
			}
			entries, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("No searches recorded")
				return nil
			}
			for _, e := range entries {
				printInfo("%s %s", StyleHighlight.Render(e.Query), StyleDim.Render(e.Timestamp.Local().Format("2006-01-02 15:04")))
				printDetail("%d results from %d sources", e.ItemCount, len(e.Sources))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum entries to show")
	return cmd
}

func (c *CLI) historyClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore("")
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			printSuccess("History cleared")
			printDetail("Directory: %s", store.Path())
			return nil
		},
	}
}
