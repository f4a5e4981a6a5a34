package cli

import (
	"github.com/spf13/cobra"

	"github.com/pkgscout/pkgscout/pkg/config"
)

// sourcesCommand creates the sources listing command.
func (c *CLI) sourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured package sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}

			for i, src := range cfg.Sources {
				status := StyleSuccess.Render("enabled")
				if src.Disabled {
					status = StyleDim.Render("disabled")
				}
				printInfo("%d. %s %s", i+1, StyleHighlight.Render(src.Name), status)
				printDetail("kind: %s", src.Kind)
				if src.URL != "" {
					printDetail("url: %s", src.URL)
				}
			}
			printNewline()
			printDetail("Priority follows list order; earlier sources win on duplicate packages")
			return nil
		},
	}
}
