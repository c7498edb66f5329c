package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docfusion/docfusion/internal/cliopt"
	"github.com/docfusion/docfusion/internal/cliutil"
	"github.com/docfusion/docfusion/internal/config"
)

func NewConfigCommand(g *cliopt.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFileName
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Password != "" {
				cfg.Database.Password = "********"
			}
			if cfg.Auth.APIKey != "" {
				cfg.Auth.APIKey = "********"
			}
			return cliutil.PrintJSON(cmd.OutOrStdout(), cfg)
		},
	})
	return cmd
}
