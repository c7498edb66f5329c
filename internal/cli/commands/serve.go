package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docfusion/docfusion/internal/cliopt"
	"github.com/docfusion/docfusion/internal/server"
)

func NewServeCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, cmd, g, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if cmd.Flags().Changed("host") {
				s.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				s.cfg.Server.Port = port
			}
			return server.New(s.db, s.cfg.Server, s.cfg.Auth, s.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
