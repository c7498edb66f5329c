package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/internal/cliopt"
	"github.com/docfusion/docfusion/internal/cliutil"
)

func NewMigrateCommand(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the documents table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "migrated table %s (%s)\n", s.cfg.Database.Table, s.db.Backend())
			return nil
		},
	}
}

func NewGetCommand(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.db.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if s.format == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), doc)
			}
			cliutil.PrintDocuments(cmd.OutOrStdout(), []docfusion.Document{doc})
			return nil
		},
	}
}

func NewListCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer s.Close()

			docs, err := s.db.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if s.format == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), docs)
			}
			cliutil.PrintDocuments(cmd.OutOrStdout(), docs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", docfusion.DefaultListLimit,
		fmt.Sprintf("page size (max %d)", docfusion.MaxListLimit))
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func NewDeleteCommand(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer s.Close()

			deleted, err := s.db.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				return docfusion.New(docfusion.ErrNotFound, fmt.Sprintf("document not found: id=%d", id))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func NewStatsCommand(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print document count and pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer s.Close()

			count, err := s.db.Count(cmd.Context())
			if err != nil {
				return err
			}
			pool := s.db.PoolStats()
			out := docfusion.Row{
				"backend":   string(s.db.Backend()),
				"table":     s.cfg.Database.Table,
				"documents": count,
				"pool_max":  pool.MaxConns,
				"pool_idle": pool.Idle,
				"pool_used": pool.InUse,
			}
			if s.format == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), out)
			}
			cliutil.PrintTable(cmd.OutOrStdout(),
				[]string{"backend", "table", "documents", "pool_max", "pool_idle", "pool_used"},
				[]docfusion.Row{out})
			return nil
		},
	}
}
