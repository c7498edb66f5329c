package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/internal/cliopt"
	"github.com/docfusion/docfusion/internal/cliutil"
)

func NewQueryCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var qo docfusion.QueryOptions
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SELECT against the documents table",
		Example: `  docfusion query "SELECT id, json_extract_path(content, 'status') AS status FROM documents LIMIT 5"
  docfusion query --explain "SELECT * FROM documents WHERE content.status = 'active'"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.db.Query(cmd.Context(), args[0], qo)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if s.format == cliutil.FormatJSON {
				return cliutil.PrintJSON(w, res)
			}
			if qo.Explain {
				for _, step := range res.ExplainSteps {
					fmt.Fprintln(w, step)
				}
				return nil
			}
			cliutil.PrintTable(w, cliutil.Columns(res.Columns, res.Rows), res.Rows)
			fmt.Fprintf(w, "(%d rows, %d pushed, %d residual, %s)\n",
				res.Count, res.Pushed, res.Residual, res.Elapsed.Round(time.Microsecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&qo.Explain, "explain", false, "print the plan without running it")
	cmd.Flags().BoolVar(&qo.NoCache, "no-cache", false, "bypass the result cache")
	return cmd
}
