package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/docfusion/docfusion/internal/cli/commands"
	"github.com/docfusion/docfusion/internal/cliopt"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	g := cliopt.DefaultGlobalOptions()
	root := &cobra.Command{
		Use:   "docfusion",
		Short: "SQL over a JSON document store",
		Long: `docfusion stores JSON documents in SQLite or PostgreSQL and runs SELECT
queries over them, pushing supported filters down to the store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cliopt.BindGlobalFlags(root, &g)

	root.AddCommand(
		commands.NewMigrateCommand(&g),
		commands.NewPutCommand(&g),
		commands.NewGetCommand(&g),
		commands.NewListCommand(&g),
		commands.NewDeleteCommand(&g),
		commands.NewQueryCommand(&g),
		commands.NewStatsCommand(&g),
		commands.NewServeCommand(&g),
		commands.NewConfigCommand(&g),
	)
	return root
}

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	return run(context.Background(), argv, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, argv []string, in io.Reader, out, errOut io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(argv)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}
