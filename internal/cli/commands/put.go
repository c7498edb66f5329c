package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/internal/cliopt"
	"github.com/docfusion/docfusion/internal/cliutil"
)

const maxLineBytes = 16 << 20

func NewPutCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var jsonStdin bool
	var importPath string
	cmd := &cobra.Command{
		Use:   "put [json]",
		Short: "Insert one document, or JSON lines from stdin or a file",
		Example: `  docfusion put '{"status":"active"}'
  cat docs.jsonl | docfusion put --json
  docfusion put --import docs.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader
			switch {
			case len(args) == 1:
			case importPath != "":
				f, err := os.Open(importPath)
				if err != nil {
					return docfusion.Wrap(docfusion.ErrIO, "open import file", err)
				}
				defer f.Close()
				r = f
			case jsonStdin:
				r = cmd.InOrStdin()
			default:
				return fmt.Errorf("provide a document, --json or --import")
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cmd, g, true)
			if err != nil {
				return err
			}
			defer s.Close()

			if r == nil {
				doc, err := s.db.Insert(ctx, []byte(args[0]))
				if err != nil {
					return err
				}
				if s.format == cliutil.FormatJSON {
					return cliutil.PrintJSON(cmd.OutOrStdout(), doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "put %d\n", doc.ID)
				return nil
			}

			docs, err := readLines(ctx, r)
			if err != nil {
				return err
			}
			total := 0
			for start := 0; start < len(docs); start += docfusion.MaxBulkDocuments {
				end := min(start+docfusion.MaxBulkDocuments, len(docs))
				res, err := s.db.BulkInsert(ctx, docs[start:end])
				if err != nil {
					return fmt.Errorf("import rows %d-%d: %w", start+1, end, err)
				}
				total += res.Inserted
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d\n", total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonStdin, "json", false, "read JSON lines from stdin")
	cmd.Flags().StringVar(&importPath, "import", "", "import a JSON lines file")
	return cmd
}

// readLines reads non-blank lines and checks them as JSON objects in parallel.
// The returned documents keep input order.
func readLines(ctx context.Context, r io.Reader) ([][]byte, error) {
	var lines [][]byte
	var lineNo []int
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, bytes.Clone(line))
		lineNo = append(lineNo, n)
	}
	if err := sc.Err(); err != nil {
		return nil, docfusion.Wrap(docfusion.ErrIO, "read input", err)
	}
	if len(lines) == 0 {
		return nil, docfusion.New(docfusion.ErrInvalidDocument, "no documents in input")
	}

	out := make([][]byte, len(lines))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, line := range lines {
		eg.Go(func() error {
			var buf bytes.Buffer
			if err := json.Compact(&buf, line); err != nil {
				e := docfusion.Wrap(docfusion.ErrInvalidDocument, "invalid JSON", err)
				e.Field = fmt.Sprintf("line %d", lineNo[i])
				return e
			}
			if buf.Bytes()[0] != '{' {
				e := docfusion.New(docfusion.ErrInvalidDocument, "document must be a JSON object")
				e.Field = fmt.Sprintf("line %d", lineNo[i])
				return e
			}
			out[i] = buf.Bytes()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
