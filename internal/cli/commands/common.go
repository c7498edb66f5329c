package commands

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/internal/cliopt"
	"github.com/docfusion/docfusion/internal/cliutil"
	"github.com/docfusion/docfusion/internal/config"
	"github.com/docfusion/docfusion/internal/logger"
)

// session is an opened store plus the config and logger it was opened with.
type session struct {
	db     *docfusion.DB
	cfg    *config.Config
	logger *slog.Logger
	format cliutil.OutputFormat
}

func (s *session) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// openSession loads config, initializes logging and connects. One-shot
// commands log at warn unless --log-level says otherwise.
func openSession(ctx context.Context, cmd *cobra.Command, g *cliopt.GlobalOptions, quiet bool) (*session, error) {
	format, err := cliutil.ParseOutputFormat(g.Format)
	if err != nil {
		return nil, err
	}
	cfg, err := g.Load()
	if err != nil {
		return nil, err
	}
	if quiet && g.LogLevel == "" {
		cfg.Logging.Level = "warn"
	}
	l := logger.Init(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
		Output:    cmd.ErrOrStderr(),
	})

	db, err := cliutil.OpenDB(ctx, cfg, l, true)
	if err != nil {
		return nil, err
	}
	return &session{db: db, cfg: cfg, logger: l, format: format}, nil
}

func parseID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, docfusion.New(docfusion.ErrInvalidDocument, "id must be an integer: "+s)
	}
	return int32(id), nil
}
