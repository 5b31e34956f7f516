package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/assetpipe/internal/config"
	"github.com/roach88/assetpipe/internal/engine"
	"github.com/roach88/assetpipe/internal/store"
)

// TreeOptions holds the flags shared by commands that open a pipeline.
type TreeOptions struct {
	Source string
	Dest   string
	Config string // defaults to <source>/config.toml
}

func (o *TreeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Source, "source", DefaultSource, "source asset tree")
	cmd.Flags().StringVar(&o.Dest, "dest", DefaultDest, "destination tree for processed assets")
	cmd.Flags().StringVar(&o.Config, "config", "", "config file (default <source>/config.toml)")
}

func (o *TreeOptions) configPath() string {
	if o.Config != "" {
		return o.Config
	}
	return filepath.Join(o.Source, config.FileName)
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	TreeOptions
	Once     bool
	Database string

	// IDGenerator overrides the work item ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// RunSummary is the result of a --once run.
type RunSummary struct {
	Ticks     int64  `json:"ticks"`
	Queued    int64  `json:"queued"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Source    string `json:"source"`
	Dest      string `json:"dest"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the source tree and process changed assets",
		Long: `Start the pipeline over a source tree.

Every poll interval the source tree is scanned; files whose output is missing
or older than the source are queued to the processor for their kind. Failed
files are retried on the next scan.

With --once a single scan is made and every queued file is processed before
the command exits. With --db every queued item and its outcome is journaled
to a SQLite database.

Examples:
  assetpipe run
  assetpipe run --source ./assets-dev --dest ./assets --db ./pipeline.db
  assetpipe run --once --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.Once, "once", false, "scan once, drain the queues and exit")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")

	return cmd
}

// openPipeline checks the source tree, loads the config and builds an engine.
func openPipeline(opts TreeOptions, log *slog.Logger, extra ...engine.Option) (*engine.Engine, error) {
	info, err := os.Stat(opts.Source)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "source tree not found", err)
	}
	if !info.IsDir() {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("source is not a directory: %s", opts.Source))
	}

	cfgPath := opts.configPath()
	cfg := config.LoadOrInit(cfgPath, log)

	engOpts := append([]engine.Option{
		engine.WithLogger(log),
		engine.WithConfigPath(cfgPath),
	}, extra...)
	eng, err := engine.New(cfg, opts.Source, opts.Dest, engOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid pipeline roots", err)
	}
	return eng, nil
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	log := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ids := opts.IDGenerator
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	extra := []engine.Option{engine.WithIDGenerator(ids)}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	if opts.Database != "" {
		log.Info("opening journal", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		last, err := st.LastSeq(parentCtx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		unfinished, err := st.Unfinished(parentCtx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		for _, item := range unfinished {
			log.Warn("item did not finish in previous run", "seq", item.Seq, "source", item.Source, "kind", item.Kind)
		}
		if len(unfinished) > 0 {
			if _, err := st.AbandonUnfinished(parentCtx); err != nil {
				log.Warn("journal write failed", "error", err)
			}
		}
		extra = append(extra, engine.WithJournal(st), engine.WithSequence(engine.ResumeSequence(last)))
	}

	eng, err := openPipeline(opts.TreeOptions, log, extra...)
	if err != nil {
		return err
	}

	if opts.Once {
		return runOnce(parentCtx, opts, eng, cmd.OutOrStdout())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s -> %s\n", eng.SourceRoot(), eng.DestRoot())
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	}

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "pipeline error", err)
	}
	return nil
}

func runOnce(ctx context.Context, opts *RunOptions, eng *engine.Engine, w io.Writer) error {
	stats, err := eng.RunOnce(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "pipeline interrupted", err)
	}

	summary := RunSummary{
		Ticks:     stats.Ticks,
		Queued:    stats.Queued,
		Processed: stats.Processed,
		Failed:    stats.Failed,
		Source:    eng.SourceRoot(),
		Dest:      eng.DestRoot(),
	}
	text := func(w io.Writer) {
		fmt.Fprintf(w, "Queued %s, processed %s, failed %s\n",
			humanize.Comma(summary.Queued), humanize.Comma(summary.Processed), humanize.Comma(summary.Failed))
	}

	f := &OutputFormatter{Format: opts.Format, Writer: w}
	if summary.Failed > 0 {
		return f.Failure(ExitFailure, "E_ITEMS_FAILED",
			fmt.Sprintf("%d item(s) failed", summary.Failed), summary, text)
	}
	return f.Success(summary, text)
}
