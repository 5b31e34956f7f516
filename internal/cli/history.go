package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/assetpipe/internal/engine"
	"github.com/roach88/assetpipe/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// HistoryEntry is one finished item in the journal.
type HistoryEntry struct {
	Seq       int64  `json:"seq"`
	ID        string `json:"id"`
	Source    string `json:"source"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	Bytes     int64  `json:"bytes"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// HistoryResult is the result of the history command.
type HistoryResult struct {
	Entries    []HistoryEntry `json:"entries"`
	Done       int64          `json:"done"`
	Failed     int64          `json:"failed"`
	Abandoned  int64          `json:"abandoned"`
	Unfinished int64          `json:"unfinished"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent outcomes from the journal",
		Long: `Print the most recently finished work items recorded by 'run --db', along
with totals for done, failed and unfinished items.

Examples:
  assetpipe history --db ./pipeline.db
  assetpipe history --db ./pipeline.db --limit 50 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of entries")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid limit %d: must be positive", opts.Limit))
	}
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.OpenReadOnly(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	entries, err := st.RecentOutcomes(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}
	counts, err := st.OutcomeCounts(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}

	result := HistoryResult{
		Entries:    make([]HistoryEntry, 0, len(entries)),
		Done:       counts.Done,
		Failed:     counts.Failed,
		Abandoned:  counts.Abandoned,
		Unfinished: counts.Unfinished,
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, historyEntry(e))
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(result, func(w io.Writer) { outputHistoryText(w, result) })
}

func historyEntry(e store.Entry) HistoryEntry {
	h := HistoryEntry{
		Seq:       e.Item.Seq,
		ID:        e.Item.ID,
		Source:    e.Item.Source,
		Kind:      e.Item.Kind.String(),
		Status:    string(e.Outcome.Status),
		Bytes:     e.Outcome.Bytes,
		ElapsedMS: e.Outcome.Elapsed.Milliseconds(),
	}
	switch e.Outcome.Status {
	case engine.StatusFailed:
		h.Code = string(e.Outcome.Code)
		h.Error = e.Outcome.Err
	case engine.StatusAbandoned:
		h.Error = e.Outcome.Err
	}
	return h
}

func outputHistoryText(w io.Writer, result HistoryResult) {
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No finished items.")
	}
	for _, e := range result.Entries {
		switch e.Status {
		case string(engine.StatusFailed):
			fmt.Fprintf(w, "✗ #%d %s [%s] %s: %s\n", e.Seq, e.Source, e.Kind, e.Code, e.Error)
		case string(engine.StatusAbandoned):
			fmt.Fprintf(w, "- #%d %s [%s] abandoned: %s\n", e.Seq, e.Source, e.Kind, e.Error)
		default:
			elapsed := time.Duration(e.ElapsedMS) * time.Millisecond
			fmt.Fprintf(w, "✓ #%d %s [%s] %s in %s\n",
				e.Seq, e.Source, e.Kind, humanize.Bytes(uint64(e.Bytes)), elapsed)
		}
	}
	fmt.Fprintf(w, "\n%s done, %s failed, %s abandoned, %s unfinished\n",
		humanize.Comma(result.Done), humanize.Comma(result.Failed),
		humanize.Comma(result.Abandoned), humanize.Comma(result.Unfinished))
}
