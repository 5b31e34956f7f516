package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/assetpipe/internal/engine"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	TreeOptions
}

// StaleFile is one file the next scan would queue.
type StaleFile struct {
	Path   string `json:"path"`
	Output string `json:"output"`
	Kind   string `json:"kind"`
}

// StatusResult is the result of a dry-run scan.
type StatusResult struct {
	Stale     []StaleFile `json:"stale"`
	Unhandled []string    `json:"unhandled"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List files the next scan would process",
		Long: `Scan the source tree without queuing or writing anything and list every
file whose output is missing or out of date, plus files no processor handles.

Examples:
  assetpipe status
  assetpipe status --source ./assets-dev --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	opts.bind(cmd)
	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	log := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	eng, err := openPipeline(opts.TreeOptions, log)
	if err != nil {
		return err
	}

	report := eng.Plan(cmd.Context())
	result := StatusResult{
		Stale:     staleFiles(eng, report.Stale),
		Unhandled: report.Unhandled,
	}
	if result.Unhandled == nil {
		result.Unhandled = []string{}
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(result, func(w io.Writer) { outputStatusText(w, result) })
}

func staleFiles(eng *engine.Engine, candidates []engine.Candidate) []StaleFile {
	files := make([]StaleFile, 0, len(candidates))
	for _, c := range candidates {
		files = append(files, StaleFile{
			Path:   relSlash(eng.SourceRoot(), c.Source),
			Output: relSlash(eng.DestRoot(), c.Destination),
			Kind:   c.Kind.String(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Kind != files[j].Kind {
			return files[i].Kind < files[j].Kind
		}
		return files[i].Path < files[j].Path
	})
	return files
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func outputStatusText(w io.Writer, result StatusResult) {
	if len(result.Stale) == 0 {
		fmt.Fprintln(w, "Up to date.")
	}

	kind := ""
	for _, f := range result.Stale {
		if f.Kind != kind {
			kind = f.Kind
			fmt.Fprintf(w, "%s:\n", kind)
		}
		fmt.Fprintf(w, "  %s -> %s\n", f.Path, f.Output)
	}

	if len(result.Unhandled) > 0 {
		fmt.Fprintln(w, "unhandled:")
		for _, p := range result.Unhandled {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}
