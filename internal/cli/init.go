package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/assetpipe/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	TreeOptions
	Force bool
}

// InitResult is the result of the init command.
type InitResult struct {
	Config string `json:"config"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Create the source tree if needed and write the default configuration to
<source>/config.toml. An existing file is left alone unless --force is given.

Examples:
  assetpipe init
  assetpipe init --source ./assets-dev --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", DefaultSource, "source asset tree")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default <source>/config.toml)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	path := opts.configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create source tree", err)
	}

	if err := config.WriteDefault(path, opts.Force); err != nil {
		if errors.Is(err, config.ErrExists) {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("%s already exists (use --force to overwrite)", path))
		}
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(InitResult{Config: path}, func(w io.Writer) {
		fmt.Fprintf(w, "Wrote %s\n", path)
	})
}
