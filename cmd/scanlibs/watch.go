package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/scanlibs/internal/config"
	"github.com/nao1215/scanlibs/internal/log"
	"github.com/nao1215/scanlibs/internal/model"
	"github.com/nao1215/scanlibs/internal/watch"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep a deps file up to date with a directory",
		Long: `Watch scans every regular file below a directory, writes the deps file,
and rewrites it whenever files are created, modified or removed. It runs
until interrupted.

Scan settings come from the configuration file and the flags below.
Unreadable files are recorded as "# path" instead of stopping the watch.

Examples:
  # Follow a build output directory
  scanlibs watch out/system -o deps.txt

  # Rescan after one second of quiet
  scanlibs watch --debounce 1s out/system -o deps.txt`,
		Args: cobra.ExactArgs(1),
		RunE: runWatchCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Deps file to keep up to date (required)")
	cmd.Flags().Duration("debounce", watch.DefaultDebounce,
		"Quiet period after the last change before rescanning")
	cmd.Flags().IntP("workers", "w", config.NewConfig().Workers,
		"Number of files scanned concurrently")
	cmd.Flags().Bool("full-paths", false,
		"Keep directory prefixes on runtime candidates")
	cmd.Flags().StringArrayP("exclude", "x", nil,
		"Exclude a library (repeatable, replaces the default list)")
	cmd.Flags().Bool("no-default-excludes", false,
		"Do not exclude common system libraries")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scanlibs in current or home directory)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", root)
	}

	cfg, err := buildWatchConfig(cmd, root)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	bp, err := newBatchProcessor(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	out := cmd.OutOrStdout()
	w := watch.New(root, output, bp,
		watch.WithDebounce(debounce),
		watch.WithLogger(logger),
		watch.WithUpdateHook(func(s model.Stream) {
			sum := model.NewSummary(s)
			fmt.Fprintf(out, "%s: %d files, %d libraries, %d not ELF\n",
				output, sum.Inputs, sum.DistinctLibraries, sum.Unparseable)
		}),
	)
	return w.Run(ctx)
}

// buildWatchConfig creates the scan settings used by the watcher.
func buildWatchConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.FullPaths, err = flags.GetBool("full-paths"); err != nil {
		return nil, err
	}
	if cfg.Excludes, err = flags.GetStringArray("exclude"); err != nil {
		return nil, err
	}
	if cfg.NoDefaultExcludes, err = flags.GetBool("no-default-excludes"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Files = []string{root}
	cfg.Recursive = true

	if err := applyConfigFile(cfg, flags.Changed); err != nil {
		return nil, err
	}
	// Files change while they are watched; a read failure must not end the watch.
	cfg.OnReadError = config.ReadErrorUnparseable
	return cfg, nil
}
