package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-network-go/internal/config"
)

type watchOptions struct {
	build    buildOptions
	debounce time.Duration
}

// newWatchCmd creates the "watch" subcommand for rebuilding on file changes.
func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild templates when the environment, registry or customer files change",
		Long: `Watch builds the environment once, then rebuilds whenever the environment
file or the registry and customer files it names change. Rapid changes are
debounced into one rebuild.

Examples:
    wetwire-network watch -e environment.yaml -o build/
    wetwire-network watch -e environment.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), root.logger(), opts)
		},
	}

	opts.build.env.register(cmd)
	cmd.Flags().StringVarP(&opts.build.outputDir, "output", "o", ".", "Output directory for templates")
	cmd.Flags().StringVarP(&opts.build.outputFormat, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")

	return cmd
}

// runWatch rebuilds on changes until ctx is cancelled.
func runWatch(ctx context.Context, w io.Writer, log *zap.Logger, opts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	watched := map[string]bool{}
	refresh := func() error {
		files, err := watchedFiles(opts.build.env.file)
		if err != nil {
			return err
		}
		for _, dir := range parentDirs(files) {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
		watched = make(map[string]bool, len(files))
		for _, f := range files {
			watched[f] = true
		}
		return nil
	}
	rebuild := func() {
		if err := runBuild(ctx, w, log, opts.build); err != nil {
			log.Warn("rebuild failed", zap.Error(err))
		}
		if err := refresh(); err != nil {
			log.Warn("refreshing watched files", zap.Error(err))
		}
	}

	if err := refresh(); err != nil {
		return err
	}
	for f := range watched {
		log.Info("watching", zap.String("file", f))
	}

	fmt.Fprintln(w, "Running initial build...")
	rebuild()

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[absPath(event.Name)] {
				continue
			}
			// Editors often save by renaming a temp file over the original.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(w, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(w, "\nStopping watch...")
			return nil
		}
	}
}

// watchedFiles returns the absolute paths of the environment file and the
// files it names, sorted. An unreadable environment still watches itself so
// a fix triggers a rebuild.
func watchedFiles(envFile string) ([]string, error) {
	envPath, err := filepath.Abs(envFile)
	if err != nil {
		return nil, err
	}
	files := []string{envPath}

	if env, err := config.Load(envFile); err == nil {
		for _, f := range env.Files() {
			files = append(files, absPath(f))
		}
	}

	sort.Strings(files)
	return files, nil
}

// parentDirs returns the unique directories holding files.
func parentDirs(files []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
