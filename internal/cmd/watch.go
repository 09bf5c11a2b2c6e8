package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pyapi/csig/internal/sigdiff"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <include_path>",
	Short: "Re-extract signatures whenever a header changes",
	Long: `Extract the signatures once, then watch every directory under
<include_path> and extract again whenever a header is created, written,
renamed or removed. Each rerun prints the changes against the previous run.
Bursts of events are coalesced (watch.debounce_ms, default 250).

A failed rerun is reported on stderr and the previous listing stays the
baseline. Stop with Ctrl-C.

Examples:
  csig watch ./Include
  csig watch ./Include --debounce 1s --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	addExtractFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before re-extracting (default: watch.debounce_ms)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	includePath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyExtractFlags(cmd, cfg)

	debounce := time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond
	if cmd.Flags().Changed("debounce") {
		debounce = watchDebounce
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	previous, err := extractHeaders(ctx, cfg, includePath)
	if err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "watching %s (%d signatures)\n", includePath, len(previous))

	onChange := func(changed []string) {
		logf("%d paths changed: %s", len(changed), strings.Join(changed, ", "))

		current, err := extractHeaders(ctx, cfg, includePath)
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(errOut, "extract failed: %v\n", err)
			}
			return
		}

		report := sigdiff.Compare(previous, current)
		previous = current
		if report.Empty() {
			logf("no signature changes")
			return
		}
		if err := writeOutput(cmd, cfg, report); err != nil {
			fmt.Fprintf(errOut, "%v\n", err)
		}
	}

	return watchHeaders(ctx, includePath, debounce, onChange)
}

// watchHeaders calls onChange with the sorted paths that changed once no
// header event has arrived for the debounce period. It returns when ctx is
// done.
func watchHeaders(ctx context.Context, root string, debounce time.Duration, onChange func(changed []string)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absRoot = filepath.Clean(absRoot)

	info, err := os.Stat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, absRoot); err != nil {
		return err
	}

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	pending := false
	pendingPaths := map[string]bool{}

	resetDebounce := func(path string) {
		pendingPaths[path] = true
		if pending {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		timer.Reset(debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			eventPath := filepath.Clean(event.Name)
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(eventPath); statErr == nil && info.IsDir() {
					if !shouldSkipWatchDir(absRoot, eventPath, info.Name()) {
						watchNewDir(watcher, eventPath, os.Stderr)
						resetDebounce(eventPath)
					}
					continue
				}
			}

			if !isHeaderPath(eventPath) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			resetDebounce(eventPath)
		case <-timer.C:
			if pending {
				pending = false
				changed := make([]string, 0, len(pendingPaths))
				for path := range pendingPaths {
					changed = append(changed, path)
				}
				sort.Strings(changed)
				pendingPaths = map[string]bool{}
				onChange(changed)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	root = filepath.Clean(root)
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if shouldSkipWatchDir(root, path, entry.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// watchNewDir adds a directory created under the watched tree. A failure is
// reported on errOut and the remaining directories stay watched.
func watchNewDir(watcher *fsnotify.Watcher, path string, errOut io.Writer) bool {
	if err := addWatchRecursive(watcher, path); err != nil {
		fmt.Fprintf(errOut, "csig: cannot watch %s: %v\n", path, err)
		return false
	}
	return true
}

func shouldSkipWatchDir(root, path, name string) bool {
	if path == root {
		return false
	}
	return strings.HasPrefix(name, ".")
}

// isHeaderPath reports whether path names a C header, ignoring editor swap
// and backup files.
func isHeaderPath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return filepath.Ext(base) == ".h"
}

