package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/arim-dx/rdex/pkg/log"
	"github.com/arim-dx/rdex/pkg/source"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
)

// rebuildDebounce coalesces bursts of events from tools that rewrite all
// four dumps in one go.
const rebuildDebounce = 500 * time.Millisecond

// WatchCommand creates the watch command
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the RDE dumps and rebuild the index on change",
		Action: func(ctx context.Context, c *cli.Command) error {
			return watchSources(ctx, c.String("config"))
		},
	}
}

// watchSources rebuilds the index whenever a source dump changes
func watchSources(ctx context.Context, configPath string) error {
	svc, cfg, err := loadService(configPath)
	if err != nil {
		return err
	}
	logger := log.For("watch")

	// Build once up front so a fresh checkout starts consistent.
	if _, err := svc.EnsureIndex(false); err != nil {
		return fmt.Errorf("initial index build: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close watcher: %v", err)
		}
	}()

	// Watch the directory rather than the files: editors and exporters
	// replace files atomically, which would drop per-file watches.
	if err := watcher.Add(cfg.DataDir); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.DataDir, err)
	}
	logger.Infof("watching %s for dump changes", cfg.DataDir)

	watched := make(map[string]struct{}, len(source.Names))
	for _, name := range source.Names {
		watched[filepath.Base(source.FilePath(cfg.DataDir, name))] = struct{}{}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	debounce := time.NewTimer(rebuildDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigCh:
			fmt.Printf("\nReceived %s, shutting down\n", sig)
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				continue
			}
			if _, relevant := watched[filepath.Base(event.Name)]; !relevant {
				continue
			}
			// Editors often use atomic writes, so react to rename/remove too.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				logger.Debugf("dump changed: %s (%s)", event.Name, event.Op)
				if !pending {
					pending = true
					debounce.Reset(rebuildDebounce)
				}
			}
		case <-debounce.C:
			pending = false
			payload, err := svc.EnsureIndex(false)
			if err != nil {
				logger.Errorf("rebuild after dump change failed: %v", err)
				continue
			}
			logger.Infof("index refreshed: %d datasets", payload.Meta.DatasetCount)
		case err, ok := <-watcher.Errors:
			if !ok {
				continue
			}
			logger.Warnf("watcher error: %v", err)
		}
	}
}
