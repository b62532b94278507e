package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/corevfs/corevfs/internal/logger"
)

// Watch reloads the configuration whenever the file at configPath changes
// and invokes onReload with the freshly loaded result. Reload errors are
// logged and the previous configuration stays in effect.
//
// Watch blocks until ctx is cancelled. Only hot-reloadable settings
// (currently the log level and format) should be applied by onReload;
// everything else requires a restart.
func Watch(ctx context.Context, configPath string, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}

			cfg, err := Load(configPath)
			if err != nil {
				logger.Warn("config reload failed, keeping previous configuration",
					"path", configPath, "error", err)
				continue
			}
			logger.Info("configuration reloaded", "path", configPath)
			onReload(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("config watcher error: %w", err)
		}
	}
}
