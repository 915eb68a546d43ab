package internal

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	pkgconfig "github.com/starford/scribe/pkg/config"
)

// watchConfig re-reads the config file whenever it changes and applies the
// new log level to level. Invalid files are logged and ignored. The parent
// directory is watched so editors that replace the file are handled.
func watchConfig(ctx context.Context, path string, level *slog.LevelVar, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logger.Info("config watcher: started", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			logger.Info("config watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg := NewDefaultConfig()
			if err := pkgconfig.Load(target, cfg); err != nil {
				logger.Warn("config watcher: reload rejected", slog.String("error", err.Error()))
				continue
			}
			if cfg.App.LogLevel != level.Level() {
				logger.Info("config watcher: log level changed",
					slog.String("from", level.Level().String()),
					slog.String("to", cfg.App.LogLevel.String()))
				level.Set(cfg.App.LogLevel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
