package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watchedConfig = `app:
  log_level: %s
  http:
    port: 8080
store:
  driver: sqlite
  dsn: ./scribe.db
identity:
  jwt_secret: 0123456789abcdef0123
  issuer: scribe
  id_token_ttl: 1h
  custom_token_ttl: 1h
events:
  buffer: 64
`

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	data := []byte(fmt.Sprintf(watchedConfig, level))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatchConfigAppliesLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "info")

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchConfig(ctx, path, level, logger) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "debug")
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return level.Level() == slog.LevelDebug
	}, "log level was not reloaded")

	// An invalid file keeps the current level.
	if err := os.WriteFile(path, []byte("app: [broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if level.Level() != slog.LevelDebug {
		t.Errorf("level changed by invalid config: %v", level.Level())
	}
}

func TestWatchConfigMissingDir(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	err := watchConfig(context.Background(), filepath.Join(t.TempDir(), "nope", "config.yaml"), new(slog.LevelVar), logger)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
