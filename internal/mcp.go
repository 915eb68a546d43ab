package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/identity"
	"github.com/starford/scribe/internal/mcpserver"
	"github.com/starford/scribe/internal/noteservice"
)

// RunMCP serves the MCP tool surface on stdio for the subject of token.
// Logs go to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, token string, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	app.level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: app.level}))
	slog.SetDefault(logger)

	store, err := docstore.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	idp := identity.NewLocal(store, cfg.Identity.ProviderConfig())
	subject, err := idp.VerifyToken(ctx, token)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}

	logger.Info("MCP server starting", slog.String("subject", subject))
	srv := mcpserver.New(noteservice.NewService(store), subject)
	return srv.ServeStdio()
}
