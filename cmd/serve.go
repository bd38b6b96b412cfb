package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/listenlog/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP import service until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	catalog, err := r.catalogClient()
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.APIKey == "" {
		r.logger.Warn("no api key configured, protected endpoints will reject every request")
	}

	router := server.NewRouter(server.Options{
		Config:   cfg,
		Importer: r.newEngine(db, catalog, r.logger),
		Version:  r.version,
		Logger:   r.logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, server.NewHTTPServer(cfg, router), r.logger)
}
