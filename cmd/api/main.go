package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"entstore/infrastructure/config"
	"entstore/infrastructure/di"
)

func main() {
	root := &cobra.Command{
		Use:   "entstore",
		Short: "Schema-first in-process entity store",
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	container, err := di.InitializeContainer(cfg)
	if err != nil {
		return err
	}

	// Periodically apply the event retention policy per namespace.
	if cfg.Store.EventRetention > 0 {
		go pruneLoop(ctx, container)
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", cfg.Environment),
		)

		if err := container.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := container.Server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

func pruneLoop(ctx context.Context, container *di.Container) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ns := range container.Stores.Namespaces() {
				p, err := container.Stores.Get(ns)
				if err != nil {
					continue
				}
				dropped, err := p.PruneEvents(ctx)
				if err != nil {
					container.Logger.Warn("event prune failed",
						zap.String("namespace", ns),
						zap.Error(err),
					)
					continue
				}
				if dropped > 0 {
					container.Logger.Debug("pruned events",
						zap.String("namespace", ns),
						zap.Int("dropped", dropped),
					)
				}
			}
		}
	}
}
