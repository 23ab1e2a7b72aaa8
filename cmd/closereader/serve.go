package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/closereader/internal/api"
	"github.com/dgallion1/closereader/internal/catalog"
	"github.com/dgallion1/closereader/internal/config"
	"github.com/dgallion1/closereader/internal/outbox"
	"github.com/dgallion1/closereader/internal/paginator"
	"github.com/dgallion1/closereader/internal/pathstore"
	"github.com/dgallion1/closereader/internal/pipeline"
	"github.com/dgallion1/closereader/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	v, err := loadViper()
	if err != nil {
		return err
	}
	if err := v.BindPFlag("PORT", cmd.Flags().Lookup("port")); err != nil {
		return err
	}
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize clients.
	ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
	defer ps.Close()

	boxCfg := outbox.DefaultConfig(cfg.OutboxPath)
	if cfg.OutboxInMemory {
		boxCfg = outbox.InMemoryConfig()
	}
	boxCfg.Logger = log.With("component", "outbox")
	box, err := outbox.Open(boxCfg)
	if err != nil {
		log.Error("outbox open failed", "path", cfg.OutboxPath, "error", err)
		return err
	}
	defer box.Close()

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, ps, box, log.With("component", "sync"))
	orch.Start(ctx)

	cat := catalog.New()
	workspaces := workspace.NewRegistry(workspace.RegistryConfig{
		TTL:      cfg.WorkspaceTTL,
		PageSize: cfg.PageSize,
		Catalog:  cat,
		Pages:    paginator.NewCache(cfg.PageCacheTTL, cfg.PageCacheTTL/2),
		Remote:   ps,
		Sync:     orch,
		Logger:   log,
	})

	srv := api.NewServer(cat, workspaces, orch, log, cfg)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting closereader", "port", cfg.Port, "pathstore", cfg.PathstoreURL, "outbox_pending", orch.Pending())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
			orch.Stop()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	// Queued sync jobs are parked in the outbox before it closes.
	orch.Stop()
	log.Info("stopped", "outbox_pending", orch.Pending())
	return nil
}
