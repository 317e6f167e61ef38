package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edupress/edupress/internal/api"
	"github.com/edupress/edupress/internal/config"
	"github.com/edupress/edupress/internal/content"
	"github.com/edupress/edupress/internal/delivery"
	"github.com/edupress/edupress/internal/export"
	"github.com/edupress/edupress/internal/measure"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		log.Error("font initialization failed", "error", err)
		os.Exit(1)
	}

	// Initialize clients.
	contents := content.NewClient(cfg.ContentAPIURL, cfg.ContentAPIKey)
	deliverer := delivery.NewClient(cfg.DeliveryURL, cfg.DeliveryAPIKey)

	// Initialize the export pipeline.
	staging := export.NewStaging(engine)
	exporter := export.NewExporter(contents, deliverer, staging, log, export.Config{
		LogoURL:        cfg.LogoURL,
		SenderName:     cfg.SenderName,
		SupportContact: cfg.SupportContact,
	})

	// Initialize HTTP server.
	srv := api.NewServer(exporter, contents, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		contents.Close()
		deliverer.Close()
	}()

	log.Info("starting edupress export server", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildEngine loads the configured fonts, falling back to the embedded Go
// fonts when no override is set.
func buildEngine(cfg config.Config) (*measure.Engine, error) {
	if cfg.FontPath == "" || cfg.BoldFontPath == "" {
		return measure.NewEngine()
	}
	regular, err := os.ReadFile(cfg.FontPath)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", cfg.FontPath, err)
	}
	bold, err := os.ReadFile(cfg.BoldFontPath)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", cfg.BoldFontPath, err)
	}
	return measure.NewEngineFromTTF(regular, bold)
}
