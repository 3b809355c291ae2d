package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binatone-bina/health-chat-nexus/pkg/backend"
	"github.com/binatone-bina/health-chat-nexus/pkg/config"
	"github.com/binatone-bina/health-chat-nexus/pkg/events"
	"github.com/binatone-bina/health-chat-nexus/pkg/log"
	"github.com/binatone-bina/health-chat-nexus/pkg/server"
	"github.com/binatone-bina/health-chat-nexus/pkg/session"
)

const shutdownTimeout = 30 * time.Second

func runServer(args []string) {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log.InitWithFile(cfg.Log.Level, log.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	log.Info("Starting server...")

	meetings := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	bus := events.NewBus()
	sessions := session.NewManager()

	wsServer := server.NewWebSocketServer(bus, sessions, meetings, cfg)
	httpServer := server.NewHTTPServer(sessions, wsServer)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpServer,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("HTTP server listening on %s (backend %s)", cfg.HTTPAddr, meetings.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		return shutdown(srv, sessions, bus)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	log.Info("Server shutdown complete.")
}

func shutdown(srv *http.Server, sessions *session.Manager, bus *events.Bus) error {
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// End live calls first so pages still receive their navigation.
	sessions.Shutdown()
	bus.Shutdown()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	log.Info("HTTP server shut down successfully")
	return nil
}
