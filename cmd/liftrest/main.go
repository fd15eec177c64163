package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftrest/internal/clock"
	"github.com/claude/liftrest/internal/config"
	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/notify"
	"github.com/claude/liftrest/internal/resttimer"
	"github.com/claude/liftrest/internal/server"
	"github.com/claude/liftrest/internal/storage"
	"github.com/claude/liftrest/internal/tracker"
	"github.com/claude/liftrest/internal/workout"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	migrateOnly := flag.Bool("migrate-only", false, "run postgres migrations and exit")
	flag.Parse()

	// Load config
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("LiftRest starting", "version", Version, "storage", cfg.Storage.Driver)

	if *migrateOnly {
		if cfg.Storage.Driver != "postgres" {
			log.Error("migrate-only requires storage.driver postgres", "driver", cfg.Storage.Driver)
			os.Exit(1)
		}
		if err := storage.RunMigrations(cfg.Storage.Database.DSN()); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrate-only: exiting")
		return
	}

	// Open persistence
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.Database.DSN(),
		Prefix: cfg.Storage.KeyPrefix,
	})
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage opened")

	// Notifications
	sinks := notify.MultiSink{notify.LogSink{Log: log}}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.Timeout))
	}
	scheduler := notify.NewLocal(sinks, notify.LocalConfig{
		Disabled:        cfg.Notify.Disabled,
		DeliveryTimeout: cfg.Notify.Timeout,
	}, log)
	defer scheduler.Stop()

	// Rest timer and workout
	timerConfig := resttimer.Config{TickInterval: cfg.Timer.TickInterval}
	if cfg.Timer.Persist {
		timerConfig.Store = store
	}
	timer := resttimer.New(scheduler, clock.System{}, timerConfig, log)
	defer timer.Close()
	if err := timer.Restore(ctx); err != nil {
		log.Warn("rest timer restore failed", "error", err)
	}

	sessions := workout.NewStore(store, scheduler, clock.System{}, workout.Config{
		TickInterval: cfg.Workout.TickInterval,
		OverdueAfter: cfg.Workout.OverdueAfter,
	}, log)
	defer sessions.Close()
	if ok, err := sessions.Rehydrate(ctx); err != nil {
		log.Warn("workout rehydrate failed", "error", err)
	} else if ok {
		log.Info("resumed workout in progress")
	}

	hub := lifecycle.NewHub()
	tr := tracker.New(sessions, timer, log)
	detach := tr.Attach(hub)
	defer detach()

	// Create server
	srv := server.New(tr, hub, cfg.Auth.APIKey, log)

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := sessions.Flush(shutdownCtx); err != nil {
		log.Warn("flushing workout failed", "error", err)
	}
	log.Info("server stopped")
}
