// Gamewatch daemon - watches game windows for template matches and raises
// desktop alerts, with a local dashboard API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamewatch/gamewatch/internal/alert"
	"github.com/gamewatch/gamewatch/internal/capture"
	"github.com/gamewatch/gamewatch/internal/config"
	"github.com/gamewatch/gamewatch/internal/learn"
	"github.com/gamewatch/gamewatch/internal/match"
	"github.com/gamewatch/gamewatch/internal/monitor"
	"github.com/gamewatch/gamewatch/internal/notify"
	"github.com/gamewatch/gamewatch/internal/server"
	"github.com/gamewatch/gamewatch/internal/template"
	"github.com/gamewatch/gamewatch/internal/window"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	learnStore, err := learn.OpenStore(cfg.LearnDBPath)
	if err != nil {
		slog.Error("learning database unavailable", "path", cfg.LearnDBPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = learnStore.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := notify.NewQueue(notify.NewSender())
	queue.Start(ctx)

	store := template.NewStore(template.DefaultCacheCeiling)
	engine := match.NewEngine(store)
	filter := learn.NewFilter(learnStore)
	orch := capture.NewOrchestrator(window.New(), capture.NewGrabber())

	var srv *server.Server
	pipeline := alert.NewPipeline(func(e alert.Event) {
		if srv != nil {
			srv.Broadcast(e)
		}
	})

	mon := monitor.New(cfg, orch, store, engine, filter, pipeline, queue)
	srv = server.New(mon, pipeline, orch.Stats())

	go mon.Run(ctx)
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			mon.UpdateConfig(next)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("config watcher stopped", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		slog.Info("gamewatch starting",
			"http", cfg.HTTPAddr,
			"sources", len(cfg.Sources),
			"alerts", len(cfg.Alerts))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	queue.Wait()
	slog.Info("shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
