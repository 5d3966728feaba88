package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/cueboard/cueboard/server/internal/api"
	"github.com/cueboard/cueboard/server/internal/config"
	"github.com/cueboard/cueboard/server/internal/library"
	"github.com/cueboard/cueboard/server/internal/metrics"
	"github.com/cueboard/cueboard/server/internal/notify"
	"github.com/cueboard/cueboard/server/internal/pages"
	"github.com/cueboard/cueboard/server/internal/registry"
	"github.com/cueboard/cueboard/server/internal/selection"
	"github.com/cueboard/cueboard/server/internal/ws"
)

const defaultConfigPath = "cueboard.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	envFile := flag.String("env-file", ".env", "load environment overrides from this file if it exists")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	path := resolveConfigPath(*configPath)
	slog.Info("cueboard starting", "config", path)

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"addr", cfg.Server.Addr(),
		"library", cfg.Library.Dir,
		"exclude", cfg.Library.Exclude,
		"webhooks", len(cfg.Notify.Webhooks),
	)

	lib, err := library.New(cfg.Library.Dir, cfg.Library.Exclude)
	if err != nil {
		slog.Error("failed to open library", "err", err)
		os.Exit(1)
	}
	slog.Info("library indexed", "dir", lib.Root(), "files", len(lib.Files()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Core: registry + selection controller, observed by metrics and webhooks.
	collector := metrics.New()
	reg := registry.New(registry.WithObserver(collector))
	notifier := notify.New(cfg.Notify)
	ctrl := selection.New(reg, lib, collector, notifier)

	hub := ws.New(reg, ws.Options{
		WriteTimeout: cfg.Server.WriteTimeout,
		SendBuffer:   cfg.Server.SendBuffer,
	})
	go hub.Run(ctx)

	if cfg.Library.Watch {
		go func() {
			if err := lib.Watch(ctx, ctrl.AnnounceLibrary); err != nil {
				slog.Error("library watch stopped", "err", err)
			}
		}()
	}

	if path != "" {
		go func() {
			err := config.Watch(ctx, path, func(next *config.Config) {
				level.Set(next.Server.Level())
				if err := lib.SetExclude(next.Library.Exclude); err != nil {
					slog.Error("failed to apply library exclude", "err", err)
					return
				}
				ctrl.AnnounceLibrary(lib.Files())
				slog.Info("config reloaded", "log_level", next.Server.LogLevel, "exclude", next.Library.Exclude)
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	site, err := pages.New(ctrl, reg, lib)
	if err != nil {
		slog.Error("failed to load pages", "err", err)
		os.Exit(1)
	}

	router := mux.NewRouter()
	api.New(ctrl, reg, lib).Register(router)
	router.Handle("/ws/{role}", hub)
	router.Handle("/metrics", collector)
	site.Register(router)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening",
			"addr", cfg.Server.Addr(),
			"lan_url", "http://"+net.JoinHostPort(localIP(), strconv.Itoa(cfg.Server.HTTPPort)),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("cueboard shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	notifier.Wait()
}

// resolveConfigPath returns path, or "" when the default config file is
// absent and -config was not given explicitly.
func resolveConfigPath(path string) string {
	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	if explicit {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

// localIP returns the address other machines on the LAN reach this host by.
// No packets are sent; dialing UDP only selects the outbound interface.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "unknown"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "unknown"
}
