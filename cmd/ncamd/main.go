// Command ncamd runs the Newcamd gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/barnettlynn/ncamd/internal/adminapi"
	"github.com/barnettlynn/ncamd/internal/channels"
	"github.com/barnettlynn/ncamd/internal/config"
	"github.com/barnettlynn/ncamd/internal/logging"
	"github.com/barnettlynn/ncamd/internal/metrics"
	"github.com/barnettlynn/ncamd/internal/reload"
	"github.com/barnettlynn/ncamd/pkg/newcamd"
)

func main() {
	var (
		configPath = flag.String("config", "/etc/ncamd/config.yaml", "path to config file")
		verbose    = flag.Bool("v", false, "enable debug logging regardless of config")
		logFormat  = flag.String("log-format", "text", "log format: text or json")
	)
	flag.Parse()

	base := newBaseLogger(*logFormat, *verbose)

	if _, err := os.Stat(*configPath); errors.Is(err, os.ErrNotExist) {
		base.Info("no config file found, writing defaults", "path", *configPath)
		if err := config.WriteDefault(*configPath); err != nil {
			base.Error("failed to write default config", "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		base.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	mask, err := cfg.Logging.CategoryMask()
	if err != nil {
		base.Error("invalid logging config", "error", err)
		os.Exit(1)
	}
	if *verbose {
		mask = logging.CatAll
	}
	log := logging.New(base, mask)

	accounts, err := config.LoadAccounts(cfg.Accounts)
	if err != nil {
		log.Error("failed to load accounts: %v", err)
		os.Exit(1)
	}
	store := newcamd.NewAccountStore(accounts)

	rootKey, err := cfg.Listen.RootKey()
	if err != nil {
		log.Error("invalid root key: %v", err)
		os.Exit(1)
	}

	server := newcamd.NewServer(newcamd.ServerConfig{
		Addr:          cfg.Listen.Addr,
		SocketTimeout: cfg.Listen.SocketTimeout.Duration(),
		RootKey:       rootKey,
	}, store, log)

	chanTable := channels.NewTable()
	if cfg.Channels != "" {
		if err := chanTable.Load(cfg.Channels); err != nil {
			log.Warn("channel table load: %v", err)
		}
	}
	server.ChannelName = chanTable
	server.ClientNames = chanTable

	registry := prometheus.NewRegistry()
	server.Metrics = metrics.New(registry)

	server.ReloadFunc = func() ([]*newcamd.Account, error) {
		if cfg.Channels != "" {
			if err := chanTable.Load(cfg.Channels); err != nil {
				log.Warn("channel table reload: %v", err)
			}
		}
		return config.LoadAccounts(cfg.Accounts)
	}

	tokens, err := adminapi.NewTokenService(cfg.Admin.JWTSecret)
	if err != nil {
		log.Error("admin token service: %v", err)
		os.Exit(1)
	}

	var adminSrv *http.Server
	adminSrv = &http.Server{
		Addr: cfg.Admin.Addr,
		Handler: adminapi.NewRouter(adminapi.Dependencies{
			Server:   server,
			Tokens:   tokens,
			Registry: registry,
			Log:      log,
			Shutdown: func() { shutdown(server, adminSrv); os.Exit(0) },
			Restart:  restartInPlace,
		}),
	}

	watcher, err := reload.New(server, log, *configPath, cfg.Accounts)
	if err != nil {
		log.Warn("config watcher: %v", err)
	} else {
		defer watcher.Close()
	}

	go func() {
		log.Info(logging.CatAdmin, "admin API listening on %s", cfg.Admin.Addr)
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("admin API: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info(logging.CatNet, "received %s, shutting down", sig)
		shutdown(server, adminSrv)
		os.Exit(0)
	}()

	if err := server.Run(); err != nil {
		log.Error("server exited: %v", err)
		os.Exit(1)
	}
}

func newBaseLogger(format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func shutdown(server *newcamd.Server, adminSrv *http.Server) {
	server.Shutdown()
	if adminSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = adminSrv.Shutdown(ctx)
	}
}

// restartInPlace re-executes the running binary in place with its saved
// argv, for the admin "restart" action.
func restartInPlace() {
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "restart: resolve executable: %v\n", err)
		return
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "restart: exec: %v\n", err)
	}
}
