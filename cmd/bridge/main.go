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

	"github.com/HsiangNianian/AMonItor/bridge/internal/config"
	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/dispatch"
	"github.com/HsiangNianian/AMonItor/bridge/internal/event"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host/v110r1"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host/v112r1"
	"github.com/HsiangNianian/AMonItor/bridge/internal/packet"
	"github.com/HsiangNianian/AMonItor/bridge/internal/resolver"
	"github.com/HsiangNianian/AMonItor/bridge/internal/store"
	"github.com/HsiangNianian/AMonItor/bridge/internal/ws"
)

func main() {
	configPath := flag.String("config", os.Getenv("BRIDGE_CONFIG"), "path to JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger(os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("bridge failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rt, profile, reg, err := loadHost(cfg.Host)
	if err != nil {
		return err
	}
	logger.Info("host runtime loaded", "version", rt.Version(), "nms", profile.Namespaces[host.NamespaceServer])

	bus := event.NewBus(logger)
	if len(cfg.Intercept.BlockedKinds) > 0 {
		bus.Register(event.BlockKinds(cfg.Intercept.BlockedKinds...))
		logger.Info("blocking packet kinds", "kinds", cfg.Intercept.BlockedKinds)
	}
	env := &packet.Env{
		Types:       resolver.New(reg, profile.Namespaces, logger),
		Builder:     construct.New(logger),
		Channel:     dispatch.New(profile.PipelinePath, logger),
		Interceptor: bus,
		Log:         logger,
	}

	hub := ws.NewHub(st, env, rt, ws.Options{
		PanelAuthToken:   cfg.Server.PanelAuthToken,
		SessionAuthToken: cfg.Server.SessionAuthToken,
		Logger:           logger,
	})
	if cfg.Client.Enabled {
		interval := time.Duration(cfg.Client.ReconnectIntervalSeconds) * time.Second
		for _, up := range cfg.Client.Upstreams {
			hub.StartManagedUpstream(ctx, up.EndpointID, up.URL, up.AuthToken, interval)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.SessionPath, hub.HandleSession)
	mux.HandleFunc(cfg.Server.PanelPath, hub.HandlePanel)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge listening", "addr", cfg.Server.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("bridge shutting down")
	return srv.Shutdown(shutdownCtx)
}

const sqlitePruneInterval = 10 * time.Minute

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.Driver {
	case "redis":
		st := store.NewRedisStore(cfg.RedisAddr)
		logger.Info("use redis store", "addr", cfg.RedisAddr)
		return st, func() { _ = st.Close() }, nil
	case "sqlite":
		st, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store failed: %w", err)
		}
		logger.Info("use sqlite store", "path", cfg.SQLitePath)
		pruneCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			st.PruneEvery(pruneCtx, sqlitePruneInterval, logger)
		}()
		return st, func() {
			cancel()
			<-done
			_ = st.Close()
		}, nil
	default:
		logger.Info("use memory store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

func loadHost(cfg config.HostConfig) (host.Runtime, host.Profile, *host.Registry, error) {
	rt, err := host.Select(cfg.Version, v110r1.Runtime{}, v112r1.Runtime{})
	if err != nil {
		return nil, host.Profile{}, nil, err
	}
	profile := rt.DefaultProfile()
	if cfg.ProfilePath != "" {
		over, err := host.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return nil, host.Profile{}, nil, err
		}
		profile = profile.Merge(over)
	}
	if err := profile.Validate(); err != nil {
		return nil, host.Profile{}, nil, err
	}

	reg := host.NewRegistry()
	if err := rt.Install(reg); err != nil {
		return nil, host.Profile{}, nil, fmt.Errorf("install host %s failed: %w", rt.Version(), err)
	}
	return rt, profile, reg, nil
}
