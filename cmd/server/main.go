package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/api"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/auth"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/config"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/service"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/source"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/storage"
)

// server implements api.App.
type server struct {
	logger   internal.Logger
	trackers *service.Registry
}

func (s *server) Logger() internal.Logger     { return s.logger }
func (s *server) Trackers() *service.Registry { return s.trackers }

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	if cfg.DBType == "file" {
		if err := os.MkdirAll(filepath.Dir(cfg.FileSnapshots), 0755); err != nil {
			logger.Fatalf("failed to create data dir: %v", err)
		}
	}

	var snapRepo storage.SnapshotRepository
	var goalRepo storage.GoalRepository
	switch cfg.DBType {
	case "postgres":
		snapRepo, goalRepo, err = storage.NewPostgresRepositories(cfg.DBDSN, logger)
	default:
		snapRepo, goalRepo, err = storage.NewFileRepositories(cfg.FileSnapshots, cfg.FileGoals, logger)
	}
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}

	var live source.LiveProvider
	if cfg.ProviderURL != "" {
		live = source.NewHTTPLiveProvider(cfg.ProviderURL, logger)
	}

	loc := cfg.Location()
	trackers := service.NewRegistry(func(user internal.User) service.Options {
		return service.Options{
			User:             user,
			Logger:           logger,
			Live:             live,
			Snapshots:        snapRepo,
			Goals:            goalRepo,
			Location:         loc,
			DebounceInterval: cfg.DebounceInterval,
			RefreshInterval:  cfg.RefreshInterval,
			RefreshTimeout:   cfg.RefreshTimeout,
			ZeroGuardWindow:  cfg.ZeroGuardWindow,
		}
	})

	var provider auth.Provider
	if cfg.Env == "development" {
		provider = auth.NewLocalAuthProvider(cfg.LocalToken, logger)
	} else {
		provider = auth.NewRemoteAuthProvider(cfg.AuthURL, logger)
	}

	app := &server{logger: logger, trackers: trackers}
	r := api.NewRouter(app, provider, cfg)

	go func() {
		logger.Infof("Server running on %s", cfg.Listen)
		if err := r.Run(cfg.Listen); err != nil {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	trackers.Close()
	if closer, ok := snapRepo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Errorf("error closing storage: %v", err)
		}
	}
}
