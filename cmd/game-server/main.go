package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/wofa4-engine/internal/config"
	"github.com/park285/wofa4-engine/internal/game"
	"github.com/park285/wofa4-engine/internal/httpapi"
	"github.com/park285/wofa4-engine/internal/identity"
	"github.com/park285/wofa4-engine/internal/monitor"
	"github.com/park285/wofa4-engine/internal/msgcat"
	"github.com/park285/wofa4-engine/internal/obslog"
	"github.com/park285/wofa4-engine/internal/stats"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	mgr, err := game.NewManager(cfg.RedisURL)
	if err != nil {
		log.Fatalf("game manager init error: %v", err)
	}

	var recorder stats.Recorder
	if cfg.DatabaseURL != "" {
		repo, err := stats.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("stats repo init error: %v", err)
		}
		defer repo.Close()
		recorder = repo
	} else {
		obslog.L().Warn("no DATABASE_URL, player stats kept in memory")
		recorder = stats.NewMemoryRecorder()
	}
	mgr.AttachRecorder(recorder)

	var ids identity.Resolver
	if cfg.UserAPIURL != "" {
		ids = identity.NewClient(cfg.UserAPIURL, identity.WithTimeout(5*time.Second))
	} else {
		obslog.L().Warn("no USER_API_URL, display names fall back to player ids")
		ids = identity.StaticResolver{}
	}

	cat, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	metrics := monitor.NewMetrics("wofa4")
	mgr.AttachMetrics(metrics)

	api := httpapi.NewServer(mgr, recorder, ids, cat, metrics)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("http_serve_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	_ = mgr.Close()
	obslog.L().Info("shutdown_complete")
}
