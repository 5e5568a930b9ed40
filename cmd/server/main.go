package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/orientation-scheduler/pkg/auth"
	"github.com/arnavshah/orientation-scheduler/pkg/catalog"
	"github.com/arnavshah/orientation-scheduler/pkg/config"
	"github.com/arnavshah/orientation-scheduler/pkg/database"
	"github.com/arnavshah/orientation-scheduler/pkg/handlers"
	"github.com/arnavshah/orientation-scheduler/pkg/logger"
	"github.com/arnavshah/orientation-scheduler/pkg/metrics"
)

func main() {
	log := logger.New("server")
	if err := run(); err != nil {
		log.Errorf("server: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env if it exists
	config.LoadDotEnv()
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	cfg.Apply()
	gin.SetMode(cfg.Server.GinMode)
	log := logger.New("server")

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(cfg.Auth, log)
	if err := authSvc.EnsureAdminExists(db); err != nil {
		log.Warnf("ensure admin: %v", err)
	}
	recorder, err := metrics.NewRecorder()
	if err != nil {
		return err
	}

	h := &handlers.Handler{
		Store:    database.NewStore(db),
		Auth:     authSvc,
		Catalog:  catalog.Default(),
		Recorder: recorder,
		Log:      logger.New("http"),
		MaxHours: cfg.Scheduler.MaxHours,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		return sqlDB.Close()
	}
	return nil
}
