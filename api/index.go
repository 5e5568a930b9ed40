package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/orientation-scheduler/pkg/auth"
	"github.com/arnavshah/orientation-scheduler/pkg/catalog"
	"github.com/arnavshah/orientation-scheduler/pkg/config"
	"github.com/arnavshah/orientation-scheduler/pkg/database"
	"github.com/arnavshah/orientation-scheduler/pkg/handlers"
	"github.com/arnavshah/orientation-scheduler/pkg/logger"
	"github.com/arnavshah/orientation-scheduler/pkg/metrics"
)

var (
	once    sync.Once
	r       http.Handler
	initErr error
)

func setup() (http.Handler, error) {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadDotEnv()
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	cfg.Apply()
	gin.SetMode(gin.ReleaseMode)
	log := logger.New("vercel")

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	authSvc := auth.NewService(cfg.Auth, log)
	if err := authSvc.EnsureAdminExists(db); err != nil {
		log.Warnf("ensure admin: %v", err)
	}
	recorder, err := metrics.NewRecorder()
	if err != nil {
		return nil, err
	}

	return handlers.NewRouter(&handlers.Handler{
		Store:    database.NewStore(db),
		Auth:     authSvc,
		Catalog:  catalog.Default(),
		Recorder: recorder,
		Log:      log,
		MaxHours: cfg.Scheduler.MaxHours,
	}), nil
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	once.Do(func() { r, initErr = setup() })
	if initErr != nil {
		http.Error(w, "service unavailable: "+initErr.Error(), http.StatusServiceUnavailable)
		return
	}
	r.ServeHTTP(w, req)
}
