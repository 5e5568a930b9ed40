package handlers

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/orientation-scheduler/pkg/auth"
	"github.com/arnavshah/orientation-scheduler/pkg/catalog"
	"github.com/arnavshah/orientation-scheduler/pkg/database"
	"github.com/arnavshah/orientation-scheduler/pkg/logger"
	"github.com/arnavshah/orientation-scheduler/pkg/metrics"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

//go:embed static/*
var staticEmbed embed.FS

// Handler contains dependencies for the route handlers
type Handler struct {
	Store    *database.Store
	Auth     *auth.Service
	Catalog  *catalog.Catalog
	Recorder *metrics.Recorder
	Log      logger.Logger
	MaxHours float64
}

func (h *Handler) log() logger.Logger {
	if h.Log == nil {
		return logger.NopLogger{}
	}
	return h.Log
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(h.log()))

	r.StaticFS("/static", h.GetStaticFS())
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	if h.Recorder != nil {
		r.GET("/metrics", gin.WrapH(h.Recorder.Handler()))
	}

	// Read-only views of the latest persisted run
	public := r.Group("/api")
	{
		public.GET("/event-staffing", h.EventStaffing)
		public.GET("/leader-assignments", h.LeaderAssignments)
		public.GET("/summary", h.Summary)
		public.GET("/leaders", h.Leaders)
		public.GET("/events", h.Events)
		public.GET("/catalog", h.CatalogSummary)
		public.GET("/lookup/*name", h.Lookup)
		public.GET("/event/:name/leaders", h.EventLeaders)
		public.GET("/leader/:email", h.LeaderDetails)
	}

	r.GET("/admin", h.AdminInterface)
	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.RateLimitMiddleware(), h.ScheduleJSON)
		api.POST("/schedule/csv", h.RateLimitMiddleware(), h.ScheduleCSV)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key and tracks its last use.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		apiKey, err := h.Store.TouchKey(c.Request.Context(), key, userID)
		if errors.Is(err, database.ErrKeyRevoked) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key has been revoked"})
			return
		}
		if err != nil {
			h.log().Errorf("touch api key %s: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load API key"})
			return
		}

		c.Set("apiKey", apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// RateLimitMiddleware rejects scheduling calls once the key has used its
// daily allowance. It must run after APIKeyMiddleware.
func (h *Handler) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get("apiKey")
		if !ok {
			c.Next()
			return
		}
		apiKey := raw.(*database.APIKey)

		used, err := h.Store.RequestsOn(c.Request.Context(), apiKey.ID, database.UsageDate(time.Now()))
		if err != nil {
			h.log().Errorf("usage for key %d: %v", apiKey.ID, err)
		} else if apiKey.RateLimit > 0 && used >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily request limit reached"})
			return
		}
		c.Next()
	}
}

// recordUsage bumps the calling key's counters. Failures are logged only.
func (h *Handler) recordUsage(c *gin.Context, events, leaders int) {
	raw, ok := c.Get("apiKey")
	if !ok {
		return
	}
	apiKey := raw.(*database.APIKey)
	if err := h.Store.RecordUsage(c.Request.Context(), apiKey.ID, events, leaders); err != nil {
		h.log().Warnf("record usage for key %d: %v", apiKey.ID, err)
	}
}

// storeError maps store errors onto HTTP statuses.
func (h *Handler) storeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, database.ErrNoRun):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No schedule has been generated yet"})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	default:
		h.log().Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func optionalFloat(c *gin.Context, name string) (*float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New("invalid " + name + ": " + raw)
	}
	return &v, nil
}

func optionalBool(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New("invalid " + name + ": " + raw)
	}
	return &v, nil
}

// AdminInterface serves the admin web interface from embedded files
func (h *Handler) AdminInterface(c *gin.Context) {
	if err := h.Auth.EnsureAdminExists(h.Store.DB().WithContext(c.Request.Context())); err != nil {
		h.log().Warnf("ensure admin: %v", err)
	}

	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "static/index.html not found in embedded FS"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
