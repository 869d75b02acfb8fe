package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ai-check/internal/fusion"
	"github.com/example/ai-check/internal/repository"
	"github.com/example/ai-check/internal/system"
	"github.com/example/ai-check/internal/usecase"
)

// MaxUploadSize is the default request body limit for image uploads.
const MaxUploadSize = 16 << 20

// DetectionService classifies uploaded images.
type DetectionService interface {
	Detect(ctx context.Context, userID, filename string, body io.Reader) (string, fusion.Verdict, error)
	MetricsSummary() *usecase.MetricsSummary
}

// AccountService registers and authenticates users.
type AccountService interface {
	Signup(ctx context.Context, username, email, password string) (*repository.User, error)
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
}

// StatsSampler reports process statistics for the health endpoint.
type StatsSampler interface {
	Sample(ctx context.Context) (system.ProcessStats, error)
}

// Options tunes the routes registered by RegisterRoutes.
type Options struct {
	MaxUploadSize int64
	StaticDir     string
	ModelSource   string
	Stats         StatsSampler
	Logger        *zap.Logger
}

type handler struct {
	detection DetectionService
	accounts  AccountService
	opts      Options
	logger    *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, detection DetectionService, accounts AccountService, authMiddleware gin.HandlerFunc, opts Options) {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = MaxUploadSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		detection: detection,
		accounts:  accounts,
		opts:      opts,
		logger:    logger.Named("http"),
	}

	router.Use(cors())

	router.GET("/health", h.health)

	api := router.Group("/api")
	api.POST("/signup", h.signup)
	api.POST("/login", h.login)
	api.POST("/detect", authMiddleware, h.detect)
	api.GET("/metrics", authMiddleware, h.metrics)

	router.NoRoute(h.spa)
}

func (h *handler) health(c *gin.Context) {
	body := gin.H{"status": "ok", "model_source": h.opts.ModelSource}
	if h.opts.Stats != nil {
		stats, err := h.opts.Stats.Sample(c.Request.Context())
		if err != nil {
			h.logger.Warn("failed to sample process stats", zap.Error(err))
		} else {
			body["process"] = stats
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.detection.MetricsSummary())
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// spa serves files from the static directory and falls back to index.html
// so client-side routes resolve.
func (h *handler) spa(c *gin.Context) {
	method := c.Request.Method
	if h.opts.StaticDir == "" || (method != http.MethodGet && method != http.MethodHead) || strings.HasPrefix(c.Request.URL.Path, "/api/") {
		errorJSON(c, http.StatusNotFound, "Not found")
		return
	}

	rel := path.Clean("/" + c.Request.URL.Path)
	if rel != "/" {
		candidate := filepath.Join(h.opts.StaticDir, filepath.FromSlash(rel))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			c.File(candidate)
			return
		}
	}

	index := filepath.Join(h.opts.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		errorJSON(c, http.StatusNotFound, "Not found")
		return
	}
	c.File(index)
}

func errorJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": message})
}
