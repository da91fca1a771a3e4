package routes

import (
	"log/slog"
	"net/http"
	"time"

	"spotfix/controllers"
	"spotfix/middlewares"
	"spotfix/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the route groups need.
type Handlers struct {
	Issues *controllers.IssueController
	Auth   *controllers.AuthController
	Users  *controllers.UserController
	Tokens *utils.TokenManager
	// CreateLimit gates issue creation; see middlewares.IssueRateLimiter.
	CreateLimit gin.HandlerFunc
}

// Options controls the engine-level middleware.
type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// UploadDir is served under /uploads when set.
	UploadDir string
}

// NewRouter builds the gin engine with every route group registered.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	if h.CreateLimit == nil {
		h.CreateLimit = func(c *gin.Context) { c.Next() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(opts.Logger))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	AuthRoutes(r, h)
	IssueRoutes(r, h)
	UserRoutes(r, h)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	// Credentials are only allowed with an explicit origin list.
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
