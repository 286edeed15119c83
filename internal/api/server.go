// Package api exposes the HTTP surface: wallet login, voice commands,
// deployment status and listing.
package api

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/voxdeploy/voxdeploy/config"
	"github.com/voxdeploy/voxdeploy/internal/database"
	"github.com/voxdeploy/voxdeploy/internal/intent"
	"github.com/voxdeploy/voxdeploy/internal/lifecycle"
	"github.com/voxdeploy/voxdeploy/internal/voice"
	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

// Verifier checks a wallet's ownership proof.
type Verifier interface {
	Verify(ctx context.Context, walletAddress, nonce, signature string) bool
}

// Sessions issues and validates session tokens.
type Sessions interface {
	Create(ctx context.Context, walletAddress string) (string, error)
	Validate(ctx context.Context, sessionID string) (string, error)
}

// Deployments is the read side of the lifecycle surface.
type Deployments interface {
	Status(ctx context.Context, deploymentID string) (string, error)
	List(ctx context.Context, walletAddress string, page, perPage int) (*lifecycle.Page, error)
}

// CommandRouter executes a structured command for a wallet.
type CommandRouter interface {
	Route(ctx context.Context, cmd intent.Command, walletAddress string) string
}

// LoginLimiter bounds login attempts per client IP.
type LoginLimiter interface {
	Allowed(ctx context.Context, ip string) (bool, error)
	Record(ctx context.Context, ip string) error
}

// Server wires the HTTP handlers to their backing services.
type Server struct {
	cfg         *config.Config
	log         *logger.Logger
	verifier    Verifier
	sessions    Sessions
	deployments Deployments
	router      CommandRouter
	transcriber voice.Transcriber
	limiter     LoginLimiter
	db          *database.DB
	redis       *redis.Client
}

// NewServer creates the API server. The rate limiter, transcriber,
// database and redis handles may be nil; the corresponding features
// degrade rather than fail.
func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	verifier Verifier,
	sessions Sessions,
	deployments Deployments,
	router CommandRouter,
	transcriber voice.Transcriber,
	limiter LoginLimiter,
	db *database.DB,
	redisClient *redis.Client,
) *Server {
	return &Server{
		cfg:         cfg,
		log:         log,
		verifier:    verifier,
		sessions:    sessions,
		deployments: deployments,
		router:      router,
		transcriber: transcriber,
		limiter:     limiter,
		db:          db,
		redis:       redisClient,
	}
}

// Routes builds the gin engine with middleware and all endpoints.
func (s *Server) Routes() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(throttle(rate.NewLimiter(rate.Limit(100), 200)))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Session-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", s.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/login", s.Login)

	authed := router.Group("/")
	authed.Use(s.sessionAuth())
	{
		authed.POST("/voice", s.Voice)
		authed.GET("/status/:deployment_id", s.Status)
		authed.GET("/deployments", s.ListDeployments)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"msg": "Not found"})
	})

	return router
}
