package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/voxdeploy/voxdeploy/config"
	"github.com/voxdeploy/voxdeploy/internal/api"
	"github.com/voxdeploy/voxdeploy/internal/auth"
	"github.com/voxdeploy/voxdeploy/internal/database"
	"github.com/voxdeploy/voxdeploy/internal/intent"
	"github.com/voxdeploy/voxdeploy/internal/lifecycle"
	"github.com/voxdeploy/voxdeploy/internal/market"
	"github.com/voxdeploy/voxdeploy/internal/metrics"
	"github.com/voxdeploy/voxdeploy/internal/ratelimit"
	"github.com/voxdeploy/voxdeploy/internal/voice"
	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

const sessionSweepInterval = 10 * time.Minute

func main() {
	log := logger.New("voxdeployd")

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("Configuration loaded",
		"port", cfg.Port,
		"chain_id", cfg.ChainID,
		"wallet", cfg.WalletAddress,
	)

	db, err := database.New(database.Config{
		URL:            cfg.DatabaseURL,
		MaxConnections: 25,
		MaxIdle:        5,
		ConnMaxLife:    5 * time.Minute,
	})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	var limiter api.LoginLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("Invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unreachable, login rate limiting disabled", "error", err)
			redisClient = nil
		} else {
			limiter = ratelimit.NewLimiter(redisClient, cfg.LoginRateLimitPerIP, cfg.LoginRateWindow)
		}
	}

	marketClient := market.NewCLIClient(market.CLIConfig{
		Binary:         cfg.CLIBinary,
		KeyName:        cfg.WalletKeyName,
		KeyringBackend: cfg.KeyringBackend,
		ChainID:        cfg.ChainID,
		NodeRPC:        cfg.NodeRPC,
		NodeREST:       cfg.NodeREST,
		TxTimeout:      cfg.TxTimeout,
		QueryTimeout:   cfg.RequestTimeout,
	}, logger.New("market"))

	resolver := auth.NewLCDResolver(cfg.NodeREST, cfg.RequestTimeout)
	verifier := auth.NewVerifier(cfg.Bech32Prefix, resolver, logger.New("auth"))
	sessions := auth.NewSessionManager(db, cfg.SessionTTL, logger.New("sessions"))

	manager := lifecycle.NewManager(db, marketClient, cfg.Denom, cfg.PricingAmount, logger.New("lifecycle"))
	router := intent.NewRouter(manager, logger.New("intent"))

	var transcriber voice.Transcriber
	if cfg.STTEndpoint != "" {
		transcriber = voice.NewHTTPTranscriber(cfg.STTEndpoint, cfg.RequestTimeout)
	} else {
		log.Warn("No speech endpoint configured, audio commands disabled")
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepSessions(sweepCtx, db, log)

	server := api.NewServer(cfg, logger.New("api"), verifier, sessions,
		manager, router, transcriber, limiter, db, redisClient)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}

// sweepSessions periodically deletes expired sessions so the table does
// not grow without bound.
func sweepSessions(ctx context.Context, db *database.DB, log *logger.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := db.DeleteExpiredSessions(ctx, time.Now().UTC())
			if err != nil {
				log.Warn("Session sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				metrics.SessionsSwept.Add(float64(deleted))
				log.Info("Expired sessions removed", "count", deleted)
			}
		}
	}
}
