package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ajharbinger/pacman-arcade/internal/api"
	"github.com/ajharbinger/pacman-arcade/internal/cache"
	"github.com/ajharbinger/pacman-arcade/internal/database"
	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/internal/middleware"
	"github.com/ajharbinger/pacman-arcade/internal/repository"
	"github.com/ajharbinger/pacman-arcade/internal/services"
	"github.com/ajharbinger/pacman-arcade/pkg/config"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Initialize configuration
	cfg := config.New()
	log := logger.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		log.Debug("No .env file found")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		log.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}

	repos, closeStore := openStore(cfg, log)
	defer closeStore()

	var leaderboardCache services.LeaderboardCache
	if cfg.HasLeaderboardCache() {
		rdb, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Warn("Leaderboard cache disabled", "error", err.Error())
		} else {
			defer rdb.Close()
			leaderboardCache = cache.NewLeaderboardCache(rdb, cfg.LeaderboardCacheTTL, log)
			log.Info("Leaderboard cache enabled", "ttl", cfg.LeaderboardCacheTTL)
		}
	}

	svc := services.NewServices(repos, cfg, leaderboardCache, log)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.GetTrustedProxies()); err != nil {
		log.Fatal("Invalid TRUSTED_PROXIES", err)
	}

	// Add security middleware
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg))
	r.Use(middleware.InputValidationMiddleware(cfg.MaxRequestSize))

	if cfg.EnableRateLimit {
		r.Use(middleware.RateLimitingMiddleware(middleware.NewRateLimiter(cfg.RateLimitPerMinute)))
	}

	// Add recovery middleware
	r.Use(gin.Recovery())

	// Setup API routes
	if err := api.SetupRoutes(r, svc, cfg); err != nil {
		log.Fatal("Failed to setup API routes", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Environment, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shut down", err)
	}
}

// openStore connects the configured store driver and returns a close func
func openStore(cfg *config.Config, log logger.Logger) (*repository.Repositories, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("Using the in-memory store, scores are lost on restart")
		return repository.NewMemoryRepositories(repository.NewMemoryStore()), func() {}
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", err)
	}

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		log.Fatal("Failed to run migrations", err)
	}

	stats := db.GetStats()
	log.Info("Database connected", "max_open", stats.MaxOpenConnections, "max_idle", stats.MaxIdleConns)

	return repository.NewRepositories(db), func() { db.Close() }
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
