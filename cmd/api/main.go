package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"code-reveal-backend/internal/config"
	"code-reveal-backend/internal/db"
	"code-reveal-backend/internal/handlers"
	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/middleware"
	"code-reveal-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(cfg.Debug)
	appLog.Infof("Starting with %s", cfg.DebugString())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		appLog.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	database, err := db.Open(cfg)
	if err != nil {
		appLog.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		appLog.Fatalf("Failed to migrate database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		appLog.Fatalf("Failed to get database handle: %v", err)
	}
	defer sqlDB.Close()

	secret, err := services.NewSecretStore(cfg.SecretCode)
	if err != nil {
		appLog.Fatalf("Invalid secret code: %v", err)
	}
	if cfg.RecaptchaSecret == "" {
		appLog.Errorf("RECAPTCHA_SECRET_KEY is not set, every submission will be rejected")
	}

	hub := handlers.NewWebSocketHub(appLog)
	go hub.Run(ctx)

	ledger := services.NewGormLedger(database)
	history := services.NewGormMarketHistory(database)
	captcha := services.NewRecaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaVerifyURL, cfg.RequestTimeout)
	oracle := services.NewRaydiumSolanaOracle(cfg.TokenMint, cfg.PriceAPIURL, cfg.SolanaRPCURL, cfg.RequestTimeout)
	jwtService := services.NewJWTService(cfg)

	revealRules := services.DefaultRevealRules
	if secret.Len() <= revealRules.HiddenChars {
		appLog.Fatalf("Secret code must be longer than %d characters", revealRules.HiddenChars)
	}
	engine := services.NewRevealEngine(redisService, secret, revealRules, hub, appLog)

	gameRules := services.DefaultGameRules
	gameRules.RequireFullReveal = cfg.RequireFullReveal
	gameRules.RequestTimeout = cfg.RequestTimeout
	game := services.NewGameService(services.GameServiceDeps{
		Redis:       redisService,
		Ledger:      ledger,
		Captcha:     captcha,
		Secret:      secret,
		Engine:      engine,
		History:     history,
		Broadcaster: hub,
		Log:         appLog,
	}, gameRules)

	market := services.NewMarketService(oracle, history, engine, hub, cfg.MarketPollInterval, cfg.RequestTimeout, appLog)
	go market.Run(ctx)

	ipLimiter := middleware.NewIPRateLimiter(cfg.IPRateRPS, cfg.IPRateBurst, appLog)
	go ipLimiter.RunCleanup(ctx, 5*time.Minute, 10*time.Minute)

	gameHandler := handlers.NewGameHandler(game, appLog)
	adminHandler := handlers.NewAdminHandler(market, engine, appLog)
	wsHandler := handlers.NewWebSocketHandler(hub, game, appLog)
	healthHandler := handlers.NewHealthHandler(cfg.RequestTimeout, map[string]handlers.HealthCheck{
		"redis":    redisService.Ping,
		"database": sqlDB.PingContext,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression, ginGzip.WithExcludedPaths([]string{"/ws"})))

	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		appLog.Warnf("Failed to set trusted proxies: %v", err)
	}

	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/ws", wsHandler.HandleWebSocket)

	api := router.Group("/api")
	api.Use(middleware.NoStore())
	{
		marketGroup := api.Group("/market")
		marketGroup.Use(middleware.RateLimitMiddleware(ipLimiter))
		{
			marketGroup.GET("/state", gameHandler.GetState)
			marketGroup.POST("/submit", gameHandler.SubmitCode)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(jwtService))
		{
			admin.POST("/market/sample", adminHandler.InjectSample)
			admin.POST("/game/active", adminHandler.SetGameActive)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		appLog.Infof("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	appLog.Infof("Shutdown signal received, shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Warnf("HTTP server Shutdown: %v", err)
	}
	appLog.Infof("Server shutdown complete")
}
