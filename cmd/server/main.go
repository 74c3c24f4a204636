package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/saeid-a/CourseHubBack/internal/config"
	"github.com/saeid-a/CourseHubBack/internal/database"
	"github.com/saeid-a/CourseHubBack/internal/routes"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	// 2. Connect to Database and Redis
	if cfg.DBUrl == "" {
		logger.Fatal().Msg("DB_URL is required")
	}
	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := database.ConnectDB(startupCtx, cfg.DBUrl); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.CloseDB()

	if err := database.ConnectRedis(startupCtx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis()

	broker := routes.NewBroker(cfg, database.Redis)
	defer broker.Close()

	// 3. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	// Middleware
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowedOrigins}))
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	chatHub := routes.RegisterRoutes(app, cfg, database.DB, broker)

	// 4. Start Server
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.AppEnv).
			Str("targeting", cfg.NotifyTargeting).
			Bool("redis", database.Redis != nil).
			Msg("Server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server")
	chatHub.Shutdown()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server exited")
}
