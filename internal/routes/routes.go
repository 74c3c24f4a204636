package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/saeid-a/CourseHubBack/internal/config"
	"github.com/saeid-a/CourseHubBack/internal/handlers"
	"github.com/saeid-a/CourseHubBack/internal/live"
	"github.com/saeid-a/CourseHubBack/internal/middleware"
	"github.com/saeid-a/CourseHubBack/internal/repository"
	"github.com/saeid-a/CourseHubBack/internal/services"
	chatws "github.com/saeid-a/CourseHubBack/internal/websocket"
)

// RegisterRoutes wires the API onto app and returns the websocket hub so
// the caller can close open connections on shutdown.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, broker live.Broker) *chatws.Hub {
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	retry := services.RetryPolicy{
		Attempts: cfg.NotifyRetryTimes,
		Delay:    services.DefaultRetryPolicy.Delay,
	}

	identityService := services.NewIdentityService(userRepo, cfg.AdminEmail)
	router := services.NewNotificationRouter(
		messageRepo,
		notificationRepo,
		courseRepo,
		broker,
		services.TargetingFor(cfg.NotifyTargeting),
	)
	chatService := services.NewChatService(messageRepo, broker, router, cfg.LiveBufferSize)
	notificationService := services.NewNotificationService(notificationRepo, broker, retry, cfg.LiveBufferSize)
	progressService := services.NewProgressService(progressRepo)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler()
	chatHandler := handlers.NewChatHandler(chatService, notificationService, chatHub, identityService, cfg.JWTSecret)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	progressHandler := handlers.NewProgressHandler(progressService)

	api := app.Group("/api")

	// Browsers cannot set headers on a websocket handshake, so /ws takes the
	// token from the query string. WebSocketAuth is the only auth on this
	// path: the upgrade handler ends the chain before the /v1 group below.
	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret, identityService))

	authProtected.Get("/me", authHandler.Me)

	courses := authProtected.Group("/courses")
	courses.Get("/:id/messages", chatHandler.GetMessages)
	courses.Post("/:id/messages", chatHandler.SendMessage)
	courses.Get("/:id/progress", progressHandler.GetProgress)
	courses.Put("/:id/lessons/:index/watched", progressHandler.MarkWatched)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", notificationHandler.ListNotifications)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)
	notifications.Put("/:id/read", notificationHandler.ToggleRead)

	return chatHub
}

// NewBroker picks the Redis-backed broker when a client is configured and
// the in-process hub otherwise.
func NewBroker(cfg *config.Config, redisClient *redis.Client) live.Broker {
	if redisClient != nil {
		return live.NewRedisBroker(redisClient, cfg.LiveBufferSize)
	}
	hub := live.NewHub(cfg.LiveBufferSize)
	go hub.Run()
	return hub
}
