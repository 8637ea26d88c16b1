package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chat-connect/internal/chat"
	"chat-connect/internal/config"
	"chat-connect/internal/db"
	"chat-connect/internal/message"
	myMiddleware "chat-connect/internal/middleware"
	"chat-connect/internal/presence"
	"chat-connect/internal/user"
	"chat-connect/internal/ws"
)

func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	if cfg.DBDSN == "" {
		logger.Fatal().Msg("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is not set")
	}

	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()
	logger.Info().Msg("connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Msg("database schema initialized")

	// Redis backs the auth rate limiter only; without it the limiter is a
	// pass-through.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisClient.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Users
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService, logger)

	// Realtime plumbing
	tracker := presence.NewTracker[int64]()
	dispatcher := ws.NewDispatcher(logger)
	relay := ws.NewRelay(userRepo, dispatcher)

	// Conversations
	chatRepo := chat.NewRepository(database.Conn)
	chatService := chat.NewService(chatRepo, userRepo, tracker, logger)
	chatHandler := chat.NewHandler(chatService, logger)

	// Messages
	messageRepo := message.NewRepository(database.Conn)
	messageService := message.NewService(messageRepo, chatService, tracker, userRepo, dispatcher, logger)
	messageHandler := message.NewHandler(messageService, logger)

	gate := ws.NewGate(dispatcher, tracker, messageService, relay, cfg.AllowedOrigins, logger)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService, logger)

	var limiter *myMiddleware.RateLimiter
	if cfg.RateLimitEnabled && redisClient != nil {
		limiter = myMiddleware.NewRateLimiter(redisClient, logger, 20, time.Minute)
	} else {
		limiter = myMiddleware.NewRateLimiter(nil, logger, 0, 0)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(myMiddleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOriginsOrAll(cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handle)
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", gate.ServeWS)

		r.Get("/api/users/me", userHandler.Me)
		r.Put("/api/users/me/profile-image", userHandler.UpdateProfileImage)
		r.Get("/api/chat/users", chatHandler.Sidebar)
		r.Post("/api/chat/rooms/{userID}", chatHandler.GetOrCreateRoom)
		r.Get("/api/chat/rooms/{roomID}/messages", messageHandler.History)
		r.Post("/api/chat/rooms/{roomID}/read", messageHandler.MarkRead)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting chat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

func allowedOriginsOrAll(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
