package main

import (
	"context"

	"trivia-live-backend/internal/catalog"
	"trivia-live-backend/internal/config"
	"trivia-live-backend/internal/database"
	"trivia-live-backend/internal/game"
	"trivia-live-backend/internal/handlers"
	"trivia-live-backend/internal/logging"
	"trivia-live-backend/internal/middleware"
	"trivia-live-backend/internal/services"
	"trivia-live-backend/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()
	catalogService := catalog.NewService(db)
	authService := services.NewAuthService(db, cfg.JWTSecret)

	controller := game.NewController(hub, catalogService, clockwork.NewRealClock())
	if settings := handlers.LoadSettings(db); settings != nil {
		controller.UpdateSettings(settings)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go controller.Run(ctx)

	authHandler := handlers.NewAuthHandler(authService)
	questionHandler := handlers.NewQuestionHandler(catalogService, controller)
	settingsHandler := handlers.NewSettingsHandler(db, controller)
	wsHandler := handlers.NewWSHandler(hub, controller)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/ws", wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		api.GET("/questions", questionHandler.List)
		api.POST("/questions", middleware.JWTAuth(authService), questionHandler.Replace)

		api.GET("/settings", settingsHandler.GetSettings)
		api.PUT("/settings", middleware.JWTAuth(authService), settingsHandler.UpdateSettings)
	}

	log.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
