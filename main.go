package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/authkit/backend/internal/client"
	"github.com/authkit/backend/internal/config"
	"github.com/authkit/backend/internal/db"
	"github.com/authkit/backend/internal/handler"
	"github.com/authkit/backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Main] no .env file loaded: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx)
	if err != nil {
		log.Fatalf("[Main] postgres init failed: %v", err)
	}
	defer pool.Close()

	store := &db.Postgres{Pool: pool}
	if err := store.EnsureUserSchema(ctx); err != nil {
		log.Fatalf("[Main] user schema migration failed: %v", err)
	}

	authService, err := service.NewAuthService(store, cfg.Auth)
	if err != nil {
		log.Fatalf("[Main] auth service init failed: %v", err)
	}

	mailer := client.NewMailClient(cfg.Mail)
	if !mailer.IsConfigured() {
		log.Printf("[Main] mail relay not configured; password-reset mails will fail")
	}
	resetService := service.NewResetService(store, mailer, cfg.Client.BaseURL)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(splitOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")), true))

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/openapi.json", handler.OpenAPIDoc)

	authHandler := handler.NewAuthHandler(authService, resetService)
	auth := router.Group("/auth")
	{
		auth.GET("", authHandler.Index)
		auth.POST("/signup", authHandler.SignUp)
		auth.POST("/signin", authHandler.SignIn)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh_token", authHandler.Refresh)
		auth.GET("/protected", handler.AuthMiddleware(store, authService.AccessSecret()), authHandler.Protected)
		auth.POST("/send-password-reset-email", authHandler.SendPasswordResetEmail)
		auth.POST("/reset-password/:id/:token", authHandler.ResetPassword)
	}

	addr := ":" + cfg.Server.Port
	log.Printf("[Main] listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("[Main] server stopped: %v", err)
	}
}

func splitOrigins(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, ",")
}
