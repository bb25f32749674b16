package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"overview_back/accounts"
	"overview_back/analytics"
	"overview_back/authorization"
	"overview_back/billing"
	"overview_back/remotedb"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// requestID tags every request with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	origins := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS"))
	if origins == "" {
		origins = "http://localhost:3000"
	}

	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = strings.Split(origins, ",")
	cfg.AllowCredentials = true
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	return cors.New(cfg)
}

func main() {
	mustLoadEnv()
	setupLogging()

	r := gin.Default()
	r.Use(requestID(), corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authModule, err := authorization.RegisterRoutes(r)
	if err != nil {
		log.Fatal().Err(err).Msg("register auth routes")
	}
	guard := authModule.Guard()

	manager := remotedb.NewManager(os.Getenv("ENV_FILE"))
	remotedb.RegisterRoutes(r, guard, manager)

	// A URL configured before startup is activated immediately so the
	// analytics endpoints work without an operator round trip.
	if url := strings.TrimSpace(os.Getenv(remotedb.EnvKey)); url != "" {
		if err := manager.Activate(url); err != nil {
			log.Warn().Err(err).Msg("could not activate configured remote database")
		}
	}

	billingClient := billing.NewClientFromEnv()

	analytics.RegisterRoutes(r, guard, manager)
	accounts.RegisterRoutes(r, guard, manager, billingClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("start server")
		}
	}()
	log.Info().Str("port", port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	manager.Shutdown()
	log.Info().Msg("server stopped")
}
