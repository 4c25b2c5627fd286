package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/room-relay/backend/api/handlers"
	"github.com/room-relay/backend/internal/auth"
	"github.com/room-relay/backend/internal/config"
	"github.com/room-relay/backend/internal/db"
	"github.com/room-relay/backend/internal/logger"
	"github.com/room-relay/backend/internal/presence"
	"github.com/room-relay/backend/internal/repository"
	"github.com/room-relay/backend/internal/session"
	"github.com/room-relay/backend/internal/storage"
	"github.com/room-relay/backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()

	// Ensure data directories exist
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.MediaRoot, filepath.Dir(cfg.FailureLog)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	// Initialize database
	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize repositories and blob storage
	chatRepo := repository.NewChatRepository(database)
	recordingRepo := repository.NewRecordingRepository(database)

	blobs, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	journal, err := logger.NewFailureJournal(cfg.FailureLog)
	if err != nil {
		log.Fatalf("Failed to open failure journal: %v", err)
	}

	// Presence and fan-out are process local unless Redis is configured
	var (
		registry presence.Registry = presence.NewMemoryRegistry()
		hub      ws.Broadcaster    = ws.NewRoomHub()
		relay    *ws.RedisRelay
		rdb      *redis.Client
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		relay = ws.NewRedisRelay(rdb, cfg.RedisPrefix, ws.NewRoomHub())
		if err := relay.Start(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to start Redis relay: %v", err)
		}
		cancel()

		registry = presence.NewRedisRegistry(rdb, cfg.RedisPrefix)
		hub = relay
		log.Printf("Using Redis channel layer at %s", opts.Addr)
	}

	// Initialize session manager
	sessionManager := session.NewManager(session.Deps{
		Hub:      hub,
		Presence: registry,
		Store:    chatRepo,
		Journal:  journal,
	})

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:     cfg.JWTSecret,
		TokenDuration: cfg.TokenDuration,
		Issuer:        cfg.JWTIssuer,
	})

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(sessionManager, ws.NewOriginChecker(cfg.AllowedOrigins), cfg.MaxMessageSize)
	roomHandler := handlers.NewRoomHandler(chatRepo, registry, cfg.HistoryLimit)
	mediaHandler := handlers.NewMediaHandler(blobs, chatRepo)
	recordingHandler := handlers.NewRecordingHandler(blobs, recordingRepo)
	uploadHandler := handlers.NewUploadHandler(storage.NewChunkAssembler(blobs, "uploads"))

	// Initialize Gin router
	r := gin.Default()
	r.Use(corsMiddleware())
	r.Use(auth.Middleware(jwtManager))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": sessionManager.ActiveCount(),
		})
	})

	r.Static(cfg.MediaURL, cfg.MediaRoot)

	chatHandler.RegisterRoutes(r.Group("/ws"))

	// API routes
	api := r.Group("/api")
	{
		// Uploads do not require a login
		mediaHandler.RegisterRoutes(api)
		recordingHandler.RegisterRoutes(api)
		uploadHandler.RegisterRoutes(api)

		roomHandler.RegisterRoutes(api.Group("", auth.RequireIdentity()))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"relay": func(ctx context.Context) error {
				log.Println("Shutting down server...")
				// hijacked WebSocket connections are not tracked by Shutdown
				sessionManager.Close()
				err := srv.Shutdown(ctx)
				if relay != nil {
					relay.Close()
				}
				if rdb != nil {
					rdb.Close()
				}
				journal.Close()
				db.CloseDB()
				return err
			},
		},
	)

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
