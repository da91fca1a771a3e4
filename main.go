package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spotfix/config"
	"spotfix/controllers"
	"spotfix/middlewares"
	"spotfix/repository"
	"spotfix/routes"
	"spotfix/storage"
	"spotfix/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := config.ConnectDB(startCtx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			logger.Warn("disconnect MongoDB", slog.Any("error", err))
		}
	}()
	logger.Info("MongoDB connection established", slog.String("database", cfg.Mongo.Database))

	if err := repository.EnsureIndexes(startCtx, db); err != nil {
		return err
	}

	rdb, err := config.ConnectRedis(startCtx, cfg.Redis)
	if err != nil {
		return err
	}
	// A nil *redis.Client must not reach the limiter as a non-nil interface.
	var limiterClient redis.Cmdable
	if rdb != nil {
		defer rdb.Close()
		limiterClient = rdb
		logger.Info("issue rate limit enabled", slog.Int("daily_limit", cfg.Redis.IssueDailyLimit))
	} else {
		logger.Warn("REDIS_ADDRESS not set, issue rate limit disabled")
	}

	images, uploadDir, err := newImageStore(startCtx, cfg.Upload)
	if err != nil {
		return err
	}

	issueStore := repository.NewMongoIssueStore(db, cfg.Mongo.Transactions, logger)
	userStore := repository.NewMongoUserStore(db)
	tokens := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	production := cfg.IsProduction()

	router := routes.NewRouter(routes.Handlers{
		Issues:      controllers.NewIssueController(issueStore, userStore, images, logger, production),
		Auth:        controllers.NewAuthController(userStore, tokens, logger, production),
		Users:       controllers.NewUserController(userStore, logger, production),
		Tokens:      tokens,
		CreateLimit: middlewares.IssueRateLimiter(limiterClient, cfg.Redis.IssueQueue, cfg.Redis.IssueDailyLimit),
	}, routes.Options{
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins(),
		UploadDir:      uploadDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

// newImageStore returns the configured backend and, for disk, the directory to
// serve under /uploads.
func newImageStore(ctx context.Context, cfg config.UploadConfig) (storage.ImageStore, string, error) {
	if cfg.Backend == "s3" {
		store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
		return store, "", err
	}
	store, err := storage.NewDiskStore(cfg.Dir, "/uploads")
	return store, cfg.Dir, err
}
