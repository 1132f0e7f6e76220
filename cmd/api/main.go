package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-manager/configs"
	"task-manager/internal/api/v1/handlers"
	"task-manager/internal/cache"
	"task-manager/internal/repository"
	"task-manager/internal/server"
	"task-manager/internal/service"
	myws "task-manager/internal/websocket"
	"task-manager/pkg/crypto"
	"task-manager/pkg/database"
	"task-manager/pkg/logger"
	"task-manager/pkg/mailer"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		logger.ErrorLogger.Error("Application stopped", zap.Error(err))
		logger.SyncLoggers()
		log.Fatal(err)
	}
}

func run() error {
	// Load config
	cfg, err := configs.LoadConfig()
	if err != nil {
		return err
	}

	// Inisialisasi logger
	if err := logger.InitLoggers(logger.Options{Dir: cfg.LogDir, Stdout: cfg.LogStdout}); err != nil {
		return err
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, tasks, closeDB, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	// Redis hanya untuk cache avatar, aplikasi tetap jalan tanpa Redis
	var avatars cache.AvatarCache = cache.Noop{}
	if cfg.RedisHost != "" {
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.SystemLogger.Warn("Redis unavailable, avatar cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			avatars = cache.NewRedisAvatarCache(client, cfg.AvatarCacheTTL)
			logger.SystemLogger.Info("Redis Connected")
		}
	}

	var m mailer.Mailer
	if cfg.SendGridAPIKey != "" {
		m = mailer.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom)
	} else {
		m = mailer.NewLogMailer(logger.SystemLogger)
	}

	hasher, err := crypto.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	auth, err := service.NewTokenAuthenticator(users, cfg.JWTSecret)
	if err != nil {
		return err
	}

	hub := myws.NewHub()
	go hub.Run(ctx)

	app := server.New(server.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		BodyLimit:       int(cfg.AvatarMaxBytes) + 1<<20,
	}, handlers.Deps{
		Users:          service.NewCredentialStore(users, hasher, m, avatars),
		Auth:           auth,
		Tasks:          service.NewTaskStore(tasks, hub),
		Hub:            hub,
		AvatarMaxBytes: cfg.AvatarMaxBytes,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.SystemLogger.Info("Application ready", zap.Int("port", cfg.Port))
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.SystemLogger.Info("Shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func openStorage(ctx context.Context, cfg configs.Config) (repository.UserRepository, repository.TaskRepository, func(), error) {
	if cfg.StorageDriver == configs.StorageMemory {
		logger.SystemLogger.Warn("Using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore()
		return store.Users(), store.Tasks(), func() {}, nil
	}

	db, err := database.ConnectDB(ctx, cfg, cfg.DBName)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.SystemLogger.Info("Database Connected")

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return repository.NewPostgresUserRepository(db), repository.NewPostgresTaskRepository(db), closer(db), nil
}

func closer(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.ErrorLogger.Error("Error closing database", zap.Error(err))
		}
	}
}
