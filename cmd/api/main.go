package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/sriramlenka/notekart/internal/api"
	"github.com/sriramlenka/notekart/internal/auth"
	"github.com/sriramlenka/notekart/internal/config"
	"github.com/sriramlenka/notekart/internal/database"
	"github.com/sriramlenka/notekart/internal/model"
	"github.com/sriramlenka/notekart/internal/orders"
	"github.com/sriramlenka/notekart/internal/queue"
	"github.com/sriramlenka/notekart/internal/repository"
	"github.com/sriramlenka/notekart/internal/s3storage"
	"github.com/sriramlenka/notekart/internal/settings"
	"github.com/sriramlenka/notekart/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	users := repository.NewUserRepository(pool)
	notes := repository.NewNoteRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	settingsSvc := settings.NewService(repository.NewSettingsRepository(pool))

	store, err := s3storage.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		log.Fatalf("ensure buckets: %v", err)
	}

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	engine := orders.NewEngine(notes, orderRepo, settingsSvc, &queue.Pruner{Client: queueClient})
	sessions := auth.NewSessionStore(cfg.SessionTTL)
	signer := signing.NewSigner(cfg.SigningSecret)

	if err := seedAdmin(ctx, cfg, users); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	server := api.New(cfg, users, notes, engine, settingsSvc, store, sessions, signer, queueClient)
	if err := server.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}

// seedAdmin ensures the configured admin account exists. Without a password
// configured no admin is created, which is fine for read-only demos.
func seedAdmin(ctx context.Context, cfg *config.Config, users *repository.UserRepository) error {
	if cfg.AdminPassword == "" {
		log.Printf("NOTEKART_ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return users.EnsureAdmin(ctx, &model.User{
		ID:           uuid.NewString(),
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
	})
}
