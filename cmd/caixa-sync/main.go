package main

import (
	"context"
	"encoding/hex"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exd-sistemas/caixa-sync/internal/adapters/driven/exdapi"
	"github.com/exd-sistemas/caixa-sync/internal/adapters/driven/postgres"
	redisadapter "github.com/exd-sistemas/caixa-sync/internal/adapters/driven/redis"
	"github.com/exd-sistemas/caixa-sync/internal/config"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
	"github.com/exd-sistemas/caixa-sync/internal/core/services"
)

var version = "dev"

// stopTimeout bounds the graceful shutdown, including the final state
// cleanup against Redis.
const stopTimeout = 15 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	log.Printf("caixa-sync %s starting", version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	terminals, err := config.LoadTerminals(cfg.CaixasFile)
	if err != nil {
		log.Fatalf("Failed to load terminal definitions: %v", err)
	}
	log.Printf("Loaded %d terminal(s) from %s", len(terminals), cfg.CaixasFile)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize Redis =====
	log.Println("Connecting to Redis...")
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	// ===== Driven adapters =====
	var cipher *redisadapter.StateCipher
	if cfg.StateKey != "" {
		key, err := decodeStateKey(cfg.StateKey)
		if err != nil {
			log.Fatalf("Invalid STATE_SECRET_KEY: %v", err)
		}
		cipher, err = redisadapter.NewStateCipher(key)
		if err != nil {
			log.Fatalf("Invalid STATE_SECRET_KEY: %v", err)
		}
		log.Println("Persisted state sealing enabled")
	}

	stateStore := redisadapter.NewStateStore(redisClient, cipher, logger)

	var lock driven.InstanceLock
	if cfg.LockRequired {
		lock = redisadapter.NewLock(redisClient)
	} else {
		log.Println("Instance lock disabled via LOCK_REQUIRED=false")
	}

	apiClient := exdapi.NewClient(exdapi.Config{BaseURL: cfg.API.APIURL}, logger)
	dbDriver := postgres.NewDriver(logger)

	// ===== Coordinator =====
	coordinator := services.NewCoordinator(services.CoordinatorConfig{
		Global: cfg.API,
		DB:     dbDriver,
		API:    apiClient,
		Store:  stateStore,
		Lock:   lock,
		Logger: logger,
	})

	restored, err := coordinator.RestoreFromPersistedState(ctx)
	if err != nil {
		log.Fatalf("Failed to restore session: %v", err)
	}
	if restored {
		log.Println("Resumed previous sync session")
	} else {
		if err := coordinator.Start(ctx, terminals); err != nil {
			log.Fatalf("Failed to start sync session: %v", err)
		}
		log.Println("Sync session started")
	}

	// Wait for context cancellation
	<-ctx.Done()

	log.Println("Stopping sync session...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	coordinator.Stop(stopCtx)
	log.Println("Sync session stopped")
}

// decodeStateKey accepts a 64-char hex key or a raw 32-byte string.
func decodeStateKey(s string) ([]byte, error) {
	if len(s) == 64 {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}
	return []byte(s), nil
}
