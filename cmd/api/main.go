package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"chat-llm/internal/config"
	"chat-llm/internal/db"
	apihttp "chat-llm/internal/http"
	"chat-llm/internal/llm"
	"chat-llm/internal/repository"
	"chat-llm/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Store en memoria por defecto; postgres cuando DATABASE_URL está
	// configurada.
	var (
		conversations repository.ConversationRepository
		messages      repository.MessageRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		conversations = repository.NewPgConversationRepository(pool)
		messages = repository.NewPgMessageRepository(pool)
		logger.Info("using postgres store")
	} else {
		store := repository.NewMemoryStore()
		conversations = store
		messages = store
		logger.Info("using in-memory store; data is lost on restart")
	}

	var limiter service.SubmitRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisSubmitRateLimiter(redisClient, time.Minute, 20)
		}
		cancel()
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTemperature, logger)
	chatSvc := service.NewChatService(llmClient, conversations, messages, logger)

	convHandler := apihttp.NewConversationHandler(logger, conversations, messages)
	chatHandler := apihttp.NewChatHandler(logger, conversations, chatSvc, limiter)
	router := apihttp.NewRouter(logger, convHandler, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
