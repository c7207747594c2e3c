package main

import (
	"EnterpriseAgent/backend/go/internal/config"
	"EnterpriseAgent/backend/go/internal/database/kafka"
	"EnterpriseAgent/backend/go/internal/database/mysql"
	"EnterpriseAgent/backend/go/internal/database/redis"
	"EnterpriseAgent/backend/go/internal/embedding"
	"EnterpriseAgent/backend/go/internal/llm"
	"EnterpriseAgent/backend/go/internal/query_service/api"
	"EnterpriseAgent/backend/go/internal/query_service/service"
	"EnterpriseAgent/backend/go/internal/query_service/store"
	"EnterpriseAgent/backend/go/pkg/circuitbreaker"
	"EnterpriseAgent/backend/go/pkg/http"
	"EnterpriseAgent/backend/go/pkg/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	appLogger := logger.New(cfg.App.Name, "", "")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer mysql.Close()
	appLogger.Info("Database migration completed")

	// 向量缓存
	var cache embedding.Cache
	switch cfg.Embedding.Cache.Backend {
	case "lru":
		cache, err = embedding.NewLRUCache(cfg.Embedding.Cache.Capacity, config.Duration(cfg.Embedding.Cache.TTL, 0))
		if err != nil {
			return fmt.Errorf("创建向量缓存失败: %w", err)
		}
	case "redis":
		rdb, err := redis.GetClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			return err
		}
		defer redis.Close()
		cache = embedding.NewRedisCache(rdb, config.Duration(cfg.Embedding.Cache.TTL, 0))
	}

	embedder, err := embedding.New(ctx, cfg.Embedding, cache)
	if err != nil {
		return fmt.Errorf("初始化向量模型失败: %w", err)
	}

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("初始化生成模型失败: %w", err)
	}
	var breaker circuitbreaker.CircuitBreaker
	if cb := cfg.Middleware.CircuitBreaker; cb.Enabled {
		breaker = circuitbreaker.New(cb.FailureThreshold, cb.SuccessThreshold,
			config.Duration(cb.Timeout, 30*time.Second), circuitbreaker.WithIgnore(llm.IgnoreCanceled))
	}
	generator := llm.NewGenerator(client, cfg.LLM.Model, config.Duration(cfg.LLM.Timeout, time.Minute), breaker)

	opts := service.Options{DefaultK: cfg.Search.DefaultK, MaxK: cfg.Search.MaxK}
	if len(cfg.Databases.Kafka.Brokers) > 0 {
		if err := kafka.EnsureTopic(&cfg.Databases.Kafka); err != nil {
			return err
		}
		publisher := kafka.NewEventPublisher(kafka.NewWriter(&cfg.Databases.Kafka))
		defer publisher.Close()
		opts.Publisher = publisher
	}

	// Initialize dependencies (Store -> Service -> Handler)
	queryStore := store.NewStore(db, uint(cfg.Quota.DailyLimit), cfg.Embedding.Dimension)
	queryService := service.NewService(queryStore, generator, embedder, opts)
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.NewHandler(queryService))
	appLogger.Info("Dependencies injected")

	srv, err := http.NewServer(cfg, router)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
