package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"plotforge/internal/clients"
	"plotforge/internal/config"
	"plotforge/internal/database"
	"plotforge/internal/dna"
	"plotforge/internal/handler"
	"plotforge/internal/limiter"
	"plotforge/internal/logger"
	"plotforge/internal/messaging"
	"plotforge/internal/middleware"
	"plotforge/internal/service"
	"plotforge/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("PlotForge")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	if err := database.RunMigrations(cfg.GetDSN(), log); err != nil {
		log.Fatal("Migrations failed", zap.Error(err))
	}
	pool, err := database.NewPool(ctx, cfg.GetDSN(), cfg.DBMaxConns, cfg.DBIdleTimeout, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	// Messaging
	rabbitConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() { _ = rabbitConn.Close() }()

	publisher, err := messaging.NewRabbitMQDNATaskPublisher(rabbitConn, cfg.DNATaskQueue, log)
	if err != nil {
		log.Fatal("Failed to create DNA task publisher", zap.Error(err))
	}

	// Collaborators
	aiClient, err := clients.New(clients.Config{
		APIKey:           cfg.AIAPIKey,
		BaseURL:          cfg.AIBaseURL,
		ModelName:        cfg.AIModel,
		Timeout:          cfg.AITimeout,
		MaxRetries:       cfg.AIMaxRetries,
		MaxContextTokens: cfg.AIMaxCtxToken,
	})
	if err != nil {
		log.Fatal("Failed to create AI client", zap.Error(err))
	}

	// Wiring
	storyRepo := database.NewPgStoryRepository(log)
	chapterRepo := database.NewPgChapterRepository(log)
	choiceRepo := database.NewPgChoiceRepository(log)
	branchRepo := database.NewPgBranchRepository(log)
	txManager := database.NewTxManager(pool)
	slotLocker := database.NewRedisSlotLocker(redisClient, log)
	admission := limiter.NewAdmissionController(
		cfg.GenerationConcurrency, cfg.PersistenceConcurrency, cfg.ExtractionConcurrency)

	branchService := service.NewBranchService(pool, txManager, branchRepo, chapterRepo, log)
	advanceService := service.NewAdvanceService(
		pool, txManager, storyRepo, chapterRepo, choiceRepo, branchService,
		aiClient, publisher, slotLocker, admission, cfg.SlotLeaseTTL, log)

	// Background workers
	tracker := dna.NewTracker(aiClient, log)
	processor := worker.NewDNAProcessor(pool, chapterRepo, tracker, admission.Extraction, log)
	consumer := messaging.NewConsumer(rabbitConn, cfg.DNATaskQueue, cfg.WorkerPrefetch, cfg.WorkerMaxRetry, processor, log)
	if err := consumer.Start(ctx); err != nil {
		log.Fatal("Failed to start DNA task consumer", zap.Error(err))
	}
	dlqConsumer := worker.NewDLQConsumer(rabbitConn, cfg.DNATaskQueue, log)
	if err := dlqConsumer.Start(ctx); err != nil {
		log.Fatal("Failed to start DLQ consumer", zap.Error(err))
	}

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ZapLogging(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	prom := ginprometheus.NewPrometheus("plotforge")
	prom.Use(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := handler.New(pool, storyRepo, advanceService, branchService, log)
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Stop accepting requests first, then let the workers drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}

	_ = consumer.Close()
	_ = dlqConsumer.Close()
	select {
	case <-consumer.Done():
	case <-time.After(10 * time.Second):
		log.Warn("DNA task consumer did not drain in time")
	}

	log.Info("Shutdown complete")
}
