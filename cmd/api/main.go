package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brieflyhq/briefly-back/internal/ai"
	"github.com/brieflyhq/briefly-back/internal/config"
	"github.com/brieflyhq/briefly-back/internal/extract"
	httpserver "github.com/brieflyhq/briefly-back/internal/http"
	"github.com/brieflyhq/briefly-back/internal/http/handlers"
	"github.com/brieflyhq/briefly-back/internal/notify"
	"github.com/brieflyhq/briefly-back/internal/observer"
	"github.com/brieflyhq/briefly-back/internal/queue"
	"github.com/brieflyhq/briefly-back/internal/repository"
	"github.com/brieflyhq/briefly-back/internal/service"
	"github.com/brieflyhq/briefly-back/internal/solana"
	"github.com/brieflyhq/briefly-back/internal/storage"
	"github.com/brieflyhq/briefly-back/internal/summarizer"
	"github.com/brieflyhq/briefly-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[briefly] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobsRepo, paymentsRepo, repoCloser := setupRepositories(ctx, cfg, logger)
	defer repoCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	store := setupStorage(ctx, cfg, logger)

	notifier, notifierCloser := setupNotifier(ctx, cfg, logger)
	defer notifierCloser()

	generator := ai.NewOpenAIClient(ai.OpenAIClientConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: time.Duration(cfg.OpenAITimeoutMS) * time.Millisecond,
	})
	transcriber := ai.NewTranscriptionClient(ai.TranscriptionClientConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.TranscriptionModel,
	})
	summarizerService := summarizer.NewSummarizer(generator, summarizer.Config{
		Model:            cfg.OpenAIModel,
		MaxContentLength: cfg.MaxContentLength,
	}, logger)

	uploadsService := service.NewUploadsService(jobsRepo, store, producer, service.UploadsConfig{
		MaxUploadBytes:   cfg.MaxUploadBytes,
		AllowedFileTypes: cfg.AllowedFileTypes,
		FreeTierJobLimit: cfg.FreeTierJobLimit,
	}, logger)
	paymentsService := service.NewPaymentsService(
		paymentsRepo,
		solana.NewClient(solana.ClientConfig{RPCURL: cfg.SolanaRPCURL}),
		service.PaymentsConfig{
			RecipientWallet: cfg.RecipientWallet,
			AmountTolerance: cfg.AmountTolerance,
		},
		logger,
	)

	watchCeiling := time.Duration(cfg.ObserverTimeoutMS) * time.Millisecond
	api := handlers.NewAPI(handlers.APIDependencies{
		Uploads:        uploadsService,
		Payments:       paymentsService,
		Jobs:           jobsRepo,
		Observer:       observer.New(jobsRepo, notifier, watchCeiling),
		Notifier:       notifier,
		MaxUploadBytes: cfg.MaxUploadBytes,
		WatchCeiling:   watchCeiling,
	})

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled {
		processor := worker.NewProcessor(
			consumer,
			jobsRepo,
			store,
			extract.NewExtractor(transcriber),
			summarizerService,
			notifier,
			logger,
		)
		go processor.Start(ctx)
		logger.Printf("worker enabled and started")
	} else {
		logger.Printf("worker disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      150 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupRepositories(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repository.SummaryJobsRepository, repository.PaymentsRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repositories")
		return repository.NewMemorySummaryJobsRepository(), repository.NewMemoryPaymentsRepository(), func() {}
	}

	pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres, fallback to memory: %v", err)
		return repository.NewMemorySummaryJobsRepository(), repository.NewMemoryPaymentsRepository(), func() {}
	}
	logger.Printf("postgres repositories initialized")
	return repository.NewPostgresSummaryJobsRepository(pool),
		repository.NewPostgresPaymentsRepository(pool),
		pool.Close
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, func()) {
	driver := cfg.QueueDriver
	if driver == "" {
		switch {
		case cfg.RedisAddr != "":
			driver = "redis"
		case cfg.RabbitURL != "":
			driver = "rabbitmq"
		default:
			driver = "local"
		}
	}

	switch driver {
	case "redis":
		streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Stream:    cfg.RedisStream,
			DLQStream: cfg.RedisDLQ,
			Group:     cfg.RedisGroup,
			Consumer:  cfg.RedisConsumer,
		})
		if err != nil {
			logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
			break
		}
		logger.Printf("redis streams queue initialized")
		return streams, streams, func() { _ = streams.Close() }

	case "rabbitmq":
		rabbit, err := queue.NewRabbitQueue(queue.RabbitConfig{
			URL:   cfg.RabbitURL,
			Queue: cfg.RabbitQueue,
		})
		if err != nil {
			logger.Printf("failed to initialize rabbitmq queue, fallback to local: %v", err)
			break
		}
		logger.Printf("rabbitmq queue initialized")
		return rabbit, rabbit, func() { _ = rabbit.Close() }
	}

	logger.Printf("using local queue")
	local := queue.NewLocalQueue(512, logger)
	return local, local, func() {}
}

func setupStorage(ctx context.Context, cfg config.Config, logger *log.Logger) storage.ObjectStorage {
	driver := cfg.StorageDriver
	if driver == "" {
		if cfg.MinioEndpoint != "" {
			driver = "minio"
		} else {
			driver = "local"
		}
	}

	if driver == "minio" {
		minioStore, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err == nil {
			logger.Printf("minio storage initialized (bucket %s)", cfg.MinioBucket)
			return minioStore
		}
		logger.Printf("failed to initialize minio storage, fallback to local: %v", err)
	}

	localStore, err := storage.NewLocalStorage(cfg.LocalStorageDir)
	if err != nil {
		logger.Fatalf("failed to initialize local storage: %v", err)
	}
	logger.Printf("local storage initialized at %s", cfg.LocalStorageDir)
	return localStore
}

func setupNotifier(ctx context.Context, cfg config.Config, logger *log.Logger) (notify.Notifier, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using in-process notifier")
		return notify.NewLocalNotifier(), func() {}
	}

	redisNotifier, err := notify.NewRedisNotifier(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Printf("failed to initialize redis notifier, fallback to in-process: %v", err)
		return notify.NewLocalNotifier(), func() {}
	}
	logger.Printf("redis notifier initialized")
	return redisNotifier, func() { _ = redisNotifier.Close() }
}
