package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/taskflow/task-service/internal/auth"
	"github.com/taskflow/task-service/internal/config"
	httpController "github.com/taskflow/task-service/internal/controller/http"
	"github.com/taskflow/task-service/internal/repo/kafka"
	"github.com/taskflow/task-service/internal/repo/memory"
	"github.com/taskflow/task-service/internal/repo/mongo"
	"github.com/taskflow/task-service/internal/repo/postgres"
	"github.com/taskflow/task-service/internal/repo/redis"
	"github.com/taskflow/task-service/internal/usecase"
	"github.com/taskflow/task-service/pkg/logger"
)

type App struct {
	Server *http.Server
	Router *chi.Mux

	cfg     *config.Config
	wg      sync.WaitGroup
	closers []func(context.Context) error
}

type stores struct {
	tasks usecase.TaskRepository
	users usecase.UserRepository
}

func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.UsesDefaultJWTSecret() {
		logger.Log.Warn("JWT_SECRET is not set, signing tokens with the development default")
	}

	a := &App{cfg: cfg}
	ctx := context.Background()

	st, err := a.initStorage(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	cacheRepo, err := a.initCache(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	taskUseCase := usecase.NewTaskUseCase(st.tasks, cacheRepo, a.initPublisher(), usecase.WithCacheTTL(cfg.CacheTTL))

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	})
	userUseCase := usecase.NewUserUseCase(st.users, auth.NewPasswordHasher(0), jwtManager)

	a.Router = httpController.NewRouter(taskUseCase, userUseCase, jwtManager, httpController.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
	})
	a.Server = &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: a.Router,
	}
	return a, nil
}

func (a *App) initStorage(ctx context.Context) (stores, error) {
	switch a.cfg.StorageDriver {
	case config.DriverMemory:
		logger.Log.Warn("Using in-memory storage, data is lost on restart")
		return stores{tasks: memory.NewTaskRepository(), users: memory.NewUserRepository()}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, a.cfg.PostgresDSN, a.cfg.DBTimeout)
		if err != nil {
			return stores{}, err
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })

		if err := postgres.Migrate(ctx, pool); err != nil {
			return stores{}, err
		}
		logger.Log.Info("Connected to postgres successfully")
		return stores{
			tasks: postgres.NewTaskRepository(pool, a.cfg.DBTimeout),
			users: postgres.NewUserRepository(pool, a.cfg.DBTimeout),
		}, nil

	default:
		client, err := mongo.Connect(ctx, a.cfg.MongoURI, a.cfg.DBTimeout)
		if err != nil {
			return stores{}, err
		}
		a.closers = append(a.closers, client.Disconnect)

		db := client.Database(a.cfg.MongoDatabase)
		taskRepo := mongo.NewTaskRepository(db, a.cfg.DBTimeout)
		userRepo := mongo.NewUserRepository(db, a.cfg.DBTimeout)
		if err := taskRepo.EnsureIndexes(ctx); err != nil {
			return stores{}, err
		}
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			return stores{}, err
		}
		logger.Log.WithField("database", a.cfg.MongoDatabase).Info("Connected to mongo successfully")
		return stores{tasks: taskRepo, users: userRepo}, nil
	}
}

// initCache returns nil when no redis address is configured.
func (a *App) initCache(ctx context.Context) (usecase.CacheRepository, error) {
	if a.cfg.RedisAddr == "" {
		logger.Log.Info("Redis address not set, task list cache disabled")
		return nil, nil
	}

	cache := redis.NewCacheRepository(redis.NewClient(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB))
	a.closers = append(a.closers, func(context.Context) error { return cache.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.DBTimeout)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Log.WithField("addr", a.cfg.RedisAddr).Info("Connected to redis successfully")
	return cache, nil
}

// initPublisher returns nil when no brokers are configured.
func (a *App) initPublisher() usecase.EventPublisher {
	if len(a.cfg.KafkaBrokers) == 0 {
		logger.Log.Info("Kafka brokers not set, task events disabled")
		return nil
	}

	publisher := kafka.NewPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
	a.closers = append(a.closers, func(context.Context) error { return publisher.Close() })
	logger.Log.WithField("topic", a.cfg.KafkaTopic).Info("Publishing task events to kafka")
	return publisher
}

// close releases resources in reverse order of acquisition.
func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Log.WithError(err).Error("Failed to release resource")
		}
	}
	a.closers = nil
}

func (a *App) Run() error {
	defer a.close(context.Background())

	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case <-sig:
		case <-serverCtx.Done():
			return
		}
		logger.Log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(serverCtx, a.cfg.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			if shutdownCtx.Err() == context.DeadlineExceeded {
				logger.Log.Error("Graceful shutdown timed out")
			}
			logger.Log.WithError(err).Error("HTTP server shutdown failed")
		}
	}()

	logger.Log.Info("Starting server on " + a.Server.Addr)
	if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		serverStopCtx()
		a.wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	}

	a.wg.Wait()
	logger.Log.Info("Server stopped gracefully")
	return nil
}
