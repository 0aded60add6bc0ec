package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rindwa/rindwa_api/internal/config"
	v1 "github.com/rindwa/rindwa_api/internal/handler/http/v1"
	"github.com/rindwa/rindwa_api/internal/policy"
	"github.com/rindwa/rindwa_api/internal/repository"
	"github.com/rindwa/rindwa_api/internal/repository/memory"
	"github.com/rindwa/rindwa_api/internal/service"
	"github.com/rindwa/rindwa_api/internal/token"
	"github.com/rindwa/rindwa_api/internal/webhook"
	"github.com/rindwa/rindwa_api/pkg/logger"
	"github.com/rindwa/rindwa_api/pkg/postgres"
	redisclient "github.com/rindwa/rindwa_api/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/rindwa/rindwa_api/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// storage - репозитории, кэши и издатель событий выбранного режима хранения
type storage struct {
	incidents     service.IncidentRepository
	users         service.UserRepository
	organizations service.OrganizationRepository
	contacts      service.ContactRepository
	incidentCache service.IncidentCache
	actorCache    service.ActorCache
	publisher     webhook.EventPublisher
	closers       []func()
	workerDone    <-chan struct{}
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newPostgresStorage применяет миграции и подключает PostgreSQL и Redis
func newPostgresStorage(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*storage, error) {
	log.Info("Running database migrations...")
	if err := postgres.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	log.Info("Database migrations applied successfully")

	dbpool, err := postgres.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	log.Info("Successfully connected to PostgreSQL")

	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Successfully connected to Redis")

	cache := repository.NewRedisCache(redisClient, cfg.IncidentCacheTTL, cfg.ActorCacheTTL)
	worker := webhook.NewWorker(redisClient, log, cfg)

	return &storage{
		incidents:     repository.NewIncidentRepository(dbpool),
		users:         repository.NewUserRepository(dbpool),
		organizations: repository.NewOrganizationRepository(dbpool),
		contacts:      repository.NewContactRepository(dbpool),
		incidentCache: cache,
		actorCache:    cache,
		publisher:     webhook.NewRedisEventPublisher(redisClient),
		closers:       []func(){dbpool.Close, func() { _ = redisClient.Close() }},
		workerDone:    worker.Start(ctx),
	}, nil
}

// newMemoryStorage - режим без внешних зависимостей; данные живут до остановки процесса
func newMemoryStorage(log *logrus.Logger) *storage {
	log.Warn("Using in-memory storage, data will be lost on shutdown")
	store := memory.NewStore()
	return &storage{
		incidents:     store.Incidents(),
		users:         store.Users(),
		organizations: store.Organizations(),
		contacts:      store.Contacts(),
		incidentCache: repository.NoopCache{},
		actorCache:    repository.NoopCache{},
		publisher:     webhook.NewLogEventPublisher(log),
	}
}

// @title Rindwa Incident API
// @version 1.0
// @description Incident reporting, verification and resolution for emergency services.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *storage
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store = newMemoryStorage(log)
	default:
		store, err = newPostgresStorage(ctx, cfg, log)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
	}
	defer store.close()

	authz, err := policy.New()
	if err != nil {
		log.Fatalf("Failed to build access policy: %v", err)
	}
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	// Инициализация сервисов
	services := v1.Services{
		Auth:          service.NewAuthService(store.users, store.organizations, store.actorCache, tokens, authz, log),
		Incidents:     service.NewIncidentService(store.incidents, store.incidentCache, authz, store.publisher, log, cfg),
		Users:         service.NewUserService(store.users, store.organizations, store.actorCache, authz, log),
		Organizations: service.NewOrganizationService(store.organizations, store.users, store.actorCache, authz, log),
		Contacts:      service.NewContactService(store.contacts, authz, log),
	}

	// Инициализация хэндлеров
	handler := v1.NewHandler(services, log)

	// Настройка Gin роутера
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Воркер завершает текущую доставку до закрытия Redis
	cancel()
	if store.workerDone != nil {
		select {
		case <-store.workerDone:
		case <-shutdownCtx.Done():
			log.Warn("Webhook worker did not stop in time")
		}
	}

	log.Info("Server gracefully stopped")
}
