package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/surdiana/authd/config"
	"github.com/surdiana/authd/internal/dto"
	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/handler"
	"github.com/surdiana/authd/internal/middleware"
	"github.com/surdiana/authd/internal/repository"
	"github.com/surdiana/authd/internal/router"
	"github.com/surdiana/authd/internal/service"
	"github.com/surdiana/authd/pkg/database"
	"github.com/surdiana/authd/pkg/events"
	"github.com/surdiana/authd/pkg/kvstore"
	applogger "github.com/surdiana/authd/pkg/logger"
	"github.com/surdiana/authd/pkg/retry"
	"github.com/surdiana/authd/pkg/social"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	logger, err := applogger.New(cfg.App.Environment, cfg.App.Debug)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Application starting",
		zap.String("app_name", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	db, err := database.NewPostgresDB(database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 60,
		ConnMaxIdleTime: 10,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	superuser := config.Superuser()
	if err := database.SeedSuperuser(db, superuser.Login, superuser.Password); err != nil {
		logger.Error("Failed to seed superuser", zap.Error(err))
	}

	policy := retry.Policy{
		InitialDelay: cfg.Retry.InitialDelay,
		Factor:       cfg.Retry.Factor,
		MaxDelay:     cfg.Retry.MaxDelay,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Retryable:    apperrors.IsRetryable,
	}

	kvConfig := kvstore.Config{
		Address:      cfg.RedisAddress(),
		Password:     cfg.Redis.Password,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	revocationStore := kvstore.New(kvConfig, cfg.Redis.RevocationDB, policy, logger)
	refreshStore := kvstore.New(kvConfig, cfg.Redis.RefreshDB, policy, logger)
	requestStore := kvstore.New(kvConfig, cfg.Redis.RequestDB, policy, logger)
	defer revocationStore.Close()
	defer refreshStore.Close()
	defer requestStore.Close()

	// Registration events are optional; the service runs without a broker.
	var publisher *events.Publisher
	if cfg.AMQP.Enabled {
		publisher, err = events.NewPublisher(cfg.AMQP.URL, logger)
		if err != nil {
			logger.Warn("Failed to connect to message broker", zap.Error(err))
		}
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db, policy, logger)
	roleRepo := repository.NewRoleRepository(db, policy, logger)
	socialRepo := repository.NewSocialAccountRepository(db, policy, logger)
	historyRepo := repository.NewHistoryRepository(db, policy, logger)

	// Services
	tokenService := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, refreshStore)
	revocationService := service.NewRevocationService(revocationStore, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, logger)
	brokerService := service.NewLoginRequestService(
		requestStore, userRepo, historyRepo, tokenService,
		cfg.Totp.Issuer, cfg.Totp.RequestTTL, logger,
	)
	sessionService := service.NewSessionService(
		userRepo, socialRepo, historyRepo,
		tokenService, revocationService, brokerService,
		publisher, logger,
	)
	roleService := service.NewRoleService(roleRepo, logger)
	historyService := service.NewHistoryService(historyRepo, logger)

	providers := social.NewRegistry(social.Credentials{
		GoogleClientID:     cfg.OAuth.GoogleClientID,
		GoogleClientSecret: cfg.OAuth.GoogleClientSecret,
		YandexClientID:     cfg.OAuth.YandexClientID,
		YandexClientSecret: cfg.OAuth.YandexClientSecret,
		RedirectBase:       cfg.OAuth.RedirectBase,
	})

	if err := dto.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}

	// Handlers and middleware
	authMw := middleware.NewAuthMiddleware(tokenService, revocationService, logger)
	r := router.NewRouter(
		handler.NewAuthHandler(sessionService, logger),
		handler.NewUserHandler(sessionService, historyService, logger),
		handler.NewTotpHandler(brokerService, logger),
		handler.NewRoleHandler(roleService, logger),
		handler.NewSocialHandler(sessionService, providers, logger),
		authMw,
		logger,
	).SetupRoutes()

	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
