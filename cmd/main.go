package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	_ "github.com/lib/pq"

	"github.com/arenaone/arena/brackets"
	"github.com/arenaone/arena/cache"
	"github.com/arenaone/arena/config"
	"github.com/arenaone/arena/db"
	"github.com/arenaone/arena/handlers"
	"github.com/arenaone/arena/jobs"
	"github.com/arenaone/arena/locks"
	"github.com/arenaone/arena/payments"
	"github.com/arenaone/arena/repositories"
	api "github.com/arenaone/arena/routes"
	"github.com/arenaone/arena/services"
	"github.com/arenaone/arena/storage"
)

const teamCacheTTL = 5 * time.Minute

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Применение миграций
	if err := db.Migrate(dbConn, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Подключение к Redis: распределённые блокировки планировщика и кэш команд
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to parse redis url", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis connection", slog.Any("error", err))
		}
	}()
	locker := locks.NewRedisLocker(redisClient)
	teamCache := cache.NewRedisTeamCache(redisClient, teamCacheTTL)
	logger.Info("redis connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	uploader, err := storage.NewR2Uploader(context.Background(), storage.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("R2 uploader initialized")

	// Платёжный шлюз
	gateway := payments.NewClient(payments.Config{
		MerchantID:  cfg.ZarinpalMerchantID,
		BaseURL:     cfg.ZarinpalBaseURL,
		GatewayURL:  cfg.ZarinpalGatewayURL,
		CallbackURL: cfg.ZarinpalCallbackURL,
	})

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	transactionRepo := repositories.NewPostgresTransactionRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	txRunner := services.NewSQLTxRunner(dbConn)
	notificationService := services.NewNotificationService(notificationRepo, logger)
	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
	userService := services.NewUserService(txRunner, userRepo, teamRepo, registrationRepo, ratingRepo, uploader, logger)
	gameService := services.NewGameService(gameRepo, logger)
	teamService := services.NewTeamService(teamRepo, gameRepo, userRepo, registrationRepo, teamCache, logger)
	eloService := services.NewEloService(ratingRepo, teamRepo, logger)
	tournamentService := services.NewTournamentService(
		txRunner,
		tournamentRepo,
		gameRepo,
		userRepo,
		registrationRepo,
		bracketRepo,
		matchRepo,
		disputeRepo,
		notificationService,
		logger,
	)
	registrationService := services.NewRegistrationService(
		txRunner,
		tournamentRepo,
		userRepo,
		teamRepo,
		registrationRepo,
		transactionRepo,
		notificationService,
		logger,
	)
	bracketService := services.NewBracketService(
		txRunner,
		tournamentRepo,
		registrationRepo,
		bracketRepo,
		matchRepo,
		wsHub,
		logger,
	)
	matchService := services.NewMatchService(
		txRunner,
		matchRepo,
		tournamentRepo,
		teamRepo,
		wsHub,
		notificationService,
		logger,
	)
	disputeService := services.NewDisputeService(
		txRunner,
		disputeRepo,
		matchRepo,
		tournamentRepo,
		teamRepo,
		eloService,
		uploader,
		wsHub,
		notificationService,
		logger,
	)
	paymentService := services.NewPaymentService(txRunner, transactionRepo, userRepo, gateway, notificationService, logger)
	logger.Info("services initialized")

	// Планировщик жизненного цикла турниров, идемпотентный под Redis-блокировкой
	scheduler := jobs.NewLifecycleScheduler(tournamentRepo, locker, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start lifecycle scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer scheduler.Stop()
	logger.Info("lifecycle scheduler started")

	// Инициализация обработчиков HTTP
	router := api.InitRoutes(api.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		User:         handlers.NewUserHandler(userService, paymentService),
		Team:         handlers.NewTeamHandler(teamService),
		Game:         handlers.NewGameHandler(gameService),
		Tournament:   handlers.NewTournamentHandler(tournamentService, registrationService, bracketService),
		Match:        handlers.NewMatchHandler(matchService),
		Dispute:      handlers.NewDisputeHandler(disputeService),
		Payment:      handlers.NewPaymentHandler(paymentService),
		Notification: handlers.NewNotificationHandler(notificationService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
	}, cfg.JWTSecretKey)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
