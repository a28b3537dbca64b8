package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"paydesk_backend/database"
	"paydesk_backend/internal/config"
	"paydesk_backend/internal/email"
	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/handlers"
	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/middleware"
	"paydesk_backend/internal/models"
	"paydesk_backend/internal/repositories"
	"paydesk_backend/internal/routes"
	"paydesk_backend/internal/services/otp"
	"paydesk_backend/internal/services/payment"
	"paydesk_backend/internal/services/withdrawal"
	"paydesk_backend/internal/validator"
	"paydesk_backend/internal/workers"
	"paydesk_backend/pkg/apperrors"
	"paydesk_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	otpJanitorInterval = 30 * time.Second
	otpGrace           = time.Minute
	sessionRetention   = 10 * time.Minute
)

// Options tweak Run from the command line.
type Options struct {
	Migrate bool
}

// ServiceContainer holds everything the handlers and workers need.
type ServiceContainer struct {
	PaymentService *payment.Service
	OTPGuard       *otp.Guard
	Coordinator    *withdrawal.Coordinator
	Attempts       repositories.PaymentAttemptRepository
	OTPStore       otp.Store
	WSManager      *ws.WebSocketManager
}

func Run(opts Options) error {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
		apperrors.SetDebug(false)
	}

	logger.Info("Connecting to database...")
	gormDB, err := database.Connect(cfg.Database.DSN, cfg.Server.Env)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	logger.Info("Database connected")

	if opts.Migrate {
		if err := database.AutoMigrate(gormDB); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container := initializeServices(ctx, cfg, gormDB)
	startWorkers(ctx, cfg, container)

	router := SetupRouter(cfg, container, map[string]handlers.PingFunc{
		"database": sqlDB.PingContext,
	})

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server startup error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	// Pollers are stopped without a terminal event; open attempts are
	// closed later by the attempt worker.
	container.PaymentService.Shutdown()
	logger.Info("Server stopped", "ws_clients", container.WSManager.GetClientCount())
	return nil
}

// Migrate only applies the schema.
func Migrate() error {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)

	gormDB, err := database.Connect(cfg.Database.DSN, cfg.Server.Env)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	return database.AutoMigrate(gormDB)
}

func SetupRouter(cfg *config.Config, container *ServiceContainer, checks map[string]handlers.PingFunc) *gin.Engine {
	appHandlers := initializeHandlers(container, checks)
	wsHandler := ws.NewWebSocketHandler(container.WSManager, appHandlers.PaymentHandler.Snapshot, cfg.Server.AllowedOrigins)

	ginRouter := initializeGinRouter(cfg)
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, cfg.JWT.Secret)
	return ginRouter
}

func initializeServices(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) *ServiceContainer {
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:      cfg.Gateway.BaseURL,
		APIKey:       cfg.Gateway.APIKey,
		CreatePath:   cfg.Gateway.CreatePath,
		StatusPath:   cfg.Gateway.StatusPath,
		SendCashPath: cfg.Gateway.SendCashPath,
		SMSBaseURL:   cfg.SMS.BaseURL,
		SMSPath:      cfg.SMS.Path,
		Timeout:      cfg.GatewayRequestTimeout(),
	}, nil)

	// --- Репозитории ---
	attemptRepo := repositories.NewPaymentAttemptRepository(gormDB)
	ledgerRepo := repositories.NewLedgerRepository(gormDB)

	// --- Платежи ---
	wsManager := ws.NewWebSocketManager()
	go wsManager.Run(ctx)

	registry := payment.NewRegistry(gatewayClient, cfg.SessionTTL())
	poller := payment.NewPoller(gatewayClient, payment.PollerConfig{
		Interval:       cfg.PollInterval(),
		Timeout:        cfg.PollTimeout(),
		RequestTimeout: cfg.GatewayRequestTimeout(),
	})
	paymentService := payment.NewService(registry, poller, attemptRepo, wsManager, cfg.Gateway.AppName)

	// --- Выводы средств ---
	var otpStore otp.Store
	switch cfg.OTP.Store {
	case "postgres":
		otpStore = otp.NewGormStore(gormDB)
	default:
		otpStore = otp.NewMemoryStore(otpGrace)
	}
	guard := otp.NewGuard(otpStore, gatewayClient, otp.Config{
		TTL:         cfg.OTPTTL(),
		MaxAttempts: cfg.OTP.MaxAttempts,
		BcryptCost:  cfg.OTP.BcryptCost,
		Sender:      cfg.SMS.Sender,
	})
	coordinator := withdrawal.NewCoordinator(guard, gatewayClient, ledgerRepo,
		reconciliationNotifier(cfg), withdrawalLimits(cfg), cfg.Gateway.AppName)

	logger.Info("Services initialized", "otp_store", cfg.OTP.Store)

	return &ServiceContainer{
		PaymentService: paymentService,
		OTPGuard:       guard,
		Coordinator:    coordinator,
		Attempts:       attemptRepo,
		OTPStore:       otpStore,
		WSManager:      wsManager,
	}
}

func startWorkers(ctx context.Context, cfg *config.Config, container *ServiceContainer) {
	staleAfter := cfg.SessionTTL() + cfg.PollTimeout()
	workers.NewAttemptWorker(container.Attempts, container.PaymentService, time.Minute, staleAfter, sessionRetention).Start(ctx)

	switch store := container.OTPStore.(type) {
	case *otp.MemoryStore:
		go store.Run(ctx, otpJanitorInterval)
	case *otp.GormStore:
		workers.NewOTPWorker(store, otpJanitorInterval, otpGrace).Start(ctx)
	}
}

func initializeHandlers(container *ServiceContainer, checks map[string]handlers.PingFunc) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		PaymentHandler:    handlers.NewPaymentHandler(baseHandler, container.PaymentService),
		WithdrawalHandler: handlers.NewWithdrawalHandler(baseHandler, container.OTPGuard, container.Coordinator),
		HealthHandler:     handlers.NewHealthHandler(checks, container.PaymentService.ActivePollers),
	}
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	return router
}

func reconciliationNotifier(cfg *config.Config) withdrawal.ReconciliationNotifier {
	smtp := &email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	}
	if !smtp.Enabled() || len(cfg.Email.OpsRecipients) == 0 {
		logger.Warn("SMTP is not configured, reconciliation alerts go to the log only")
		return email.LogNotifier{}
	}

	provider := email.NewGomailProvider(smtp)
	if err := provider.Validate(); err != nil {
		logger.Warn("Invalid SMTP configuration, reconciliation alerts go to the log only", "error", err)
		return email.LogNotifier{}
	}
	return email.NewReconciliationMailer(provider, email.NewTemplateManager(), cfg.Email.OpsRecipients)
}

func withdrawalLimits(cfg *config.Config) withdrawal.Limits {
	limits := make(withdrawal.Limits, len(cfg.Withdrawal.Limits))
	for name, l := range cfg.Withdrawal.Limits {
		method, ok := models.ParsePaymentMethod(name)
		if !ok {
			logger.Warn("Ignoring withdrawal limit for unknown method", "method", name)
			continue
		}
		limits[method] = withdrawal.Limit{Min: l.Min, Max: l.Max}
	}
	return limits
}
