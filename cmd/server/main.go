package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy_backend/internal/config"
	"pharmacy_backend/internal/database"
	"pharmacy_backend/internal/events"
	"pharmacy_backend/internal/handlers"
	"pharmacy_backend/internal/middleware"
	"pharmacy_backend/internal/migrations"
	"pharmacy_backend/internal/redis"
	"pharmacy_backend/internal/repository"
	"pharmacy_backend/internal/services"
	"pharmacy_backend/internal/tracing"
	"pharmacy_backend/pkg/whatsapp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "pharmacy-backend"

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	shutdownTracing, err := tracing.InitTracing(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	db, err := database.Initialize(cfg.DatabaseURL, database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		LogSQL:       cfg.LogLevel == "debug",
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	redisClient, err := redis.Initialize(cfg.RedisURL, time.Duration(cfg.CacheTTL)*time.Second)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	store := repository.NewStore(db)
	userService := services.NewUserService(store.Users())

	if cfg.SeedData {
		if err := migrations.Seed(context.Background(), store, userService, migrations.SeedOptions{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
			AdminMobile:   cfg.AdminMobile,
		}, logger); err != nil {
			logger.Warn("Failed to create default data", zap.Error(err))
		}
	}

	var sender services.MessageSender
	whatsappClient := whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppUsername, cfg.WhatsAppPassword, cfg.WhatsAppPath)
	if whatsappClient.Configured() {
		sender = whatsappClient
	} else {
		logger.Info("WhatsApp gateway not configured, messages disabled")
	}

	catalogService := services.NewCatalogService(store, redisClient, logger)
	notificationService := services.NewNotificationService(store, sender, logger)

	publishers := events.Fanout{
		notificationService,
		catalogService,
		events.PublisherFunc(func(_ context.Context, event events.OrderEvent) error {
			middleware.RecordOrderEvent(string(event.Type), string(event.Status))
			return nil
		}),
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.InitProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		publishers = append(publishers, events.NewKafkaPublisher(producer, cfg.KafkaTopic, logger))
	}

	orderService := services.NewOrderService(store, publishers, redisClient, logger)
	cartService := services.NewCartService(store.Products())
	prescriptionService := services.NewPrescriptionService(store, sender, logger)

	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RecoverMiddleware(logger))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/metrics", middleware.PrometheusHandler())

	var whatsappHandler *handlers.WhatsAppHandler
	switch {
	case sender == nil:
	case cfg.WebhookToken == "":
		logger.Warn("WHATSAPP_WEBHOOK_TOKEN not set, WhatsApp webhook disabled")
	default:
		whatsappHandler = handlers.NewWhatsAppHandler(cfg.WebhookToken, sender, userService, orderService, catalogService, logger)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get database handle", zap.Error(err))
	}
	checks := map[string]handlers.HealthCheck{
		"database": sqlDB.PingContext,
		"redis":    redisClient.Ping,
	}

	handlers.Router{
		API:           handlers.NewAPIHandler(catalogService, notificationService, userService, checks, logger),
		Orders:        handlers.NewOrderHandler(orderService, logger),
		Cart:          handlers.NewCartHandler(cartService, logger),
		Prescriptions: handlers.NewPrescriptionHandler(prescriptionService, cfg.MediaRoot, logger),
		WhatsApp:      whatsappHandler,
	}.Register(router, userService, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	gracefulShutdown(srv, shutdownTracing, logger)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

func gracefulShutdown(srv *http.Server, shutdownTracing func(context.Context) error, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server exited")
}
