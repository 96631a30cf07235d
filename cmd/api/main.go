package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mentoji/platform/cmd/mainconfig"
	"github.com/mentoji/platform/internal/api/router"
	"github.com/mentoji/platform/internal/assistant"
	"github.com/mentoji/platform/internal/bookings"
	appconfig "github.com/mentoji/platform/internal/config"
	"github.com/mentoji/platform/internal/consultations"
	"github.com/mentoji/platform/internal/experts"
	"github.com/mentoji/platform/internal/meetings"
	"github.com/mentoji/platform/internal/notify"
	"github.com/mentoji/platform/internal/observability/metrics"
	"github.com/mentoji/platform/internal/payments"
	"github.com/mentoji/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting mentoji platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Repositories and core services
	bookingRepo := bookings.NewRepository(pool)
	bookingService := bookings.NewService(bookingRepo, logger)
	expertRepo := experts.NewRepository(pool)

	stripeClient := payments.NewStripeClient(cfg.StripeSecretKey, logger).
		WithDryRun(cfg.StripeDryRun)
	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(stripeClient, paymentRepo, payments.FeeSchedule{
		ProcessorRateBps:   cfg.ProcessorRateBps,
		ProcessorFlatCents: cfg.ProcessorFlatCents,
		PlatformRateBps:    cfg.PlatformFeeBps,
	}, logger)

	var roomCreator meetings.RoomCreator
	if dailyClient := meetings.NewDailyClient(cfg.DailyAPIKey, cfg.DailyBaseURL, logger); dailyClient != nil {
		roomCreator = dailyClient
	}
	provisioner := meetings.NewProvisioner(roomCreator, cfg.PublicBaseURL, cfg.MeetingRoomTTL, logger)

	mailer := notify.NewMailer(buildEmailSender(ctx, cfg, logger), logger)

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	orchestrator := consultations.NewOrchestrator(
		bookingService,
		paymentService,
		provisioner,
		mailer,
		expertRepo,
		bookingMetrics,
		logger,
	)
	consultationsHandler := consultations.NewHandler(orchestrator, logger)

	// Matching assistant (optional, requires Gemini + Redis)
	var assistantHandler *assistant.Handler
	if cfg.GeminiAPIKey != "" {
		gemini, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		redisClient := newRedisClient(cfg)
		assistantService := assistant.NewService(gemini, redisClient, cfg.AssistantHistoryTTL, logger)
		assistantHandler = assistant.NewHandler(assistantService, logger)
	} else {
		logger.Info("matching assistant disabled: no gemini api key")
	}

	r := router.New(&router.Config{
		Logger:               logger,
		ConsultationsHandler: consultationsHandler,
		AssistantHandler:     assistantHandler,
		MetricsHandler:       promhttp.Handler(),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		AuthJWTSecret:        cfg.AuthJWTSecret,
		RateLimitPerSecond:   cfg.RateLimitPerSecond,
		RateLimitBurst:       cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the configured provider, falling back to the stub
// sender so confirmations degrade to logs instead of breaking the flow.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config, using stub email sender", "error", err)
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			return sender
		}
	default:
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
	}
	logger.Warn("no email provider configured, confirmations will only be logged")
	return notify.NewStubEmailSender(logger)
}

func newRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}
