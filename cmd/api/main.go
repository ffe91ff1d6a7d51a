package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/medmarket-api/internal/config"
	"github.com/medmarket-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/medmarket-api/internal/infrastructure/jwt"
	s3infra "github.com/medmarket-api/internal/infrastructure/s3"
	"github.com/medmarket-api/internal/infrastructure/sms"
	"github.com/medmarket-api/internal/pkg/otel"
	transporthttp "github.com/medmarket-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(newLogger(cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, cfg.OTelEndpoint, cfg.OTelServiceName)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("s3: %v", err)
	}

	smsSender, err := sms.New(ctx, cfg)
	if err != nil {
		log.Fatalf("sms: %v", err)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg.JWT)
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}

	tables := cfg.DynamoTables
	deps := &transporthttp.Deps{
		UserRepo:     dynamo.NewUserRepo(dynamoClient, tables.Users, tables.UserUniques),
		OTPRepo:      dynamo.NewOTPRepo(dynamoClient, tables.OTPRecords),
		StoreRepo:    dynamo.NewStoreRepo(dynamoClient, tables.Stores),
		MedicineRepo: dynamo.NewMedicineRepo(dynamoClient, tables.Medicines),
		ReviewRepo:   dynamo.NewReviewRepo(dynamoClient, tables.Reviews),
		Images:       s3infra.NewStore(s3Client, cfg.S3BucketName),
		SMSSender:    smsSender,
		JWTProvider:  jwtProvider,
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      otel.Handler(router, cfg.OTelServiceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "sms_provider", cfg.SMS.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("tracer shutdown", "err", err)
	}
	slog.Info("server stopped")
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
