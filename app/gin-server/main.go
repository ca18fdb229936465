package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoohealth/config"
	"github.com/yoockh/yoohealth/internal/api/handlers"
	"github.com/yoockh/yoohealth/internal/api/middleware"
	"github.com/yoockh/yoohealth/internal/api/routes"
	"github.com/yoockh/yoohealth/internal/auth"
	"github.com/yoockh/yoohealth/internal/cache"
	"github.com/yoockh/yoohealth/internal/logger"
	"github.com/yoockh/yoohealth/internal/metrics"
	"github.com/yoockh/yoohealth/internal/providers/stt"
	mongorepo "github.com/yoockh/yoohealth/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoohealth/internal/repositories/postgres"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/storage"
	"github.com/yoockh/yoohealth/internal/workers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("MongoDB index error")
	}
	log.Info("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	if err := config.MigratePostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL migrate error")
	}
	log.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// Optional collaborators: voice archive/avatars and speech-to-text.
	var uploader storage.Uploader
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, cfg.GCSBucket, cfg.CredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("GCS init error")
		}
		defer gcs.Close()
		uploader = gcs
	}

	provider, err := newSTT(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("speech-to-text init error")
	}
	if provider != nil {
		defer provider.Close()
	}

	// Repositories
	mdb := config.MongoDatabase()
	users := pgrepo.NewUserRepo(config.PostgresDB)
	chats := pgrepo.NewChatRepo(config.PostgresDB)
	topics := pgrepo.NewTopicRepo(config.PostgresDB)
	transcripts := mongorepo.NewTranscriptRepo(mdb, cfg.VoiceTranscriptTTL)
	recordings := mongorepo.NewRecordingRepo(mdb)

	// Services
	kv := cache.NewRedisCache(config.RedisClient, "yoohealth:")
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	authSvc := services.NewAuthService(users, tokens, kv, uploader, cfg.PasswordResetTTL, log)
	topicSvc := services.NewTopicService(topics, kv, cfg.TopicCacheTTL, log)
	chatSvc := services.NewChatService(chats, topicSvc, cfg.ChatResponseDelay, m, log)
	voiceSvc := services.NewVoiceService(provider, transcripts, uploader, cfg.STTLanguage, m, log)
	recordingSvc := services.NewRecordingService(recordings, m)

	// Workers
	pool := &workers.VoiceWorkerPool{
		Redis:      config.RedisClient,
		Voice:      voiceSvc,
		Chat:       chatSvc,
		NumWorkers: cfg.VoiceWorkers,
		Logger:     log,
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("voice worker init error")
	}
	queue := workers.NewRedisQueue(config.RedisClient, workers.DefaultVoiceStream)

	// Start Gin server
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, m))

	routes.RegisterRoutes(r, routes.Deps{
		Auth:          handlers.NewAuthHandler(authSvc),
		Chat:          handlers.NewChatHandler(chatSvc),
		Topic:         handlers.NewTopicHandler(topicSvc),
		Voice:         handlers.NewVoiceHandler(voiceSvc),
		VoiceWS:       handlers.NewVoiceWSHandler(recordingSvc, queue, log),
		Authenticator: authSvc,
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown error")
	}
	_ = config.RedisClient.Close()
	_ = config.MongoClient.Disconnect(shutdownCtx)
	if sqlDB, err := config.PostgresDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newSTT returns nil when speech-to-text is disabled; voice requests then fail
// with CONFIGURATION_MISSING.
func newSTT(ctx context.Context, cfg config.Config, log *logrus.Logger) (stt.Provider, error) {
	switch cfg.STTProvider {
	case "google":
		p, err := stt.NewGoogleSpeech(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "http":
		p, err := stt.NewHTTPSpeech(cfg.STTEndpoint, cfg.STTAPIKey, cfg.STTTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		log.WithField("stt_provider", cfg.STTProvider).Warn("speech-to-text disabled")
		return nil, nil
	}
}
