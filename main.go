package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/ai-check/internal/auth"
	"github.com/example/ai-check/internal/classifier"
	"github.com/example/ai-check/internal/config"
	"github.com/example/ai-check/internal/detector"
	"github.com/example/ai-check/internal/grpcclient"
	"github.com/example/ai-check/internal/handlers"
	"github.com/example/ai-check/internal/logging"
	"github.com/example/ai-check/internal/repository"
	"github.com/example/ai-check/internal/system"
	"github.com/example/ai-check/internal/usecase"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db := initDatabase(ctx, cfg.Database, logger)
	repo := repository.NewUserRepository(db, logger)
	if err := repo.AutoMigrate(ctx); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	redisClient := initRedis(redisCtx, cfg.Redis.Addr, logger)
	defer redisClient.Close()

	clf, closeClassifier := initClassifier(ctx, cfg.Classifier, logger)
	defer closeClassifier()

	det := detector.New(clf, logger)
	detection := usecase.NewDetectionUseCase(det, cfg.Upload.Dir, logger)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience, cfg.Auth.TokenTTL)
	accounts := usecase.NewAccountUseCase(repo, usecase.NewRedisCache(redisClient), issuer, logger)

	opts := handlers.Options{
		MaxUploadSize: cfg.Upload.MaxBytes,
		StaticDir:     cfg.HTTP.StaticDir,
		ModelSource:   clf.Source().String(),
		Logger:        logger,
	}
	if sampler, err := system.NewSampler(); err != nil {
		logger.Warn("process stats unavailable", zap.Error(err))
	} else {
		opts.Stats = sampler
	}

	r := gin.Default()
	r.MaxMultipartMemory = cfg.Upload.MaxBytes

	authMiddleware := auth.JWTMiddleware(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience)
	handlers.RegisterRoutes(r, detection, accounts, authMiddleware, opts)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: r,
	}

	logger.Info("AI check API listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.Stringer("model_source", clf.Source()),
	)
	if err := serveHTTPServer(server, cfg.HTTP.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// initClassifier resolves the local model cascade, or dials the remote
// scorer when one is configured.
func initClassifier(ctx context.Context, cfg config.ClassifierConfig, logger *zap.Logger) (*classifier.Classifier, func()) {
	if cfg.RemoteAddr == "" {
		clf := classifier.Load(classifier.OptionsFromConfig(cfg), logger)
		return clf, func() {
			if err := clf.Close(); err != nil {
				logger.Warn("failed to release classifier", zap.Error(err))
			}
		}
	}

	scorer, conn, err := grpcclient.DialScorer(ctx, cfg.RemoteAddr, logger)
	if err != nil {
		logger.Fatal("failed to connect to remote scorer", zap.String("addr", cfg.RemoteAddr), zap.Error(err))
	}
	return classifier.New(classifier.SourceRemote, scorer), func() {
		conn.Close()
	}
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
