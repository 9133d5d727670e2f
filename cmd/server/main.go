// Package main runs the presenciales HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/estetica-academy/presenciales/config"
	"github.com/estetica-academy/presenciales/internal/auth"
	"github.com/estetica-academy/presenciales/internal/courses"
	"github.com/estetica-academy/presenciales/internal/middleware"
	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/internal/presenciales"
	"github.com/estetica-academy/presenciales/internal/timerules"
	"github.com/estetica-academy/presenciales/internal/users"
	"github.com/estetica-academy/presenciales/pkg/database"
	"github.com/estetica-academy/presenciales/pkg/queue"
	"github.com/estetica-academy/presenciales/pkg/redis"
	"github.com/estetica-academy/presenciales/pkg/response"
	"github.com/estetica-academy/presenciales/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if _, err := timerules.LoadLocation(cfg.Presenciales.Timezone); err != nil {
		logger.Fatal("timezone", zap.Error(err))
	}
	if cfg.Presenciales.Timezone != timerules.BusinessTimezone {
		logger.Warn("slot rules are always evaluated in the business timezone",
			zap.String("configured", cfg.Presenciales.Timezone), zap.String("business", timerules.BusinessTimezone))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Exports need S3; without a region the export URL endpoint answers 503.
	var signer presenciales.ExportSigner
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			logger.Info("exports enabled", zap.String("bucket", s3Client.ExportsBucket()))
			signer = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	locker := redis.NewLocker(rdb.Client, "presenciales:vote-lock:")

	courseRepo := courses.NewRepository(pool)
	courseHandler := courses.NewHandler(courseRepo, logger)

	userRepo := users.NewRepository(pool)
	userHandler := users.NewHandler(userRepo, logger)

	pollRepo := presenciales.NewRepository(pool)
	pollSvc := presenciales.NewService(pollRepo, courseRepo, locker, jobQueue, signer,
		time.Duration(cfg.Presenciales.VoteLockSecs)*time.Second, logger)
	pollHandler := presenciales.NewHandler(pollSvc, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Healthy(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/categories", courseHandler.Categories)
		api.GET("/me/courses", courseHandler.MyCourses)
		api.GET("/users", middleware.RequireRole(string(models.RoleAdmin)), userHandler.Search)
		pollHandler.Register(api, middleware.RequireRole(string(models.RoleAdmin)))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
