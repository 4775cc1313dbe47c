package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/siakad-dev/pengajuan-sa-api/api/swagger"
	"github.com/siakad-dev/pengajuan-sa-api/internal/handler"
	"github.com/siakad-dev/pengajuan-sa-api/internal/middleware"
	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	"github.com/siakad-dev/pengajuan-sa-api/internal/repository"
	"github.com/siakad-dev/pengajuan-sa-api/internal/service"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/cache"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/config"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/database"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/logger"
	corsmiddleware "github.com/siakad-dev/pengajuan-sa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/siakad-dev/pengajuan-sa-api/pkg/middleware/requestid"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/storage"
)

// @title Pengajuan SA API
// @version 1.0.0
// @description Workflow engine for study-leave (Semester Antara) submissions
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	proofStorage, err := storage.NewLocalStorage(cfg.Proofs.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init proof storage", "error", err)
	}
	proofSigner := storage.NewSignedURLSigner(cfg.Proofs.SignedURLSecret, cfg.Proofs.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()

	notificationSvc := service.NewNotificationService(notificationRepo, logr, service.NotificationServiceConfig{
		Enabled:    cfg.Notifications.Enabled,
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
	})
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "pengajuan-sa-api",
	})

	submissionSvc := service.NewSubmissionService(
		submissionRepo,
		instructorRepo,
		proofStorage,
		proofSigner,
		userRepo,
		notificationSvc,
		cacheRepo,
		logr,
		service.SubmissionServiceConfig{
			MaxFileSize:  cfg.Proofs.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Proofs.AllowedMIMEs,
			APIPrefix:    cfg.APIPrefix,
			StrictAmount: cfg.Workflow.StrictAmount,
			CreditRate:   cfg.Workflow.CreditRate,
			CacheTTL:     cfg.Cache.ListTTL,
		},
		service.WithWorkflowMetrics(metricsSvc),
	)

	instructorSvc := service.NewInstructorService(instructorRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	pengajuanHandler := handler.NewPengajuanHandler(submissionSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Proof downloads authenticate via the signed token in the query
	// string, not a JWT, so browsers can follow the link directly.
	api.GET("/pengajuan-sa/:id/bukti-bayar/download", pengajuanHandler.DownloadProof)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)

		pengajuan := authed.Group("/pengajuan-sa")
		{
			pengajuan.GET("", pengajuanHandler.List)
			pengajuan.POST("", middleware.RequireRoles(models.RoleStudent), pengajuanHandler.Create)
			pengajuan.GET("/:id", pengajuanHandler.Get)
			pengajuan.PUT("/:id/verifikasi",
				middleware.RequireRoles(models.RolePaymentVerifier, models.RoleAdmin),
				pengajuanHandler.VerifyPayment)
			pengajuan.PUT("/:id/tolak",
				middleware.RequireRoles(models.RolePaymentVerifier, models.RoleProgramHead, models.RoleAdmin),
				pengajuanHandler.Reject)
			pengajuan.PUT("/:id/detail/:detailId/assign-dosen",
				middleware.RequireRoles(models.RoleProgramHead, models.RoleAdmin),
				pengajuanHandler.AssignInstructor)
			pengajuan.PUT("/:id/detail/:detailId/nilai",
				middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin),
				pengajuanHandler.RecordScore)
			pengajuan.GET("/:id/bukti-bayar", pengajuanHandler.ProofURL)
			pengajuan.GET("/:id/rekap.pdf", pengajuanHandler.Recap)
		}

		authed.GET("/mahasiswa/:id/pengajuan-sa",
			middleware.RBAC("ADMIN", "SEKJUR", "KAPRODI", "SELF"),
			pengajuanHandler.ListByStudent)

		dosen := authed.Group("/dosen")
		{
			dosen.GET("", instructorHandler.List)
			dosen.GET("/:id", instructorHandler.Get)
			dosen.GET("/:id/pengajuan-sa",
				middleware.RBAC("ADMIN", "SEKJUR", "KAPRODI", "SELF"),
				pengajuanHandler.ListByInstructor)
		}

		authed.GET("/export/pengajuan-sa.csv",
			middleware.RequireRoles(models.RoleAdmin, models.RolePaymentVerifier, models.RoleProgramHead),
			pengajuanHandler.ExportCSV)

		notifikasi := authed.Group("/notifikasi")
		{
			notifikasi.GET("", notificationHandler.List)
			notifikasi.PUT("/:id/read", notificationHandler.MarkRead)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
