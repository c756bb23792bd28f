package main

import (
	"context"
	"encoding/json"
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

	_ "github.com/lrms-portal/lrms-api/api/swagger"
	"github.com/lrms-portal/lrms-api/internal/handler"
	"github.com/lrms-portal/lrms-api/internal/middleware"
	"github.com/lrms-portal/lrms-api/internal/models"
	"github.com/lrms-portal/lrms-api/internal/repository"
	"github.com/lrms-portal/lrms-api/internal/service"
	"github.com/lrms-portal/lrms-api/pkg/cache"
	"github.com/lrms-portal/lrms-api/pkg/config"
	"github.com/lrms-portal/lrms-api/pkg/database"
	"github.com/lrms-portal/lrms-api/pkg/export"
	"github.com/lrms-portal/lrms-api/pkg/jobs"
	"github.com/lrms-portal/lrms-api/pkg/logger"
	"github.com/lrms-portal/lrms-api/pkg/mailer"
	corsmiddleware "github.com/lrms-portal/lrms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lrms-portal/lrms-api/pkg/middleware/requestid"
	"github.com/lrms-portal/lrms-api/pkg/storage"
)

// @title LRMS API
// @version 1.0.0
// @description Learning Resource Management System administration API
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	files, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	otpRepo := repository.NewOTPRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	referenceRepos := make(map[string]*repository.ReferenceRepository, len(models.ReferenceResources))
	for _, res := range models.ReferenceResources {
		referenceRepos[res.Table] = repository.NewReferenceRepository(db, res)
	}

	// Asynchronous audit writer.
	auditQueue := jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			raw, err := json.Marshal(job.Payload)
			if err != nil {
				return fmt.Errorf("unexpected audit payload: %w", err)
			}
			entry = &models.AuditLog{Action: job.Type, Detail: raw}
		}
		return userRepo.CreateAuditLog(ctx, entry)
	}, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		Logger:     logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditQueue.Start(ctx)
	defer auditQueue.Stop()

	// OTP delivery falls back to log-only when SMTP is not configured.
	var sender mailer.Sender
	if cfg.SMTP.Host != "" {
		sender = mailer.NewSMTPSender(cfg.SMTP)
	} else {
		logr.Warn("SMTP not configured, verification codes are logged only")
		sender = mailer.NewLogSender(logr)
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, otpRepo, sender, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		OTPTTL:            cfg.OTP.TTL,
		OTPMaxAttempts:    cfg.OTP.MaxAttempts,
		OTPResendCooldown: cfg.OTP.ResendCooldown,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	optionSources := make(map[string]service.NamesLister, len(referenceRepos))
	for table, repo := range referenceRepos {
		optionSources[table] = repo
	}
	materialSvc := service.NewMaterialService(materialRepo, files, signer, cacheRepo, metricsSvc, optionSources, logr, service.MaterialConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		FilterCacheTTL:   cfg.Cache.FilterOptionsTTL,
	})
	exportSvc := service.NewExportService(materialRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr, cfg.Exports.MaxRows)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc, exportSvc, metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(authSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdministrative)
	writeRoles := middleware.RequireRoles(models.RoleAdministrative, models.RoleEPS, models.RoleLRCoordinator)

	// Public auth endpoints.
	users := r.Group("/users")
	users.POST("/login", middleware.Audit(auditQueue, models.AuditActionLogin, "auth"), authHandler.Login)
	users.POST("/verify-otp", middleware.Audit(auditQueue, models.AuditActionOTPVerified, "auth"), authHandler.VerifyOTP)
	users.POST("/resend-otp", authHandler.ResendOTP)

	// Authenticated account endpoints.
	users.POST("/change-password", authRequired, authHandler.ChangePassword)
	users.POST("/two-factor", authRequired, authHandler.SetTwoFactor)
	users.GET("/me", authRequired, userHandler.Me)

	// Account management.
	users.GET("", authRequired, adminOnly, userHandler.List)
	users.POST("", authRequired, adminOnly, middleware.Audit(auditQueue, models.AuditActionCreate, "user"), userHandler.Create)
	users.GET("/view/:id", authRequired, middleware.RBAC(string(models.RoleAdministrative), "SELF"), userHandler.Get)
	users.PUT("/:id", authRequired, adminOnly, middleware.Audit(auditQueue, models.AuditActionUpdate, "user"), userHandler.Update)
	users.PUT("/:id/profile", authRequired, middleware.RBAC(string(models.RoleAdministrative), "SELF"), middleware.Audit(auditQueue, models.AuditActionUpdate, "user_profile"), userHandler.UpdateProfile)
	users.DELETE("/:id", authRequired, adminOnly, middleware.Audit(auditQueue, models.AuditActionDelete, "user"), userHandler.Deactivate)
	users.PUT("/:id/activate", authRequired, adminOnly, middleware.Audit(auditQueue, models.AuditActionUpdate, "user"), userHandler.Activate)

	lrms := r.Group("/lrms")

	// Shared links need no token; everything else under /lrms does.
	lrms.GET("/files/:token", materialHandler.SignedDownload)

	authed := lrms.Group("")
	authed.Use(authRequired)

	for _, res := range models.ReferenceResources {
		repo := referenceRepos[res.Table]
		svc := service.NewReferenceService(repo, cacheRepo, validate, logr)
		h := handler.NewReferenceHandler(svc)
		h.Register(authed, writeRoles, middleware.Audit(auditQueue, models.AuditActionUpdate, res.Table))
	}

	authed.GET("/getAllMaterials", materialHandler.List)
	authed.GET("/getMaterial/:id", materialHandler.Get)
	authed.POST("/upload-materials", writeRoles, middleware.Audit(auditQueue, models.AuditActionUpload, "material"), materialHandler.BulkUpload)
	authed.POST("/upload-material-file/:id", writeRoles, middleware.Audit(auditQueue, models.AuditActionUpload, "material_file"), materialHandler.UploadFile)
	authed.GET("/view-material/:id", materialHandler.View)
	authed.GET("/download-material/:id", materialHandler.Download)
	authed.POST("/materials/:id/download-link", materialHandler.CreateDownloadLink)
	authed.GET("/filter-options", materialHandler.FilterOptions)
	authed.GET("/materials/export", materialHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
