package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-admin-api/api/swagger"
	"github.com/noah-isme/school-admin-api/internal/handler"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/cache"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-admin-api/pkg/response"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

// @title School Admin API
// @version 1.0.0
// @description Student roster, attendance and marks administration with aggregate reporting
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheOn)
	}

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	marksRepo := repository.NewMarksRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr, cfg.Reports)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, cacheSvc, validate, logr)
	marksSvc := service.NewMarksService(marksRepo, cacheSvc, validate, logr)
	reportSvc := service.NewReportService(attendanceRepo, marksRepo, studentRepo, cacheSvc, metricsSvc, cfg.Reports, logr)

	var archive *storage.ExportArchive
	if cfg.Exports.ArchiveOn {
		archive, err = storage.NewExportArchive(cfg.Exports.ArchiveDir)
		if err != nil {
			logr.Sugar().Warnw("export archive disabled", "error", err)
		} else if removed, err := archive.CleanupOlderThan(cfg.Exports.Retention); err != nil {
			logr.Sugar().Warnw("export archive cleanup failed", "error", err)
		} else if len(removed) > 0 {
			logr.Sugar().Infow("expired exports removed", "count", len(removed))
		}
	}
	exportSvc := service.NewExportService(reportSvc, archive, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	marksHandler := handler.NewMarksHandler(marksSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
		if err := db.Ping(); err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleStudent)

	students := api.Group("/students", middleware.JWT(authSvc))
	students.POST("", adminOnly, studentHandler.Create)
	students.GET("", anyRole, studentHandler.List)
	students.GET("/:id", anyRole, studentHandler.Get)
	students.GET("/roll/:roll_number", adminOnly, studentHandler.GetByRollNumber)
	students.PUT("/:id", adminOnly, studentHandler.Update)
	students.DELETE("/:id", adminOnly, studentHandler.Delete)

	attendance := api.Group("/attendance", middleware.JWT(authSvc))
	attendance.POST("", adminOnly, attendanceHandler.Mark)
	attendance.POST("/batch", adminOnly, attendanceHandler.BatchMark)
	attendance.PATCH("/:id", adminOnly, attendanceHandler.UpdateStatus)
	attendance.GET("", adminOnly, attendanceHandler.List)

	marks := api.Group("/marks", middleware.JWT(authSvc))
	marks.POST("", adminOnly, marksHandler.Add)
	marks.POST("/batch", adminOnly, marksHandler.BatchAdd)
	marks.PATCH("/:id", adminOnly, marksHandler.Update)
	marks.GET("", adminOnly, marksHandler.List)

	reports := api.Group("/reports", middleware.JWT(authSvc))
	reports.GET("/attendance", adminOnly, reportHandler.Attendance)
	reports.GET("/marks", adminOnly, reportHandler.Marks)
	reports.GET("/combined", adminOnly, reportHandler.Combined)
	reports.GET("/attendance/export", adminOnly, exportHandler.Attendance)
	reports.GET("/marks/export", adminOnly, exportHandler.Marks)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
