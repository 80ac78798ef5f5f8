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

	_ "github.com/noah-isme/campus-attendance-api/api/swagger"
	"github.com/noah-isme/campus-attendance-api/internal/handler"
	"github.com/noah-isme/campus-attendance-api/internal/middleware"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	"github.com/noah-isme/campus-attendance-api/pkg/cache"
	"github.com/noah-isme/campus-attendance-api/pkg/config"
	"github.com/noah-isme/campus-attendance-api/pkg/database"
	"github.com/noah-isme/campus-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-attendance-api/pkg/middleware/requestid"
)

// @title Campus Attendance API
// @version 1.0.0
// @description Schedule and attendance management backend
// @BasePath /api
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Stats caching degrades to direct queries without Redis.
		logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		DevLogin:   cfg.Env != config.EnvProduction,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	groupService := service.NewGroupService(groupRepo, userRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, scheduleRepo, validate, logr)
	importService := service.NewImportService(subjectRepo, groupRepo, userRepo, scheduleRepo, scheduleService, logr)
	reportService := service.NewReportService(attendanceRepo, redisClient, cfg.Stats.CacheTTL, logr)
	metricsService := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	groupHandler := handler.NewGroupHandler(groupService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, metricsService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, metricsService)
	importHandler := handler.NewImportHandler(importService, metricsService, cfg.Import.MaxFileSizeBytes)
	reportHandler := handler.NewReportHandler(reportService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/dev-login", authHandler.DevLogin)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
		auth.PUT("/password", middleware.JWT(authService), authHandler.ChangePassword)
	}

	authorized := api.Group("")
	authorized.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	users := authorized.Group("/users")
	{
		users.GET("/teachers", staffOnly, userHandler.Teachers)
		users.GET("", adminOnly, userHandler.List)
		users.GET("/:id", adminOnly, userHandler.Get)
		users.POST("", adminOnly, userHandler.Create)
		users.PUT("/:id", adminOnly, userHandler.Update)
		users.DELETE("/:id", adminOnly, userHandler.Delete)
	}

	groups := authorized.Group("/groups")
	{
		groups.GET("", groupHandler.List)
		groups.GET("/teacher/:id", staffOnly, groupHandler.ListByTeacher)
		groups.GET("/:id", groupHandler.Get)
		groups.GET("/:id/students", staffOnly, groupHandler.ListStudents)
		groups.POST("", adminOnly, groupHandler.Create)
		groups.PUT("/:id", adminOnly, groupHandler.Update)
		groups.DELETE("/:id", adminOnly, groupHandler.Delete)
		groups.POST("/:id/students", adminOnly, groupHandler.AddStudent)
		groups.DELETE("/:id/students/:studentId", adminOnly, groupHandler.RemoveStudent)
	}

	subjects := authorized.Group("/subjects")
	{
		subjects.GET("", subjectHandler.List)
		subjects.GET("/teacher/:id", subjectHandler.ListByTeacher)
		subjects.GET("/:id", subjectHandler.Get)
		subjects.POST("", adminOnly, subjectHandler.Create)
		subjects.PUT("/:id", adminOnly, subjectHandler.Update)
		subjects.DELETE("/:id", adminOnly, subjectHandler.Delete)
	}

	schedule := authorized.Group("/schedule")
	{
		schedule.GET("", scheduleHandler.List)
		schedule.GET("/today", scheduleHandler.Today)
		schedule.GET("/month", scheduleHandler.Month)
		schedule.GET("/stats", scheduleHandler.Stats)
		schedule.GET("/:id", scheduleHandler.Get)
		schedule.POST("", adminOnly, scheduleHandler.Create)
		schedule.POST("/check", adminOnly, scheduleHandler.Check)
		schedule.PUT("/:id", adminOnly, scheduleHandler.Update)
		schedule.DELETE("/:id", adminOnly, scheduleHandler.Delete)
	}

	imports := authorized.Group("/import", adminOnly)
	{
		imports.POST("/schedule/validate", importHandler.Validate)
		imports.POST("/schedule", importHandler.Import)
	}

	attendance := authorized.Group("/attendance", staffOnly)
	{
		attendance.GET("", attendanceHandler.List)
		attendance.GET("/lesson/:lessonId", attendanceHandler.LessonRoster)
		attendance.GET("/student/:id/stats", attendanceHandler.StudentStats)
		attendance.POST("", attendanceHandler.Save)
		attendance.POST("/bulk", attendanceHandler.BulkSave)
		attendance.PUT("/:id", attendanceHandler.Update)
		attendance.DELETE("/:id", attendanceHandler.Delete)
	}

	reports := authorized.Group("/reports", staffOnly)
	{
		reports.GET("/attendance", reportHandler.Attendance)
		reports.GET("/export", reportHandler.Export)
		reports.GET("/export/groups", reportHandler.ExportGroups)
		reports.GET("/stats/groups", reportHandler.Groups)
		reports.GET("/stats/groups/:id", reportHandler.Group)
		reports.GET("/stats/subjects", reportHandler.Subjects)
		reports.GET("/stats/subjects/:id", reportHandler.Subject)
		reports.GET("/stats/overall", adminOnly, reportHandler.Overall)
		reports.GET("/dashboard-stats", reportHandler.Overall)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
