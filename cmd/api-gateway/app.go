package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/handler"
	"github.com/noah-isme/nexalink-api/internal/middleware"
	"github.com/noah-isme/nexalink-api/internal/repository"
	"github.com/noah-isme/nexalink-api/internal/service"
	"github.com/noah-isme/nexalink-api/pkg/cache"
	"github.com/noah-isme/nexalink-api/pkg/config"
	"github.com/noah-isme/nexalink-api/pkg/export"
	"github.com/noah-isme/nexalink-api/pkg/jobs"
	"github.com/noah-isme/nexalink-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/nexalink-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/nexalink-api/pkg/middleware/requestid"
	"github.com/noah-isme/nexalink-api/pkg/storage"
)

type application struct {
	router  *gin.Engine
	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type repositories struct {
	courses     *repository.CourseRepository
	enrollments *repository.EnrollmentRepository
	profiles    *repository.ProfileRepository
	attendance  *repository.AttendanceRepository
	ia          *repository.IARepository
	metrics     *repository.MetricRepository
	performance *repository.PerformanceRepository
	engagement  *repository.EngagementRepository
	feedback    *repository.FeedbackRepository
	reports     *repository.ReportRepository
}

func newRepositories(db *sqlx.DB) repositories {
	return repositories{
		courses:     repository.NewCourseRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		profiles:    repository.NewProfileRepository(db),
		attendance:  repository.NewAttendanceRepository(db),
		ia:          repository.NewIARepository(db),
		metrics:     repository.NewMetricRepository(db),
		performance: repository.NewPerformanceRepository(db),
		engagement:  repository.NewEngagementRepository(db),
		feedback:    repository.NewFeedbackRepository(db),
		reports:     repository.NewReportRepository(db),
	}
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (*application, error) {
	app := &application{}
	validate := validator.New()
	repos := newRepositories(db)
	metricsSvc := service.NewMetricsService()

	var cacheClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheClient = client
		}
	}
	cacheRepo := repository.NewCacheRepository(cacheClient, cfg.Redis.KeyPrefix, logr)
	app.closers = append(app.closers, func() { _ = cacheRepo.Close() })
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cacheClient != nil)

	resolver := access.NewResolver(repos.courses)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	engagementSvc := service.NewEngagementService(repos.engagement, metricsSvc, logr)

	metricStore := service.NewMetricStore(service.MetricStoreParams{
		Attendance:  repos.attendance,
		Enrollments: repos.enrollments,
		IA:          repos.ia,
		Repo:        repos.metrics,
		Metrics:     metricsSvc,
		Logger:      logr,
	})
	hookList := []service.RecordHook{service.CacheInvalidationHook(cacheSvc)}
	if cfg.Metrics.RecomputeOnWrite {
		hookList = append([]service.RecordHook{metricStore}, hookList...)
	}
	hooks := service.NewRecordHooks(logr, hookList...)

	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Repo:        repos.attendance,
		Courses:     repos.courses,
		Enrollments: repos.enrollments,
		Students:    repos.profiles,
		Percentages: repos.metrics,
		Hooks:       hooks,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})
	iaSvc := service.NewIAService(service.IAServiceParams{
		Repo:        repos.ia,
		Enrollments: repos.enrollments,
		Students:    repos.profiles,
		Totals:      repos.metrics,
		Hooks:       hooks,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})
	analyticsSvc := service.NewAnalyticsService(service.AnalyticsServiceParams{
		Attendance:  repos.attendance,
		Performance: repos.performance,
		Engagement:  repos.engagement,
		Feedback:    repos.feedback,
		Cache:       cacheSvc,
		CacheTTL:    cfg.Analytics.CacheTTL,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Courses:     repos.courses,
		Attendance:  repos.attendance,
		Performance: repos.performance,
		Percentages: repos.metrics,
		Feedback:    repos.feedback,
		Engagement:  repos.engagement,
		Enrollments: repos.enrollments,
		Profiles:    repos.profiles,
		Cache:       cacheSvc,
		Logger:      logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:         cfg.Dashboard.CacheTTL,
			RecentLimit:      cfg.Dashboard.RecentLimit,
			AdminRecentLimit: cfg.Dashboard.AdminRecent,
			AdminParallelism: cfg.Dashboard.AdminParallel,
		},
	})

	var reportHandler *handler.ReportHandler
	var queues []handler.QueueStatser
	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			return nil, err
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewExportService(analyticsSvc, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewReportWorker(repos.reports, exporter, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		app.closers = append(app.closers, queue.Stop)
		queues = append(queues, queue)

		reportSvc := service.NewReportService(repos.reports, queue, exporter, validate, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
		reportHandler = handler.NewReportHandler(reportSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc, "/health", "/metrics"))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, queues...)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	public := r.Group(cfg.APIPrefix)
	if reportHandler != nil {
		public.GET("/reports/download/:token", reportHandler.Download)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	api.Use(middleware.Scope(resolver))
	if cfg.Engagement.Enabled {
		api.Use(middleware.Engagement(engagementSvc, logr, cfg.APIPrefix+"/analytics", cfg.APIPrefix+"/dashboard"))
	}

	api.GET("/auth/me", handler.NewAuthHandler().Me)

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	api.GET("/attendance/statistics", attendanceHandler.Statistics)
	api.POST("/attendance/bulk-mark", attendanceHandler.BulkMark)
	api.GET("/attendance/percentages", attendanceHandler.Percentages)

	iaHandler := handler.NewIAHandler(iaSvc)
	api.POST("/ia-marks/bulk", iaHandler.BulkMarks)
	api.GET("/ia-marks/totals", iaHandler.Totals)

	if cfg.Analytics.Enabled {
		analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
		analytics := api.Group("/analytics")
		analytics.GET("/attendance", analyticsHandler.Attendance)
		analytics.GET("/performance", analyticsHandler.Performance)
		analytics.GET("/engagement", analyticsHandler.Engagement)
		analytics.GET("/feedback", analyticsHandler.Feedback)
	}

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard", handler.NewDashboardHandler(dashboardSvc).Get)
	}

	if reportHandler != nil {
		api.POST("/reports", reportHandler.Create)
		api.GET("/reports", reportHandler.List)
		api.GET("/reports/:id", reportHandler.Status)
	}

	metricAdmin := handler.NewMetricAdminHandler(metricStore)
	admin := api.Group("/metrics", middleware.RequireAdmin())
	admin.GET("/courses/:id/verify", metricAdmin.Verify)
	admin.POST("/courses/:id/recompute", metricAdmin.Recompute)

	app.router = r
	return app, nil
}
