package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/civic-report-service/internal/api/http"
	"github.com/spec-kit/civic-report-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/config"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/geo"
	"github.com/spec-kit/civic-report-service/internal/observability"
	"github.com/spec-kit/civic-report-service/internal/persistence"
	"github.com/spec-kit/civic-report-service/internal/repository"
	"github.com/spec-kit/civic-report-service/internal/routing"
	"github.com/spec-kit/civic-report-service/internal/service"
	"github.com/spec-kit/civic-report-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	// A missing or malformed boundary file disables geofencing rather than
	// blocking startup; submissions are then accepted from anywhere.
	boundary, err := geo.LoadFromFile(cfg.Geo.BoundaryPath)
	if err != nil {
		logger.Warn("municipal boundary unavailable, geofence disabled",
			zap.String("path", cfg.Geo.BoundaryPath), zap.Error(err))
		boundary = nil
	}

	routingCfg, err := routing.LoadConfig(cfg.Routing.ConfigPath)
	if err != nil {
		logger.Fatal("failed to load routing config", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	externalRepo := repository.NewExternalUserRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	router := routing.NewRouter(routingCfg, departmentRepo)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		StaffRepo:         staffRepo,
		ExternalRepo:      externalRepo,
		PasswordResetRepo: resetRepo,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		ReportRepo:   reportRepo,
		ExternalRepo: externalRepo,
		CompanyRepo:  companyRepo,
		Dispatcher:   dispatcher,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo:  reportRepo,
		Router:      router,
		Boundary:    boundary,
		Assignments: assignmentService,
		Dispatcher:  dispatcher,
		Cache:       redis,
		CacheTTL:    cfg.Routing.CategoryCacheTTL(),
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo, externalRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Staff:          handlers.NewStaffHandler(authService),
		Reports:        handlers.NewReportsHandler(reportService),
		StaffReports:   handlers.NewStaffReportsHandler(reportService, assignmentService),
		Departments:    handlers.NewDepartmentsHandler(departmentRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
