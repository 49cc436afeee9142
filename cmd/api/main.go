package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"go-pos-inventory/internal/config"
	"go-pos-inventory/internal/events"
	"go-pos-inventory/internal/handler"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/repository/mongodb"
	"go-pos-inventory/internal/scheduler"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/internal/ws"
	"go-pos-inventory/pkg/database"
	"go-pos-inventory/pkg/jwt"
	"go-pos-inventory/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	mode := "development"
	if cfg.IsProduction() {
		mode = "production"
	}
	baseLogger := logger.Must(logger.New(logger.Options{Mode: mode, Level: cfg.Log.Level, Filename: cfg.Log.File}))
	defer func() { _ = baseLogger.Sync() }()

	if err := run(cfg, baseLogger); err != nil {
		baseLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return err
	}

	// 1. Database
	db, err := database.ConnectPostgres(database.Config{
		DSN:          cfg.Database.DSN,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Debug:        !cfg.IsProduction(),
	}, logger.Named(log, "gorm"))
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}

	// 2. Repositories
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	saleRepo := repository.NewSaleRepo(db)

	if err := service.SeedAccessControl(ctx, privilegeRepo, roleRepo, userRepo,
		cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, logger.Named(log, "seed")); err != nil {
		return err
	}

	// 3. Event bus and realtime feed
	bus := events.NewBus()
	hub := ws.NewHub(logger.Named(log, "ws"))
	if err := hub.Attach(bus); err != nil {
		return err
	}
	go hub.Run(ctx)

	// 4. Services
	receipts, err := service.NewReceiptNumberer(cfg.Sale.TerminalNodeID)
	if err != nil {
		return err
	}
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	authSvc := service.NewAuthService(userRepo, tokens, cfg.Auth.SessionIdle, logger.Named(log, "auth"))
	invSvc := service.NewInventoryService(inventoryRepo, bus, logger.Named(log, "inventory"))
	saleSvc := service.NewSaleService(repository.NewSaleStore(db), saleRepo, receipts, bus, service.SaleOptions{
		MaxAttempts:       cfg.Sale.MaxAttempts,
		CommitTimeout:     cfg.Sale.CommitTimeout,
		DefaultTaxPercent: cfg.Sale.DefaultTaxPercent,
	}, logger.Named(log, "sale"))
	dashSvc := service.NewDashboardService(saleRepo, inventoryRepo, loc, logger.Named(log, "dashboard"))

	// 5. Report archive (optional) and scheduler
	var archive scheduler.ReportArchive
	var reportHandler *handler.ReportHandler
	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		reports, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = reports.Close(closeCtx)
		}()
		archive = reports
		reportHandler = handler.NewReportHandler(reports, logger.Named(log, "http"))
		log.Info("daily reports archived to mongodb", zap.String("db", cfg.MongoDB.DBName))
	}

	sched := scheduler.NewScheduler(cfg.Scheduler, loc, dashSvc, invSvc, archive, bus, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// 6. HTTP
	app := handler.NewApp(cfg.Server.AppName, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Inventory:   handler.NewInventoryHandler(invSvc, logger.Named(log, "http")),
		Sale:        handler.NewSaleHandler(saleSvc, loc, logger.Named(log, "http")),
		Dashboard:   handler.NewDashboardHandler(dashSvc, loc, logger.Named(log, "http")),
		Role:        handler.NewRoleHandler(roleRepo, privilegeRepo),
		Report:      reportHandler,
		AuthService: authSvc,
		Hub:         hub,
	}, logger.Named(log, "http"))

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("port", cfg.Server.Port))
		errCh <- app.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return err
	}
	bus.Wait()
	log.Info("server exited")
	return nil
}
