package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avoronkov/tutorhub/internal/app"
	"github.com/avoronkov/tutorhub/internal/config"
	"github.com/avoronkov/tutorhub/internal/repository"
	"github.com/avoronkov/tutorhub/internal/server"
	"github.com/avoronkov/tutorhub/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting tutorhub",
		zap.String("env", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
	)

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.Migrations, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Репозитории
	userRepo := repository.NewUserRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// Сервисы
	notifier := service.NewLogNotifier(logger)
	ledgerService := service.NewLedgerService(
		userRepo, ledgerRepo, paymentRepo, notifier, logger,
		cfg.PaymentIntervalHours, cfg.DueSoonWindowHours,
	)
	bookingService := service.NewBookingService(userRepo, appointmentRepo, ledgerService, notifier, logger)
	availabilityService := service.NewAvailabilityService(userRepo, ruleRepo, appointmentRepo, logger)
	userService := service.NewUserService(userRepo, logger)

	scheduler := app.NewScheduler(
		ledgerService,
		time.Duration(cfg.ReminderIntervalHours*float64(time.Hour)),
		logger,
	)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := server.New(userService, availabilityService, bookingService, ledgerService, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Listen(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
