package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	compensationService "github.com/cmlabs-hris/payroll-engine/internal/service/compensation"
	payrollService "github.com/cmlabs-hris/payroll-engine/internal/service/payroll"
	revisionService "github.com/cmlabs-hris/payroll-engine/internal/service/revision"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("app", "payroll-engine")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("error connecting to redis: %w", err)
	}

	ptSlabs, err := fixtures.ProfessionalTaxSlabs(cfg.Payroll.ProfessionalTaxSlabFile)
	if err != nil {
		return fmt.Errorf("error loading professional tax slabs: %w", err)
	}

	transactor := postgresql.NewTransactor(db)
	rulesRepo := postgresql.NewRulesRepository(db)
	templateRepo := postgresql.NewSalaryTemplateRepository(db)
	revisionRepo := postgresql.NewRevisionRepository(db)
	runRepo := postgresql.NewRunRepository(db)
	payslipRepo := postgresql.NewPayslipRepository(db)
	amendmentRepo := postgresql.NewAmendmentRepository(db)
	auditRepo := postgresql.NewAuditLogRepository(db)

	locker := lock.NewRedisLocker(redisClient, cfg.Redis.LockTTL, cfg.Redis.LockRetryGap, cfg.Redis.LockRetries)
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	compensationSvc := compensationService.NewCompensationService(
		rulesRepo,
		templateRepo,
		compensationService.NewSolver(cfg.Payroll.ReconciliationTolerance),
		ptSlabs,
	)
	revisionSvc := revisionService.NewRevisionService(revisionRepo, locker)
	payrollSvc := payrollService.NewPayrollService(
		transactor,
		runRepo,
		payslipRepo,
		amendmentRepo,
		auditRepo,
		compensationSvc,
		revisionSvc,
		payrollService.NewLockGuard(cfg.AmendmentWindow()),
	)

	scheduler := cron.NewScheduler(ctx)
	cron.NewPayrollJobs(payrollSvc, cfg.Payroll.RecalculationBatchSize, cfg.Payroll.RecalculationInterval).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		cfg.App,
		JWTService,
		appHTTP.NewCompensationHandler(compensationSvc),
		appHTTP.NewRevisionHandler(revisionSvc, compensationSvc),
		appHTTP.NewPayrollHandler(payrollSvc),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
