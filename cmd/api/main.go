package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-ledger/internal/handler/http"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/logger"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-ledger/internal/repository/postgresql"
	"github.com/cmlabs-hris/payroll-ledger/internal/repository/postgresql/migrations"
	documentService "github.com/cmlabs-hris/payroll-ledger/internal/service/document"
	ledgerService "github.com/cmlabs-hris/payroll-ledger/internal/service/ledger"
	payrollService "github.com/cmlabs-hris/payroll-ledger/internal/service/payroll"
)

const (
	documentIssuer  = "Payroll Ledger"
	streamBuffer    = 32
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.App.Env, cfg.App.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		return err
	}

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.LocalPath, cfg.Storage.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize local storage: %w", err)
		}
	case "gcs":
		gcsStorage, err := storage.NewGCSStorage(ctx, cfg.Storage.GCSBucket, cfg.Storage.GCSCredentialsFile)
		if err != nil {
			return fmt.Errorf("failed to initialize gcs storage: %w", err)
		}
		defer gcsStorage.Close()
		fileStorage = gcsStorage
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}

	payslipRepo := postgresql.NewPayslipRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	ledgerRepo := postgresql.NewLedgerRepository(db)

	hub := sse.NewHub(streamBuffer)
	calculator := payrollService.NewCalculator(time.Now)
	documents := documentService.NewDocumentService(fileStorage, documentIssuer, time.Now)
	payrollSvc := payrollService.NewPayrollService(
		payslipRepo,
		employeeRepo,
		calculator,
		documents,
		hub,
		log,
		cfg.Payroll.DocumentWorkers,
	)
	ledgerSvc := ledgerService.NewLedgerService(ledgerRepo, hub, cfg.Payroll.TrendWindow, time.Now)

	scheduler := cron.NewScheduler(log)
	cron.NewPayrollJobs(payrollSvc, cfg.Payroll.BackfillBatch, log).RegisterJobs(scheduler, cfg.Payroll.BackfillInterval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	ledgerHandler := appHTTP.NewLedgerHandler(ledgerSvc, JWTService)
	router := appHTTP.NewRouter(cfg, log, JWTService, payrollHandler, ledgerHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Open event streams end with the signal context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server running", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
