// internal/app.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	router "chainlend-ledger/internal/api"
	"chainlend-ledger/internal/api/handler"
	"chainlend-ledger/internal/config"
	"chainlend-ledger/internal/ledger"
	"chainlend-ledger/internal/repository/sqlstore"
	"chainlend-ledger/internal/scoring"
	"chainlend-ledger/internal/service"
	"chainlend-ledger/internal/util"
	"chainlend-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *util.Logger
	DB     *sqlx.DB

	// Ledger
	Classifier scoring.Classifier
	Store      *ledger.Store

	// Services
	ReconciliationService service.ReconciliationService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize loads configuration and initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.InitializeWithConfig(ctx, cfg)
}

// InitializeWithConfig initializes all application components from an already loaded config.
func (app *Application) InitializeWithConfig(ctx context.Context, cfg *config.AppConfig) error {
	app.Config = cfg

	// 1. Logger
	logger, err := util.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	app.Logger = logger
	app.Logger.Info("Application configuration loaded successfully.",
		zap.String("env", cfg.Env),
		zap.String("db_driver", cfg.DB.Driver),
	)

	// 2. Database
	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, app.DB); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.Logger.Info("Database migrations applied.")
	}

	// 3. Ledger store over the SQL repositories
	app.Classifier = scoring.NewClassifier(cfg.Scoring.DefaultLoanDurationDays)
	app.Store = ledger.NewStore(
		sqlstore.NewWalletRepository(),
		sqlstore.NewLoanRequestRepository(),
		sqlstore.NewFundedLoanRepository(),
		sqlstore.NewRepaidLoanRepository(),
		sqlstore.NewCreditScoreRepository(),
		app.Classifier,
	)

	// 4. Services
	app.ReconciliationService = service.NewReconciliationService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.Store,
		app.Classifier,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.Logger.Info("Services initialized.")

	// 5. HTTP handlers and router
	ledgerHandler := handler.NewLedgerHandler(app.ReconciliationService, app.Logger)
	app.HTTPHandler = router.NewRouter(ledgerHandler, app.DB, app.Logger, router.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Timeout:        cfg.HTTP.RequestTimeout,
	})
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	if app.Logger == nil {
		app.Logger = util.NewNopLogger()
	}
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", zap.Error(err))
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	_ = app.Logger.Sync()
	return nil
}
