// cmd/indexer/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	app "chainlend-ledger/internal"
	"chainlend-ledger/internal/api/handler"
	"chainlend-ledger/internal/config"
	"chainlend-ledger/internal/messaging"
	"chainlend-ledger/internal/service"
	"chainlend-ledger/internal/util"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := util.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if !cfg.NATS.Enabled {
		log.Error("NATS is disabled; set NATS_ENABLED=true to run the indexer")
		os.Exit(1)
	}

	fxApp := fx.New(
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		fx.Provide(
			newLedger,
			func(a *app.Application) service.ReconciliationService { return a.ReconciliationService },
			newNATSConn,
			func(conn *nats.Conn) messaging.Publisher { return messaging.NewNATSPublisher(conn) },
			newDispatcher,
			newConsumer,
		),

		fx.Invoke(startIndexer),
		fx.Invoke(startHealthServer),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	ctx := context.Background()
	if err := fxApp.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down indexer...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := fxApp.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Indexer stopped successfully")
}

// newLedger opens the database and builds the reconciliation core.
func newLedger(lc fx.Lifecycle, cfg *config.AppConfig) (*app.Application, error) {
	a := app.NewApplication()
	if err := a.InitializeWithConfig(context.Background(), cfg); err != nil {
		_ = a.Shutdown(context.Background())
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return a.Shutdown(ctx)
		},
	})
	return a, nil
}

func newNATSConn(lc fx.Lifecycle, cfg *config.AppConfig, log *util.Logger) (*nats.Conn, error) {
	conn, err := messaging.Connect(cfg.NATS, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := conn.Drain(); err != nil {
				conn.Close()
			}
			return nil
		},
	})
	return conn, nil
}

func newDispatcher(svc service.ReconciliationService, pub messaging.Publisher, cfg *config.AppConfig, log *util.Logger) *messaging.Dispatcher {
	return messaging.NewDispatcher(svc, pub, cfg.NATS.Subject("scores"), log)
}

func newConsumer(conn *nats.Conn, d *messaging.Dispatcher, cfg *config.AppConfig, log *util.Logger) *messaging.NATSConsumer {
	return messaging.NewNATSConsumer(conn, cfg.NATS, d.Handle, log)
}

// startIndexer starts consuming chain events.
func startIndexer(lifecycle fx.Lifecycle, consumer *messaging.NATSConsumer, cfg *config.AppConfig, log *util.Logger) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("NATS Configuration",
				zap.String("url", cfg.NATS.URL),
				zap.String("stream_name", cfg.NATS.StreamName),
				zap.String("subject", consumer.Subject()),
				zap.String("consumer_group", cfg.NATS.ConsumerGroup),
			)
			if err := consumer.Start(ctx); err != nil {
				return fmt.Errorf("failed to start consumer: %w", err)
			}
			log.Info("Indexer started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping indexer...")
			return consumer.Stop(ctx)
		},
	})
}

// indexerHealth fails while the consumer is stopped, then defers to the database.
type indexerHealth struct {
	db       handler.Pinger
	consumer *messaging.NATSConsumer
}

func (h indexerHealth) PingContext(ctx context.Context) error {
	if !h.consumer.Running() {
		return errors.New("event consumer is not running")
	}
	return h.db.PingContext(ctx)
}

// startHealthServer serves /health backed by the consumer state and a database ping.
func startHealthServer(lifecycle fx.Lifecycle, a *app.Application, consumer *messaging.NATSConsumer, cfg *config.AppConfig, log *util.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/health", handler.Health(indexerHealth{db: a.DB, consumer: consumer}, log))
	server := &http.Server{
		Addr:              ":" + cfg.IndexerHealthPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting health server...", zap.String("port", cfg.IndexerHealthPort))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("Health server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping health server...")
			return server.Shutdown(ctx)
		},
	})
}
