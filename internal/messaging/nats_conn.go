// internal/messaging/nats_conn.go
package messaging

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"chainlend-ledger/internal/config"
	"chainlend-ledger/internal/util"
)

// Connect opens a NATS connection with reconnect logging.
func Connect(cfg config.NATSConfig, logger *util.Logger) (*nats.Conn, error) {
	log := logger.WithComponent("nats")
	log.Info("Connecting to NATS server", zap.String("url", cfg.URL))

	opts := []nats.Option{
		nats.Name("chainlend-ledger"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
