// internal/messaging/nats_publisher.go
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

// NATSPublisher publishes on a shared NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher creates a publisher on conn.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Publish sends data to subject and waits for the server to accept it.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.conn == nil {
		return fmt.Errorf("nats publisher is not connected")
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	// FlushWithContext requires a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	return p.conn.FlushWithContext(ctx)
}
