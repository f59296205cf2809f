// internal/messaging/nats_consumer.go
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"chainlend-ledger/internal/config"
	"chainlend-ledger/internal/util"
)

// MessageHandler processes one message body and says how to settle it.
type MessageHandler func(ctx context.Context, data []byte) Outcome

// NATSConsumer reads chain events from JetStream, falling back to a core NATS queue
// subscription when JetStream or the stream is unavailable.
type NATSConsumer struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	config  config.NATSConfig
	logger  *util.Logger
	handler MessageHandler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNATSConsumer creates a consumer on an open connection.
func NewNATSConsumer(conn *nats.Conn, cfg config.NATSConfig, handler MessageHandler, logger *util.Logger) *NATSConsumer {
	return &NATSConsumer{
		conn:    conn,
		config:  cfg,
		handler: handler,
		logger:  logger.WithComponent("nats-consumer"),
	}
}

// Subject is the subject chain events arrive on.
func (n *NATSConsumer) Subject() string {
	return n.config.Subject("events")
}

// Start subscribes and begins processing in the background. A failed Start leaves the
// consumer stopped so it can be started again.
func (n *NATSConsumer) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return fmt.Errorf("consumer already started")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})

	var err error
	js, jsErr := n.conn.JetStream()
	if jsErr != nil {
		n.logger.Warn("JetStream not available, using core NATS", zap.Error(jsErr))
		err = n.startCore(runCtx)
	} else {
		err = n.startJetStream(runCtx, js)
	}
	if err != nil {
		cancel()
		n.cancel, n.done, n.sub = nil, nil, nil
		return err
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called since.
func (n *NATSConsumer) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancel != nil
}

func (n *NATSConsumer) startJetStream(ctx context.Context, js nats.JetStreamContext) error {
	subject := n.Subject()
	durable := n.config.ConsumerGroup

	n.logger.Info("Setting up JetStream pull subscription",
		zap.String("subject", subject),
		zap.String("stream", n.config.StreamName),
		zap.String("durable", durable))

	opts := []nats.SubOpt{nats.BindStream(n.config.StreamName), nats.AckExplicit()}
	if n.config.AckWait > 0 {
		opts = append(opts, nats.AckWait(n.config.AckWait))
	}
	sub, err := js.PullSubscribe(subject, durable, opts...)
	if err != nil {
		n.logger.Warn("Failed to create pull subscription, falling back to core NATS", zap.Error(err))
		return n.startCore(ctx)
	}
	n.sub = sub

	go n.fetchLoop(ctx, sub)
	return nil
}

func (n *NATSConsumer) fetchLoop(ctx context.Context, sub *nats.Subscription) {
	defer close(n.done)
	n.logger.Info("Starting JetStream message processing")

	batch := n.config.FetchBatch
	if batch <= 0 {
		batch = 10
	}
	for ctx.Err() == nil {
		msgs, err := sub.Fetch(batch, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, nats.ErrBadSubscription) || errors.Is(err, nats.ErrConnectionClosed) {
				break
			}
			n.logger.Error("Failed to fetch messages", zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			n.settle(msg, n.handler(ctx, msg.Data), true)
		}
	}
	n.logger.Info("Stopped JetStream message processing")
}

func (n *NATSConsumer) startCore(ctx context.Context) error {
	// No background loop in core mode; callbacks run on the connection's goroutine.
	close(n.done)
	subject := n.Subject()
	queueGroup := n.config.ConsumerGroup

	n.logger.Info("Setting up core NATS subscription",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	sub, err := n.conn.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		n.settle(msg, n.handler(ctx, msg.Data), false)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	n.sub = sub
	return nil
}

// settle acks or naks a JetStream message. Core NATS has no redelivery.
func (n *NATSConsumer) settle(msg *nats.Msg, outcome Outcome, jetStream bool) {
	if !jetStream {
		if outcome == Nak {
			n.logger.Warn("Core NATS message failed and will not be redelivered", zap.String("subject", msg.Subject))
		}
		return
	}
	var err error
	if outcome == Nak {
		err = msg.Nak()
	} else {
		err = msg.Ack()
	}
	if err != nil {
		n.logger.Warn("Failed to settle message", zap.Stringer("outcome", outcome), zap.Error(err))
	}
}

// Stop unsubscribes and waits for the fetch loop to exit.
func (n *NATSConsumer) Stop(ctx context.Context) error {
	n.mu.Lock()
	cancel, done, sub := n.cancel, n.done, n.sub
	n.cancel, n.sub = nil, nil
	n.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			n.logger.Warn("Failed to unsubscribe", zap.Error(err))
		}
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	n.logger.Info("NATS consumer stopped")
	return nil
}
