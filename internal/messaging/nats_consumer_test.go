// internal/messaging/nats_consumer_test.go
package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainlend-ledger/internal/config"
	"chainlend-ledger/internal/util"
)

// closedConn returns a connection that never reached a server and has since been closed.
func closedConn(t *testing.T) *nats.Conn {
	t.Helper()
	conn, err := nats.Connect("nats://127.0.0.1:1",
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(0),
		nats.ReconnectWait(time.Hour),
	)
	require.NoError(t, err)
	conn.Close()
	return conn
}

func TestNATSConsumerFailedStartCanBeRetried(t *testing.T) {
	cfg := config.NATSConfig{
		SubjectPrefix: "chainlend",
		StreamName:    "CHAIN_EVENTS",
		ConsumerGroup: "ledger-indexer",
	}
	handler := func(ctx context.Context, data []byte) Outcome { return Ack }
	c := NewNATSConsumer(closedConn(t), cfg, handler, util.NewNopLogger())
	ctx := context.Background()

	err := c.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.False(t, c.Running())

	err = c.Start(ctx)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "already started")
	assert.False(t, c.Running())

	assert.NoError(t, c.Stop(ctx), "stopping a consumer that never started is a no-op")
}

func TestNATSConsumerSubject(t *testing.T) {
	c := NewNATSConsumer(nil, config.NATSConfig{SubjectPrefix: "chainlend"}, nil, util.NewNopLogger())
	assert.Equal(t, "chainlend.events", c.Subject())
	assert.False(t, c.Running())
}
