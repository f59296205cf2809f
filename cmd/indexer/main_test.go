// cmd/indexer/main_test.go
package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"chainlend-ledger/internal/config"
	"chainlend-ledger/internal/messaging"
	"chainlend-ledger/internal/util"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestIndexerHealthRequiresRunningConsumer(t *testing.T) {
	pinged := false
	db := pingerFunc(func(ctx context.Context) error {
		pinged = true
		return errors.New("unreachable")
	})
	stopped := messaging.NewNATSConsumer(nil, config.NATSConfig{SubjectPrefix: "chainlend"}, nil, util.NewNopLogger())

	err := indexerHealth{db: db, consumer: stopped}.PingContext(context.Background())

	assert.EqualError(t, err, "event consumer is not running")
	assert.False(t, pinged, "the database is not pinged while the consumer is down")
}
