package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestStopStopsConsumersAfterServer ensures the queue consumers are only
// stopped once the server shutdown returned.
func TestStopStopsConsumersAfterServer(t *testing.T) {
	cCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	app := &App{
		logger:        zap.NewNop(),
		config:        &Config{Server: ServerConfig{ShutdownTimeout: time.Second}},
		server:        &http.Server{},
		stopConsumers: stopConsumers,
	}

	gCtx, cancel := context.WithCancel(context.Background())
	stop := app.Stop(context.Background(), gCtx)
	done := make(chan error, 1)
	go func() { done <- stop() }()

	// the server is still running.
	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, cCtx.Err())

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, cCtx.Err(), context.Canceled)
}

// TestConsumeQueuesMirrorsBufferedEvents ensures events still buffered when
// the consumers are stopped reach the mirror before the storage is closed.
func TestConsumeQueuesMirrorsBufferedEvents(t *testing.T) {
	config := &Config{BoltDB: BoltDBConfig{
		FilePath:   filepath.Join(t.TempDir(), "favorites.db"),
		Timeout:    time.Second,
		BucketName: "favorites",
	}}
	client, err := GetBoltDBClient(config)
	require.NoError(t, err)
	mirror := NewBoltFavoritesStorage(zap.NewNop(), &config.BoltDB, client)
	q := NewMemoryQueue(16)
	svc := NewFavoritesService(zap.NewNop(), NewMockClocker(), NewFavoritesStore(), q)

	consumer := NewMirrorConsumer(zap.NewNop(), q, mirror)
	app := &App{
		logger:       zap.NewNop(),
		config:       config,
		boltDBClient: client,
		queueConsumers: []func(context.Context) error{
			func(ctx context.Context) error { return consumer.Consume(ctx, FavoritesQueue) },
		},
	}

	cCtx, stopConsumers := context.WithCancel(context.Background())
	for _, b := range testBooks(5) {
		svc.Add(cCtx, b)
	}
	stopConsumers()
	require.NoError(t, app.ConsumeQueues(cCtx)())

	// ConsumeQueues closed the database, reopen it to read the mirror.
	client, err = GetBoltDBClient(config)
	require.NoError(t, err)
	defer client.Close()
	restored := NewFavoritesService(zap.NewNop(), NewMockClocker(), NewFavoritesStore(), nil)
	n, err := restored.Restore(context.Background(), NewBoltFavoritesStorage(zap.NewNop(), &config.BoltDB, client))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, svc.List(context.Background()), restored.List(context.Background()))
}
