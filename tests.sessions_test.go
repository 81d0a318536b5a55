package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSessions(clock *MockClocker) (*SessionRegistry, *MockCatalog) {
	catalog := &MockCatalog{
		FetchByIDFunc: func(ctx context.Context, id string) (BookRecord, error) {
			return BookRecord{ID: id, Title: "Book " + id}, nil
		},
	}
	return NewSessionRegistry(zap.NewNop(), clock, catalog, newTestFavorites(), 20, time.Hour), catalog
}

func TestSessionRegistry(t *testing.T) {
	t.Run("get creates then reuses", func(t *testing.T) {
		sr, _ := newTestSessions(NewMockClocker())
		s1 := sr.Get("s:1")
		s2 := sr.Get("s:1")
		s3 := sr.Get("s:2")
		assert.Same(t, s1, s2)
		assert.NotSame(t, s1, s3)
		assert.NotSame(t, s1.Search, s3.Search)
		assert.Equal(t, 2, sr.Len())
	})

	t.Run("mount reuses the controller of the same book", func(t *testing.T) {
		sr, catalog := newTestSessions(NewMockClocker())
		s := sr.Get("s:1")
		dc1 := sr.Mount(s, "vol00")
		dc1.Load(context.Background())
		dc2 := sr.Mount(s, "vol00")
		assert.Same(t, dc1, dc2)
		view := dc2.Load(context.Background())
		assert.Equal(t, DetailLoaded, view.State)
		assert.Equal(t, 1, catalog.FetchCalls())
	})

	t.Run("mount replaces a failed controller", func(t *testing.T) {
		sr, catalog := newTestSessions(NewMockClocker())
		catalog.FetchByIDFunc = func(ctx context.Context, id string) (BookRecord, error) {
			return BookRecord{}, &CatalogError{Op: "lookup", Kind: KindNetwork, Err: context.DeadlineExceeded}
		}
		s := sr.Get("s:1")
		dc1 := sr.Mount(s, "vol00")
		assert.Equal(t, DetailError, dc1.Load(context.Background()).State)

		catalog.FetchByIDFunc = func(ctx context.Context, id string) (BookRecord, error) {
			return BookRecord{ID: id}, nil
		}
		dc2 := sr.Mount(s, "vol00")
		assert.NotSame(t, dc1, dc2)
		assert.Equal(t, DetailLoaded, dc2.Load(context.Background()).State)
		assert.Equal(t, 2, catalog.FetchCalls())
	})

	t.Run("mount of another book replaces the controller", func(t *testing.T) {
		sr, _ := newTestSessions(NewMockClocker())
		s := sr.Get("s:1")
		dc1 := sr.Mount(s, "vol00")
		dc2 := sr.Mount(s, "vol01")
		assert.NotSame(t, dc1, dc2)

		_, ok := s.Mounted("vol00")
		assert.False(t, ok)
		dc, ok := s.Mounted("vol01")
		require.True(t, ok)
		assert.Same(t, dc2, dc)
	})

	t.Run("sweep removes idle sessions", func(t *testing.T) {
		clock := NewMockClocker()
		sr, _ := newTestSessions(clock)
		sr.Get("s:old")
		clock.Advance(45 * time.Minute)
		sr.Get("s:new")
		clock.Advance(30 * time.Minute)

		assert.Equal(t, 1, sr.Sweep())
		assert.Equal(t, 1, sr.Len())
		assert.Equal(t, 0, sr.Sweep())
	})

	t.Run("sweeper stops with the context", func(t *testing.T) {
		sr, _ := newTestSessions(NewMockClocker())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- sr.RunSweeper(ctx, time.Millisecond) }()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop")
		}
	})
}
