package main

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// FavoritesServiceProvider is the favorites api used by controllers and handlers.
type FavoritesServiceProvider interface {
	Add(ctx context.Context, book BookRecord) bool
	Remove(ctx context.Context, id string) bool
	Toggle(ctx context.Context, book BookRecord) bool
	Contains(ctx context.Context, id string) bool
	List(ctx context.Context) []BookRecord
	Clear(ctx context.Context) int
}

// FavoritesService owns the process-wide favorites store. Every change is
// published on the queue so a durable mirror can follow the collection.
type FavoritesService struct {
	// mu keeps the published events in the order of the store mutations.
	mu     sync.Mutex
	logger *zap.Logger
	clock  Clocker
	store  *FavoritesStore
	queue  Queuer
}

func NewFavoritesService(logger *zap.Logger, clock Clocker, store *FavoritesStore, queue Queuer) *FavoritesService {
	if queue == nil {
		queue = nopQueue{}
	}
	return &FavoritesService{
		logger: logger,
		clock:  clock,
		store:  store,
		queue:  queue,
	}
}

func (fs *FavoritesService) Add(ctx context.Context, book BookRecord) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	changed := fs.store.Add(book)
	if changed {
		fs.publish(ctx, FavoriteAdded, book)
	}
	return changed
}

func (fs *FavoritesService) Remove(ctx context.Context, id string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	changed := fs.store.Remove(id)
	if changed {
		fs.publish(ctx, FavoriteRemoved, BookRecord{ID: id})
	}
	return changed
}

// Toggle flips the membership of the book and returns the new state.
func (fs *FavoritesService) Toggle(ctx context.Context, book BookRecord) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	favorited := fs.store.Toggle(book)
	if favorited {
		fs.publish(ctx, FavoriteAdded, book)
	} else {
		fs.publish(ctx, FavoriteRemoved, BookRecord{ID: book.ID})
	}
	return favorited
}

// Clear empties the collection. The mirror is cleared as well even when
// the collection was already empty, so that both end up empty.
func (fs *FavoritesService) Clear(ctx context.Context) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := fs.store.Clear()
	fs.publish(ctx, FavoritesCleared, BookRecord{})
	return n
}

func (fs *FavoritesService) Contains(_ context.Context, id string) bool {
	return fs.store.Contains(id)
}

func (fs *FavoritesService) List(_ context.Context) []BookRecord {
	return fs.store.List()
}

// Restore fills the store from the mirror content, ordered by position.
// Restored books are not published again.
func (fs *FavoritesService) Restore(ctx context.Context, storage FavoritesStorage) (int, error) {
	entries, err := storage.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	n := 0
	for _, e := range entries {
		if fs.store.Add(e.Book) {
			n++
		}
	}
	FavoritesGauge.Set(float64(fs.store.Len()))
	return n, nil
}

func (fs *FavoritesService) publish(ctx context.Context, kind string, book BookRecord) {
	FavoritesGauge.Set(float64(fs.store.Len()))
	// the mirror must not depend on the lifetime of the caller's request.
	ctx = context.WithoutCancel(ctx)
	event := FavoriteEvent{Kind: kind, Book: book, At: fs.clock.Now()}
	if err := fs.queue.Push(ctx, FavoritesQueue, event); err != nil {
		fs.logger.Error("service: failed to push favorite event to queue", zap.String("qid", FavoritesQueue), zap.String("event.kind", kind), zap.String("book.id", book.ID), zap.Error(err))
	}
}
