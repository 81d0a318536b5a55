package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

// MockCatalog implements a fake CatalogClient which counts its calls.
type MockCatalog struct {
	SearchFunc    func(ctx context.Context, query SearchQuery, maxResults int) ([]BookRecord, error)
	FetchByIDFunc func(ctx context.Context, id string) (BookRecord, error)
	searchCalls   atomic.Int32
	fetchCalls    atomic.Int32
}

// Search mocks the catalog search call.
func (m *MockCatalog) Search(ctx context.Context, query SearchQuery, maxResults int) ([]BookRecord, error) {
	m.searchCalls.Add(1)
	return m.SearchFunc(ctx, query, maxResults)
}

// FetchByID mocks the catalog lookup call.
func (m *MockCatalog) FetchByID(ctx context.Context, id string) (BookRecord, error) {
	m.fetchCalls.Add(1)
	return m.FetchByIDFunc(ctx, id)
}

func (m *MockCatalog) SearchCalls() int {
	return int(m.searchCalls.Load())
}

func (m *MockCatalog) FetchCalls() int {
	return int(m.fetchCalls.Load())
}

// MockFavoritesStorage implements a fake FavoritesStorage.
type MockFavoritesStorage struct {
	AddFunc       func(ctx context.Context, book BookRecord) error
	DeleteFunc    func(ctx context.Context, id string) error
	GetAllFunc    func(ctx context.Context) ([]FavoriteEntry, error)
	DeleteAllFunc func(ctx context.Context) error
}

// Add mocks the behavior of favorite insertion by the mirror.
func (m *MockFavoritesStorage) Add(ctx context.Context, book BookRecord) error {
	return m.AddFunc(ctx, book)
}

// Delete mocks the behavior of favorite deletion by the mirror.
func (m *MockFavoritesStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all favorites by the mirror.
func (m *MockFavoritesStorage) GetAll(ctx context.Context) ([]FavoriteEntry, error) {
	return m.GetAllFunc(ctx)
}

// DeleteAll mocks the behavior of clearing the mirror.
func (m *MockFavoritesStorage) DeleteAll(ctx context.Context) error {
	return m.DeleteAllFunc(ctx)
}

// MockQueue implements a fake Queuer which records pushed events.
type MockQueue struct {
	mu     sync.Mutex
	Events []FavoriteEvent
	Err    error
}

func (mq *MockQueue) Push(_ context.Context, _ string, event FavoriteEvent) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.Err != nil {
		return mq.Err
	}
	mq.Events = append(mq.Events, event)
	return nil
}

func (mq *MockQueue) Pop(ctx context.Context, _ ...string) (string, FavoriteEvent, error) {
	<-ctx.Done()
	return "", FavoriteEvent{}, ctx.Err()
}

// Pushed returns a copy of the recorded events.
func (mq *MockQueue) Pushed() []FavoriteEvent {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	events := make([]FavoriteEvent, len(mq.Events))
	copy(events, mq.Events)
	return events
}

// MockClocker implements a fake TickerClocker.
type MockClocker struct {
	mu      sync.Mutex
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{MockNow: time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	mck.mu.Lock()
	defer mck.mu.Unlock()
	return mck.MockNow
}

// Advance moves the mocked time forward.
func (mck *MockClocker) Advance(d time.Duration) {
	mck.mu.Lock()
	mck.MockNow = mck.MockNow.Add(d)
	mck.mu.Unlock()
}

// NewTicker returns a real ticker with the given period.
func (mck *MockClocker) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// testBooks builds n distinct book records.
func testBooks(n int) []BookRecord {
	books := make([]BookRecord, n)
	for i := range books {
		books[i] = BookRecord{
			ID:      fmt.Sprintf("vol%02d", i),
			Title:   fmt.Sprintf("Book %02d", i),
			Authors: []string{"Author"},
		}
	}
	return books
}
