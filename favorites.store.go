package main

import "sync"

// FavoritesStore is the in-memory favorites collection. Records are kept
// in insertion order and are unique by id. The store owns copies of the
// records it is given.
type FavoritesStore struct {
	mu    sync.RWMutex
	books []BookRecord
	index map[string]int
}

// NewFavoritesStore returns an empty store.
func NewFavoritesStore() *FavoritesStore {
	return &FavoritesStore{index: make(map[string]int)}
}

// Add inserts the record unless its id is already present.
// It reports whether the collection changed.
func (fs *FavoritesStore) Add(book BookRecord) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.add(book)
}

// Remove deletes the record with the given id if present.
// It reports whether the collection changed.
func (fs *FavoritesStore) Remove(id string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.remove(id)
}

// Toggle removes the record if it is a member, adds it otherwise. Membership
// is read and changed under the same lock. It returns the new membership.
func (fs *FavoritesStore) Toggle(book BookRecord) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.index[book.ID]; ok {
		fs.remove(book.ID)
		return false
	}
	fs.add(book)
	return true
}

// Contains is the single source of truth for "is favorited".
func (fs *FavoritesStore) Contains(id string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.index[id]
	return ok
}

// List returns a copy of the collection in insertion order.
func (fs *FavoritesStore) List() []BookRecord {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	books := make([]BookRecord, 0, len(fs.books))
	for _, b := range fs.books {
		books = append(books, b.Clone())
	}
	return books
}

// Clear empties the collection and returns how many records it held.
func (fs *FavoritesStore) Clear() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := len(fs.books)
	fs.books = nil
	fs.index = make(map[string]int)
	return n
}

// Len returns the number of favorites.
func (fs *FavoritesStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.books)
}

func (fs *FavoritesStore) add(book BookRecord) bool {
	if _, ok := fs.index[book.ID]; ok {
		return false
	}
	fs.index[book.ID] = len(fs.books)
	fs.books = append(fs.books, book.Clone())
	return true
}

func (fs *FavoritesStore) remove(id string) bool {
	pos, ok := fs.index[id]
	if !ok {
		return false
	}
	fs.books = append(fs.books[:pos], fs.books[pos+1:]...)
	delete(fs.index, id)
	for i := pos; i < len(fs.books); i++ {
		fs.index[fs.books[i].ID] = i
	}
	return true
}
