package main

import "context"

// FavoritesStorage is a durable mirror of the favorites collection.
// Add keeps the first position of a book already stored.
type FavoritesStorage interface {
	Add(ctx context.Context, book BookRecord) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]FavoriteEntry, error)
	DeleteAll(ctx context.Context) error
}
