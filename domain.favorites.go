package main

import "time"

// Favorite event kinds. All events travel on a single queue so
// that their order is kept.
const (
	FavoriteAdded    = "added"
	FavoriteRemoved  = "removed"
	FavoritesCleared = "cleared"
	FavoritesQueue   = "favorites.events"
)

// FavoriteEntry is a favorite book as kept by a durable mirror.
// Position preserves the insertion order across restarts.
type FavoriteEntry struct {
	Book     BookRecord `json:"book"`
	Position uint64     `json:"position"`
}

// FavoriteEvent describes a change of the favorites collection.
type FavoriteEvent struct {
	Kind string     `json:"kind"`
	Book BookRecord `json:"book"`
	At   time.Time  `json:"at"`
}
