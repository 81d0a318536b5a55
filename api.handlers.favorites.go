package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const MsgNoFavorites = "You have no favorite books yet. Start adding some!"

// ListFavorites returns the favorite books in the order they were added.
func (api *APIHandler) ListFavorites(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books := api.favorites.List(r.Context())
	total := len(books)
	message := "All favorites fetched successfully."
	if total == 0 {
		message = MsgNoFavorites
	}
	api.send(r.Context(), w, http.StatusOK, message, &total, books)
}

// RemoveFavorite drops a book from favorites. Removing a book
// which is not a favorite succeeds and changes nothing.
func (api *APIHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	id := ps.ByName("id")
	removed := api.favorites.Remove(ctx, id)
	message := "Favorite removed successfully."
	if !removed {
		message = "Book was not in favorites."
	}
	api.logger.Info("remove favorite", zap.String("request.id", requestID), zap.String("book.id", id), zap.Bool("removed", removed))
	api.send(ctx, w, http.StatusOK, message, nil, map[string]interface{}{"id": id, "removed": removed})
}

// ClearFavorites empties the favorites collection and its mirror.
func (api *APIHandler) ClearFavorites(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	n := api.favorites.Clear(ctx)
	api.logger.Info("favorites cleared", zap.String("request.id", GetValueFromContext(ctx, RequestIDContextKey)), zap.Int("favorites.removed", n))
	api.send(ctx, w, http.StatusOK, "Favorites cleared successfully.", nil, map[string]interface{}{"removed": n})
}
