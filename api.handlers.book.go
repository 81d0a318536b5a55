package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// GetBookDetails mounts the details page of the book on the caller session
// and waits for its record. A remount of the same id does not refetch.
func (api *APIHandler) GetBookDetails(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	id := ps.ByName("id")
	if err := ValidateBookID(id); err != nil {
		api.logger.Error("invalid book id", zap.String("request.id", requestID), zap.String("book.id", id), zap.Error(err))
		api.sendError(ctx, w, http.StatusBadRequest, "invalid book id", EmptyData)
		return
	}

	dc := api.sessions.Mount(api.session(r), id)
	view := dc.Load(ctx)
	switch view.State {
	case DetailError:
		if dc.NotFound() {
			api.sendError(ctx, w, http.StatusNotFound, "book does not exist", view)
			return
		}
		api.sendError(ctx, w, http.StatusBadGateway, MsgDetailFailure, view)
	case DetailLoading:
		// the caller gave up before the fetch completed.
		api.sendError(ctx, w, http.StatusGatewayTimeout, "book details still loading", view)
	default:
		api.logger.Info("success to get book", zap.String("request.id", requestID), zap.String("book.id", id))
		api.send(ctx, w, http.StatusOK, "Book fetched successfully.", nil, view)
	}
}

// ToggleFavorite adds the mounted book to favorites or removes it.
func (api *APIHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	id := ps.ByName("id")
	dc, ok := api.session(r).Mounted(id)
	if !ok {
		api.sendError(ctx, w, http.StatusConflict, "book details not loaded", EmptyData)
		return
	}
	view, err := dc.ToggleFavorite(ctx)
	if err != nil {
		api.logger.Error("failed to toggle favorite", zap.String("request.id", requestID), zap.String("book.id", id), zap.Error(err))
		api.sendError(ctx, w, http.StatusConflict, "book details not loaded", view)
		return
	}
	api.logger.Info("favorite toggled",
		zap.String("request.id", requestID),
		zap.String("book.id", id),
		zap.Bool("book.favorite", view.IsFavorite),
	)
	api.send(ctx, w, http.StatusOK, view.Notice.Title, nil, view)
}

// DismissNotice closes the confirmation notice of the mounted book page.
func (api *APIHandler) DismissNotice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	dc, ok := api.session(r).Mounted(ps.ByName("id"))
	if !ok {
		api.sendError(ctx, w, http.StatusConflict, "book details not loaded", EmptyData)
		return
	}
	dc.DismissNotice()
	api.send(ctx, w, http.StatusOK, "Notice dismissed.", nil, dc.View(ctx))
}
