package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// session returns the session attached to the request by the session middleware.
func (api *APIHandler) session(r *http.Request) *Session {
	return api.sessions.Get(GetValueFromContext(r.Context(), SessionIDContextKey))
}

func (api *APIHandler) sendError(ctx context.Context, w http.ResponseWriter, status int, message string, data interface{}) {
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	errResp := NewAPIError(requestID, status, message, data)
	if err := WriteErrorResponse(ctx, w, errResp); err != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}

func (api *APIHandler) send(ctx context.Context, w http.ResponseWriter, status int, message string, total *int, data interface{}) {
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	resp := GenericResponse(requestID, status, message, total, data)
	if err := WriteResponse(ctx, w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// SearchPage returns the current search page of the caller session.
func (api *APIHandler) SearchPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	view := api.session(r).Search.View()
	api.send(r.Context(), w, http.StatusOK, "Search page fetched successfully.", &view.Total, view)
}

// SubmitSearch runs a search from the posted form fields. Validation failures
// answer 400, a search overtaken by a newer one 409 and catalog failures 502,
// all with the page in the data field.
func (api *APIHandler) SubmitSearch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	var fields SearchFields
	if err := DecodeSearchRequestBody(r, &fields); err != nil {
		api.logger.Error("failed to decode search request", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(ctx, w, http.StatusBadRequest, "failed to decode the search request", EmptyData)
		return
	}

	view, err := api.session(r).Search.Submit(ctx, fields)
	if errors.Is(err, ErrValidation) {
		api.logger.Info("search rejected", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(ctx, w, http.StatusBadRequest, MsgValidation, view)
		return
	}
	if errors.Is(err, ErrSearchSuperseded) {
		api.sendError(ctx, w, http.StatusConflict, "search superseded by a newer one", view)
		return
	}

	switch view.State {
	case SearchError:
		api.sendError(ctx, w, http.StatusBadGateway, view.Message, view)
	case SearchEmptyResults:
		api.send(ctx, w, http.StatusOK, view.Message, &view.Total, view)
	default:
		api.logger.Info("success to search books",
			zap.String("request.id", requestID),
			zap.String("search.query", view.Query),
			zap.Int("search.total", view.Total),
		)
		api.send(ctx, w, http.StatusOK, "Books fetched successfully.", &view.Total, view)
	}
}
