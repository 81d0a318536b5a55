package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects the search, book details and favorites endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.GET("/", m.public(api.Instrument("/", api.SearchPage)))
	router.GET("/status", m.public(api.Instrument("/status", api.Status)))
	router.POST("/search", m.public(api.Instrument("/search", api.SubmitSearch)))
	router.GET("/book/:id", m.public(api.Instrument("/book/:id", api.GetBookDetails)))
	router.POST("/book/:id/favorite", m.public(api.Instrument("/book/:id/favorite", api.ToggleFavorite)))
	router.DELETE("/book/:id/notice", m.public(api.Instrument("/book/:id/notice", api.DismissNotice)))
	router.GET("/favorites", m.public(api.Instrument("/favorites", api.ListFavorites)))
	router.DELETE("/favorites/:id", m.public(api.Instrument("/favorites/:id", api.RemoveFavorite)))
	return router
}
