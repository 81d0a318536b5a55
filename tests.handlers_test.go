package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAPIHandler(catalog CatalogClient) (*APIHandler, *FavoritesService) {
	clock := NewMockClocker()
	favorites := newTestFavorites()
	sessions := NewSessionRegistry(zap.NewNop(), clock, catalog, favorites, 20, time.Hour)
	api := NewAPIHandler(zap.NewNop(), nil, &Statistics{started: clock.Now()}, clock, NewMockUIDHandler("0", true), sessions, favorites)
	return api, favorites
}

// decodeResponse checks the json content type and decodes the response body.
func decodeResponse(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	m := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	api, _ := newTestAPIHandler(&MockCatalog{})
	api.Status(w, req, httprouter.Params{})
	res := w.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	m := decodeResponse(t, res)

	_, ok := m["requestid"]
	assert.True(t, ok)
	assert.Equal(t, "up & running since 0 mins", m["status"])
	assert.Equal(t, "Hello. Book explorer is available. Enjoy :)", m["message"])
}

func TestSearchHandlers(t *testing.T) {
	catalog := &MockCatalog{
		SearchFunc: func(ctx context.Context, query SearchQuery, maxResults int) ([]BookRecord, error) {
			switch query.String() {
			case "intitle:Dune":
				return testBooks(3), nil
			case "inauthor:Nobody":
				return nil, nil
			}
			return nil, &CatalogError{Op: "search", Kind: KindNetwork, StatusCode: 500}
		},
	}
	api, _ := newTestAPIHandler(catalog)

	submit := func(t *testing.T, body string) (*http.Response, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
		w := httptest.NewRecorder()
		api.SubmitSearch(w, req, httprouter.Params{})
		res := w.Result()
		return res, decodeResponse(t, res)
	}

	t.Run("idle page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		api.SearchPage(w, req, httprouter.Params{})
		res := w.Result()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m := decodeResponse(t, res)
		data := m["data"].(map[string]interface{})
		assert.Equal(t, string(SearchIdle), data["state"])
		assert.Equal(t, false, data["searched"])
	})

	t.Run("should pass: results", func(t *testing.T) {
		res, m := submit(t, `{"title": "Dune"}`)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, float64(3), m["total"])
		data := m["data"].(map[string]interface{})
		assert.Equal(t, string(SearchHasResults), data["state"])
		assert.Len(t, data["results"], 3)
	})

	t.Run("should pass: no results", func(t *testing.T) {
		res, m := submit(t, `{"author": "Nobody"}`)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, MsgNoResults, m["message"])
		assert.Equal(t, float64(0), m["total"])
	})

	t.Run("should fail: empty fields", func(t *testing.T) {
		res, m := submit(t, `{"title": "   "}`)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, MsgValidation, m["message"])
	})

	t.Run("should fail: empty body", func(t *testing.T) {
		res, _ := submit(t, ``)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("should fail: malformed body", func(t *testing.T) {
		res, m := submit(t, `{"title": `)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "failed to decode the search request", m["message"])
	})

	t.Run("should fail: catalog failure", func(t *testing.T) {
		res, m := submit(t, `{"genre": "poetry"}`)
		assert.Equal(t, http.StatusBadGateway, res.StatusCode)
		assert.Equal(t, MsgSearchFailure, m["message"])
	})

	assert.Equal(t, 3, catalog.SearchCalls())
}

//nolint:funlen
func TestBookHandlers(t *testing.T) {
	book := BookRecord{ID: "zyTCAlFPjgYC", Title: "The Google Story"}
	catalog := &MockCatalog{
		FetchByIDFunc: func(ctx context.Context, id string) (BookRecord, error) {
			switch id {
			case book.ID:
				return book, nil
			case "broken":
				return BookRecord{}, &CatalogError{Op: "lookup", Kind: KindNetwork, StatusCode: 500}
			}
			return BookRecord{}, &CatalogError{Op: "lookup", Kind: KindNotFound, StatusCode: 404}
		},
	}
	api, favorites := newTestAPIHandler(catalog)
	params := func(id string) httprouter.Params {
		return httprouter.Params{{Key: "id", Value: id}}
	}

	t.Run("should fail: toggle before details", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/book/"+book.ID+"/favorite", nil)
		w := httptest.NewRecorder()
		api.ToggleFavorite(w, req, params(book.ID))
		assert.Equal(t, http.StatusConflict, w.Result().StatusCode)
	})

	t.Run("should pass: get details", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/book/"+book.ID, nil)
			w := httptest.NewRecorder()
			api.GetBookDetails(w, req, params(book.ID))
			res := w.Result()
			assert.Equal(t, http.StatusOK, res.StatusCode)
			m := decodeResponse(t, res)
			data := m["data"].(map[string]interface{})
			assert.Equal(t, string(DetailLoaded), data["state"])
			assert.Equal(t, false, data["isFavorite"])
			assert.Equal(t, "The Google Story", data["book"].(map[string]interface{})["title"])
		}
		// the remount of the same book reuses the fetched record.
		assert.Equal(t, 1, catalog.FetchCalls())
	})

	t.Run("should pass: toggle favorite", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/book/"+book.ID+"/favorite", nil)
		w := httptest.NewRecorder()
		api.ToggleFavorite(w, req, params(book.ID))
		res := w.Result()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m := decodeResponse(t, res)
		assert.Equal(t, "Added to Favorites", m["message"])
		data := m["data"].(map[string]interface{})
		assert.Equal(t, true, data["isFavorite"])
		assert.NotNil(t, data["notice"])
		assert.True(t, favorites.Contains(context.Background(), book.ID))
	})

	t.Run("should pass: dismiss notice", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/book/"+book.ID+"/notice", nil)
		w := httptest.NewRecorder()
		api.DismissNotice(w, req, params(book.ID))
		res := w.Result()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m := decodeResponse(t, res)
		data := m["data"].(map[string]interface{})
		_, ok := data["notice"]
		assert.False(t, ok)
	})

	t.Run("should pass: toggle back", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/book/"+book.ID+"/favorite", nil)
		w := httptest.NewRecorder()
		api.ToggleFavorite(w, req, params(book.ID))
		m := decodeResponse(t, w.Result())
		assert.Equal(t, "Removed from Favorites", m["message"])
		assert.False(t, favorites.Contains(context.Background(), book.ID))
	})

	t.Run("should fail: unknown book", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/book/unknown", nil)
		w := httptest.NewRecorder()
		api.GetBookDetails(w, req, params("unknown"))
		res := w.Result()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		m := decodeResponse(t, res)
		data := m["data"].(map[string]interface{})
		assert.Equal(t, MsgDetailFailure, data["message"])
	})

	t.Run("should fail: catalog failure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/book/broken", nil)
		w := httptest.NewRecorder()
		api.GetBookDetails(w, req, params("broken"))
		res := w.Result()
		assert.Equal(t, http.StatusBadGateway, res.StatusCode)
		m := decodeResponse(t, res)
		assert.Equal(t, MsgDetailFailure, m["message"])
	})

	t.Run("should fail: invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/book/x", nil)
		w := httptest.NewRecorder()
		api.GetBookDetails(w, req, params(strings.Repeat("x", 65)))
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("should fail: toggle other book than mounted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/book/"+book.ID+"/favorite", nil)
		w := httptest.NewRecorder()
		api.ToggleFavorite(w, req, params(book.ID))
		assert.Equal(t, http.StatusConflict, w.Result().StatusCode)
	})
}

// TestBookDetailsRetry ensures a failed fetch is retried on the next visit
// of the same book page while a loaded page is never fetched again.
func TestBookDetailsRetry(t *testing.T) {
	book := BookRecord{ID: "zyTCAlFPjgYC", Title: "The Google Story"}
	var mu sync.Mutex
	failures := 1
	catalog := &MockCatalog{
		FetchByIDFunc: func(ctx context.Context, id string) (BookRecord, error) {
			mu.Lock()
			defer mu.Unlock()
			if failures > 0 {
				failures--
				return BookRecord{}, &CatalogError{Op: "lookup", Kind: KindNetwork, StatusCode: http.StatusServiceUnavailable}
			}
			return book, nil
		},
	}
	api, _ := newTestAPIHandler(catalog)
	params := httprouter.Params{{Key: "id", Value: book.ID}}

	expected := []int{http.StatusBadGateway, http.StatusOK, http.StatusOK}
	for i, status := range expected {
		req := httptest.NewRequest(http.MethodGet, "/book/"+book.ID, nil)
		w := httptest.NewRecorder()
		api.GetBookDetails(w, req, params)
		assert.Equal(t, status, w.Result().StatusCode, "attempt %d", i+1)

		w = httptest.NewRecorder()
		api.ListFavorites(w, httptest.NewRequest(http.MethodGet, "/favorites", nil), nil)
	}
	assert.Equal(t, 2, catalog.FetchCalls())
}

func TestFavoritesHandlers(t *testing.T) {
	api, favorites := newTestAPIHandler(&MockCatalog{})
	books := testBooks(3)
	for _, b := range books {
		favorites.Add(context.Background(), b)
	}

	t.Run("list in insertion order", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
		w := httptest.NewRecorder()
		api.ListFavorites(w, req, httprouter.Params{})
		res := w.Result()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m := decodeResponse(t, res)
		assert.Equal(t, float64(3), m["total"])
		data := m["data"].([]interface{})
		require.Len(t, data, 3)
		for i, b := range books {
			assert.Equal(t, b.ID, data[i].(map[string]interface{})["id"])
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		for i, expected := range []bool{true, false} {
			req := httptest.NewRequest(http.MethodDelete, "/favorites/"+books[1].ID, nil)
			w := httptest.NewRecorder()
			api.RemoveFavorite(w, req, httprouter.Params{{Key: "id", Value: books[1].ID}})
			res := w.Result()
			assert.Equal(t, http.StatusOK, res.StatusCode, "call %d", i)
			m := decodeResponse(t, res)
			assert.Equal(t, expected, m["data"].(map[string]interface{})["removed"])
		}
		assert.Len(t, favorites.List(context.Background()), 2)
	})

	t.Run("clear all", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/ops/favorites", nil)
		w := httptest.NewRecorder()
		api.ClearFavorites(w, req, httprouter.Params{})
		res := w.Result()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m := decodeResponse(t, res)
		assert.Equal(t, float64(2), m["data"].(map[string]interface{})["removed"])
		assert.Empty(t, favorites.List(context.Background()))
	})

	t.Run("empty list message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
		w := httptest.NewRecorder()
		api.ListFavorites(w, req, httprouter.Params{})
		m := decodeResponse(t, w.Result())
		assert.Equal(t, float64(0), m["total"])
		assert.Equal(t, MsgNoFavorites, m["message"])
		assert.Empty(t, m["data"])
	})
}

// TestSubmitSearchSuperseded ensures a search overtaken by a newer one on
// the same session does not answer as a successful fetch.
func TestSubmitSearchSuperseded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	catalog := &MockCatalog{
		SearchFunc: func(ctx context.Context, query SearchQuery, maxResults int) ([]BookRecord, error) {
			if query.String() == "intitle:slow" {
				close(started)
				<-release
				return testBooks(1), nil
			}
			return testBooks(3), nil
		},
	}
	api, _ := newTestAPIHandler(catalog)

	slow := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"title":"slow"}`))
		api.SubmitSearch(slow, req, httprouter.Params{})
	}()
	<-started

	fast := httptest.NewRecorder()
	api.SubmitSearch(fast, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"title":"fast"}`)), httprouter.Params{})
	assert.Equal(t, http.StatusOK, fast.Result().StatusCode)

	close(release)
	<-done
	res := slow.Result()
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	m := decodeResponse(t, res)
	assert.Equal(t, "search superseded by a newer one", m["message"])
	data := m["data"].(map[string]interface{})
	assert.Equal(t, "intitle:fast", data["query"])
}

func TestMaintenanceHandler(t *testing.T) {
	api, _ := newTestAPIHandler(&MockCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=enable&msg=upgrade", nil)
	w := httptest.NewRecorder()
	api.Maintenance(w, req, httprouter.Params{})
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.True(t, api.mode.enabled.Load())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	api.MaintenanceModeMiddleware(api.SearchPage)(w, req, httprouter.Params{})
	res := w.Result()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	m := decodeResponse(t, res)
	assert.Equal(t, "upgrade", m["reason"])

	req = httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=disable", nil)
	w = httptest.NewRecorder()
	api.Maintenance(w, req, httprouter.Params{})
	assert.False(t, api.mode.enabled.Load())

	req = httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=unknown", nil)
	w = httptest.NewRecorder()
	api.Maintenance(w, req, httprouter.Params{})
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestStatisticsHandler(t *testing.T) {
	api, favorites := newTestAPIHandler(&MockCatalog{})
	favorites.Add(context.Background(), testBooks(1)[0])
	api.stats.called = 5
	api.stats.status[http.StatusOK] = 4

	req := httptest.NewRequest(http.MethodGet, "/ops/stats", nil)
	w := httptest.NewRecorder()
	api.GetStatistics(w, req, httprouter.Params{})
	m := decodeResponse(t, w.Result())
	assert.Equal(t, float64(4), m["called"])
	assert.Equal(t, float64(1), m["favorites"])
	assert.Equal(t, map[string]interface{}{"200": float64(4)}, m["status"])
}

func TestConfigsHandlerHidesSecrets(t *testing.T) {
	api, _ := newTestAPIHandler(&MockCatalog{})
	api.config = &Config{Catalog: CatalogConfig{APIKey: "catalog-secret"}, Redis: RedisConfig{Password: "redis-secret"}}
	req := httptest.NewRequest(http.MethodGet, "/ops/configs", nil)
	w := httptest.NewRecorder()
	api.GetConfigs(w, req, httprouter.Params{})
	body := new(bytes.Buffer)
	_, err := body.ReadFrom(w.Result().Body)
	require.NoError(t, err)
	assert.NotContains(t, body.String(), "catalog-secret")
	assert.NotContains(t, body.String(), "redis-secret")
}
