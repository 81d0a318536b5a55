package main

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Messages shown to users by the search page.
const (
	MsgValidation    = "Please fill at least one search field."
	MsgSearchFailure = "Something went wrong. Please try again."
	MsgNoResults     = "No books found. Try searching by title, author, or genre."
)

// SearchState is the lifecycle state of the search page.
type SearchState string

const (
	SearchIdle         SearchState = "idle"
	SearchLoading      SearchState = "loading"
	SearchHasResults   SearchState = "results"
	SearchEmptyResults SearchState = "empty"
	SearchError        SearchState = "error"
)

// SearchFields is the structured search form input.
type SearchFields struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
}

// SearchQuery is the serialized catalog expression built from SearchFields.
// It holds the words of all terms in order, the qualifier being glued to
// the first word of its term.
type SearchQuery struct {
	words []string
}

// BuildSearchQuery validates the fields and serializes them in order as
// `intitle:<title>`, `inauthor:<author>` and `<genre>`. Whitespace runs
// inside a term become the `+` delimiter.
func BuildSearchQuery(fields SearchFields) (SearchQuery, error) {
	var q SearchQuery
	q.add("intitle:", fields.Title)
	q.add("inauthor:", fields.Author)
	q.add("", fields.Genre)
	if q.IsZero() {
		return q, ErrValidation
	}
	return q, nil
}

func (q *SearchQuery) add(qualifier, term string) {
	words := strings.Fields(term)
	if len(words) == 0 {
		return
	}
	words[0] = qualifier + words[0]
	q.words = append(q.words, words...)
}

// String returns the query with `+` delimiters, e.g. `intitle:Dune+scifi`.
func (q SearchQuery) String() string {
	return strings.Join(q.words, "+")
}

// Encode returns the query form-encoded for the `q` parameter. Delimiters
// stay `+` so the catalog reads them as separators.
func (q SearchQuery) Encode() string {
	parts := make([]string, len(q.words))
	for i, w := range q.words {
		parts[i] = url.QueryEscape(w)
	}
	return strings.Join(parts, "+")
}

// IsZero tells if the query holds no term.
func (q SearchQuery) IsZero() bool {
	return len(q.words) == 0
}

// SearchView is what the search page renders.
type SearchView struct {
	State      SearchState  `json:"state"`
	Searched   bool         `json:"searched"`
	Query      string       `json:"query,omitempty"`
	Results    []BookRecord `json:"results"`
	Total      int          `json:"total"`
	Message    string       `json:"message,omitempty"`
	Validation string       `json:"validation,omitempty"`
}

// SearchController drives the search page of one session. Every submit is
// tagged with a sequence number and only the latest response is applied.
type SearchController struct {
	logger     *zap.Logger
	catalog    CatalogClient
	maxResults int

	mu         sync.Mutex
	seq        uint64
	state      SearchState
	searched   bool
	query      string
	results    []BookRecord
	message    string
	validation string
}

func NewSearchController(logger *zap.Logger, catalog CatalogClient, maxResults int) *SearchController {
	return &SearchController{
		logger:     logger,
		catalog:    catalog,
		maxResults: maxResults,
		state:      SearchIdle,
	}
}

// Submit builds the query from the fields and runs the search. Empty fields
// return ErrValidation without any catalog call and keep the current state.
// A response arriving after a newer submit is dropped and ErrSearchSuperseded
// is returned with the current view. Catalog failures are not returned: they
// are reflected in the view.
func (sc *SearchController) Submit(ctx context.Context, fields SearchFields) (SearchView, error) {
	query, err := BuildSearchQuery(fields)
	if err != nil {
		sc.mu.Lock()
		sc.validation = MsgValidation
		view := sc.view()
		sc.mu.Unlock()
		return view, err
	}

	sc.mu.Lock()
	sc.seq++
	seq := sc.seq
	sc.state = SearchLoading
	sc.searched = true
	sc.query = query.String()
	sc.results = nil
	sc.message = ""
	sc.validation = ""
	sc.mu.Unlock()

	books, err := sc.catalog.Search(ctx, query, sc.maxResults)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if seq != sc.seq {
		sc.logger.Debug("search: stale response discarded",
			zap.String("request.id", GetValueFromContext(ctx, RequestIDContextKey)),
			zap.Uint64("search.seq", seq),
			zap.Uint64("search.latest", sc.seq),
		)
		return sc.view(), ErrSearchSuperseded
	}

	switch {
	case err != nil:
		sc.logger.Error("search: catalog request failed",
			zap.String("request.id", GetValueFromContext(ctx, RequestIDContextKey)),
			zap.String("search.query", query.String()),
			zap.Error(err),
		)
		sc.state = SearchError
		sc.message = MsgSearchFailure
	case len(books) == 0:
		sc.state = SearchEmptyResults
		sc.message = MsgNoResults
	default:
		sc.state = SearchHasResults
		sc.results = books
	}
	return sc.view(), nil
}

// View returns a snapshot of the search page.
func (sc *SearchController) View() SearchView {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.view()
}

func (sc *SearchController) view() SearchView {
	results := make([]BookRecord, len(sc.results))
	copy(results, sc.results)
	return SearchView{
		State:      sc.state,
		Searched:   sc.searched,
		Query:      sc.query,
		Results:    results,
		Total:      len(results),
		Message:    sc.message,
		Validation: sc.validation,
	}
}
