package main

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const MsgDetailFailure = "Error loading book details"

// DetailState is the lifecycle state of a book details page.
type DetailState string

const (
	DetailLoading DetailState = "loading"
	DetailLoaded  DetailState = "loaded"
	DetailError   DetailState = "error"
)

// Notice is the transient confirmation shown after a favorite toggle.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// DetailView is what the book details page renders.
type DetailView struct {
	ID         string      `json:"id"`
	State      DetailState `json:"state"`
	Book       *BookRecord `json:"book,omitempty"`
	IsFavorite bool        `json:"isFavorite"`
	Message    string      `json:"message,omitempty"`
	Notice     *Notice     `json:"notice,omitempty"`
}

// DetailController drives one mount of the book details page. The record
// is fetched at most once for the lifetime of the controller.
type DetailController struct {
	logger    *zap.Logger
	catalog   CatalogClient
	favorites FavoritesServiceProvider
	id        string

	mu      sync.Mutex
	started bool
	done    chan struct{}
	state   DetailState
	book    BookRecord
	err     error
	notice  *Notice
}

func NewDetailController(logger *zap.Logger, catalog CatalogClient, favorites FavoritesServiceProvider, id string) *DetailController {
	return &DetailController{
		logger:    logger,
		catalog:   catalog,
		favorites: favorites,
		id:        id,
		done:      make(chan struct{}),
		state:     DetailLoading,
	}
}

// ID returns the book identifier this controller was mounted for.
func (dc *DetailController) ID() string {
	return dc.id
}

// Load fetches the record on the first call only. Later or concurrent calls
// wait for that fetch to complete. The fetch itself does not follow the
// cancellation of ctx, a caller giving up only stops waiting.
func (dc *DetailController) Load(ctx context.Context) DetailView {
	dc.mu.Lock()
	if dc.started {
		dc.mu.Unlock()
		select {
		case <-dc.done:
		case <-ctx.Done():
		}
		return dc.View(ctx)
	}
	dc.started = true
	dc.mu.Unlock()

	book, err := dc.catalog.FetchByID(context.WithoutCancel(ctx), dc.id)

	dc.mu.Lock()
	if err != nil {
		dc.logger.Error("detail: failed to fetch book",
			zap.String("request.id", GetValueFromContext(ctx, RequestIDContextKey)),
			zap.String("book.id", dc.id),
			zap.Error(err),
		)
		dc.state = DetailError
		dc.err = err
	} else {
		dc.state = DetailLoaded
		dc.book = book
	}
	close(dc.done)
	dc.mu.Unlock()
	return dc.View(ctx)
}

// Err returns the fetch failure if any.
func (dc *DetailController) Err() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.err
}

// Failed tells if the fetch completed with an error.
func (dc *DetailController) Failed() bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.state == DetailError
}

// NotFound tells if the fetch failed because the catalog does not know the id.
func (dc *DetailController) NotFound() bool {
	return errors.Is(dc.Err(), ErrBookNotFound)
}

// View returns a snapshot of the page. IsFavorite is read from the
// favorites service on every call.
func (dc *DetailController) View(ctx context.Context) DetailView {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	view := DetailView{ID: dc.id, State: dc.state, Notice: dc.notice}
	switch dc.state {
	case DetailLoaded:
		book := dc.book.Clone()
		view.Book = &book
		view.IsFavorite = dc.favorites.Contains(ctx, dc.book.ID)
	case DetailError:
		view.Message = MsgDetailFailure
	}
	return view
}

// ToggleFavorite flips the favorite membership of the loaded book and
// raises the matching confirmation notice.
func (dc *DetailController) ToggleFavorite(ctx context.Context) (DetailView, error) {
	dc.mu.Lock()
	if dc.state != DetailLoaded {
		dc.mu.Unlock()
		return dc.View(ctx), ErrDetailNotLoaded
	}
	book := dc.book
	dc.mu.Unlock()

	favorited := dc.favorites.Toggle(ctx, book)
	notice := &Notice{
		Title:   "Removed from Favorites",
		Message: "The book has been successfully removed from your favorites.",
	}
	if favorited {
		notice = &Notice{
			Title:   "Added to Favorites",
			Message: "The book has been successfully added to your favorites.",
		}
	}

	dc.mu.Lock()
	dc.notice = notice
	dc.mu.Unlock()
	return dc.View(ctx), nil
}

// DismissNotice closes the confirmation notice.
func (dc *DetailController) DismissNotice() {
	dc.mu.Lock()
	dc.notice = nil
	dc.mu.Unlock()
}
