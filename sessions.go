package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session is the server side state of one browser tab: its search
// page and the book details page currently mounted.
type Session struct {
	ID     string
	Search *SearchController

	mu       sync.Mutex
	detail   *DetailController
	lastSeen time.Time
}

// SessionRegistry creates and expires sessions. Controllers created by
// the registry share the same catalog client and favorites service.
type SessionRegistry struct {
	logger     *zap.Logger
	clock      TickerClocker
	catalog    CatalogClient
	favorites  FavoritesServiceProvider
	maxResults int
	ttl        time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionRegistry(logger *zap.Logger, clock TickerClocker, catalog CatalogClient, favorites FavoritesServiceProvider, maxResults int, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		logger:     logger,
		clock:      clock,
		catalog:    catalog,
		favorites:  favorites,
		maxResults: maxResults,
		ttl:        ttl,
		sessions:   make(map[string]*Session),
	}
}

// Get returns the session with the given id, creating it when unknown.
func (sr *SessionRegistry) Get(id string) *Session {
	now := sr.clock.Now()
	sr.mu.Lock()
	defer sr.mu.Unlock()
	s, ok := sr.sessions[id]
	if !ok {
		s = &Session{
			ID:     id,
			Search: NewSearchController(sr.logger, sr.catalog, sr.maxResults),
		}
		sr.sessions[id] = s
		SessionsGauge.Set(float64(len(sr.sessions)))
	}
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
	return s
}

// Len returns the number of live sessions.
func (sr *SessionRegistry) Len() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.sessions)
}

// Mount returns the details controller of the session for the book id. The
// mounted controller is reused when it already serves this id and did not
// fail, so that a remount does not fetch the book again. A failed one is
// replaced and the next load retries the fetch.
func (sr *SessionRegistry) Mount(s *Session, id string) *DetailController {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail != nil && s.detail.ID() == id && !s.detail.Failed() {
		return s.detail
	}
	s.detail = NewDetailController(sr.logger, sr.catalog, sr.favorites, id)
	return s.detail
}

// Mounted returns the details controller currently mounted for the book id.
func (s *Session) Mounted(id string) (*DetailController, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil || s.detail.ID() != id {
		return nil, false
	}
	return s.detail, true
}

// Sweep drops sessions idle for longer than the ttl and returns how many.
func (sr *SessionRegistry) Sweep() int {
	deadline := sr.clock.Now().Add(-sr.ttl)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	n := 0
	for id, s := range sr.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(deadline)
		s.mu.Unlock()
		if idle {
			delete(sr.sessions, id)
			n++
		}
	}
	SessionsGauge.Set(float64(len(sr.sessions)))
	return n
}

// RunSweeper sweeps expired sessions at every interval until ctx is done.
func (sr *SessionRegistry) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := sr.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sr.logger.Info("sessions: sweeper stopped", zap.String("reason", ctx.Err().Error()))
			return nil
		case <-ticker.C:
			if n := sr.Sweep(); n > 0 {
				sr.logger.Info("sessions: expired sessions removed", zap.Int("sessions.removed", n))
			}
		}
	}
}
