package main

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var EmptyData = struct{}{}

const defaultSessionCookie = "bkex_session"

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger     *zap.Logger
	config     *Config
	stats      *Statistics
	mode       *Maintenance
	clock      Clocker
	idsHandler UIDHandler
	sessions   *SessionRegistry
	favorites  FavoritesServiceProvider
	limiter    *rate.Limiter
	cookieName string
	cookieTTL  time.Duration
}

// NewAPIHandler provides a new instance of APIHandler. The inbound rate
// limiter is only set up when the configured rate is strictly positive.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	idsHandler UIDHandler,
	sessions *SessionRegistry,
	favorites FavoritesServiceProvider,
) *APIHandler {
	m := &Maintenance{}
	m.enabled.Store(false)
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	api := &APIHandler{
		logger:     logger,
		config:     config,
		stats:      stats,
		mode:       m,
		clock:      clock,
		idsHandler: idsHandler,
		sessions:   sessions,
		favorites:  favorites,
		cookieName: defaultSessionCookie,
	}
	if config != nil {
		if config.Sessions.CookieName != "" {
			api.cookieName = config.Sessions.CookieName
		}
		api.cookieTTL = config.Sessions.TTL
		if config.Server.RateLimit > 0 {
			api.limiter = rate.NewLimiter(rate.Limit(config.Server.RateLimit), config.Server.RateBurst)
		}
	}
	return api
}
