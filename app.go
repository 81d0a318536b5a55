package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/boltdb/bolt"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	redisClient    *redis.Client
	boltDBClient   *bolt.DB
	cleanups       []func()
	queueConsumers []func(context.Context) error
	workers        []func(context.Context) error
	stopConsumers  context.CancelFunc
}

// Services groups the core components shared by the web service and the
// one-shot commands.
type Services struct {
	Catalog      CatalogClient
	Favorites    *FavoritesService
	Sessions     *SessionRegistry
	Mirror       FavoritesStorage
	Queue        Queuer
	RedisClient  *redis.Client
	BoltDBClient *bolt.DB
}

// Close releases the connections opened by NewServices.
func (s *Services) Close() {
	if s.RedisClient != nil {
		_ = s.RedisClient.Close()
	}
	if s.BoltDBClient != nil {
		_ = s.BoltDBClient.Close()
	}
}

// NewServices builds the catalog client, the favorites service with its
// optional mirror and the sessions registry. The favorites collection is
// restored from the mirror when one is configured.
func NewServices(ctx context.Context, logger *zap.Logger, config *Config, clock TickerClocker) (*Services, error) {
	s := &Services{Catalog: NewCatalogClient(logger, &config.Catalog)}

	var err error
	if config.UsesRedis() {
		s.RedisClient, err = GetRedisClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
	}

	switch config.Favorites.Mirror {
	case MirrorBolt:
		s.BoltDBClient, err = GetBoltDBClient(config)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to boltDB server: %s", err)
		}
		s.Mirror = NewBoltFavoritesStorage(logger, &config.BoltDB, s.BoltDBClient)
	case MirrorRedis:
		s.Mirror = NewRedisFavoritesStorage(logger, s.RedisClient)
	}

	// without a mirror nobody consumes the events.
	if s.Mirror != nil {
		if config.Favorites.Queue == QueueRedis {
			s.Queue = NewRedisQueue(s.RedisClient)
		} else {
			s.Queue = NewMemoryQueue(config.Favorites.QueueSize)
		}
	}

	s.Favorites = NewFavoritesService(logger, clock, NewFavoritesStore(), s.Queue)
	if s.Mirror != nil {
		n, err := s.Favorites.Restore(ctx, s.Mirror)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to restore favorites: %s", err)
		}
		logger.Info("favorites restored from mirror", zap.String("favorites.mirror", config.Favorites.Mirror), zap.Int("favorites.count", n))
	}

	s.Sessions = NewSessionRegistry(logger, clock, s.Catalog, s.Favorites, config.Catalog.MaxResults, config.Sessions.TTL)
	return s, nil
}

// NewApp provides an instance of App.
func NewApp(config *Config) (AppProvider, error) {
	clock := NewTickClock(NewClock(config.IsProduction))

	// ensure the logs folder exists and setup the logging module.
	if err := os.MkdirAll(config.LogFolder, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	logWriter := NewRSyncWriter(config, clock)
	closer := func() {
		if cerr := logWriter.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	}
	logger, flusher := SetupLogging(config, logWriter, clock)

	services, err := NewServices(context.Background(), logger, config, clock)
	if err != nil {
		closer()
		return nil, err
	}

	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		services.Sessions,
		services.Favorites,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	app := &App{
		logger:       logger,
		config:       config,
		server:       srv,
		redisClient:  services.RedisClient,
		boltDBClient: services.BoltDBClient,
		cleanups: []func(){
			func() { _ = flusher() },
			closer,
		},
		workers: []func(context.Context) error{
			func(ctx context.Context) error {
				return services.Sessions.RunSweeper(ctx, config.Sessions.SweepInterval)
			},
		},
	}

	if services.Mirror != nil {
		mirrorConsumer := NewMirrorConsumer(logger, services.Queue, services.Mirror)
		app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
			return mirrorConsumer.Consume(ctx, FavoritesQueue)
		})
	}

	return app, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	// consumers outlive the server so that events published by the
	// requests drained at shutdown still reach the mirror.
	cCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	app.stopConsumers = stopConsumers

	g.Go(app.ConsumeQueues(cCtx))
	g.Go(app.RunWorkers(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. The queue consumers are stopped
// once the server is down. We explicitly return `nil` to allow the errorgroup
// catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}

		if app.stopConsumers != nil {
			app.stopConsumers()
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines
// until ctx is done. The storage connections are closed once every consumer
// returned.
func (app *App) ConsumeQueues(ctx context.Context) func() error {
	return func() error {
		cg, cCtx := errgroup.WithContext(ctx)
		for _, consume := range app.queueConsumers {
			consume := consume
			cg.Go(func() error {
				return consume(cCtx)
			})
		}
		err := cg.Wait()
		if app.redisClient != nil {
			_ = app.redisClient.Close()
		}
		if app.boltDBClient != nil {
			_ = app.boltDBClient.Close()
		}
		return err
	}
}

// RunWorkers runs the background jobs like the sessions sweeper.
func (app *App) RunWorkers(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, work := range app.workers {
			work := work
			g.Go(func() error {
				return work(gCtx)
			})
		}
		return nil
	}
}
