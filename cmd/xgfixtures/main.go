package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fortuna/xgfixtures/internal/api/rest"
	"github.com/fortuna/xgfixtures/internal/api/websocket"
	"github.com/fortuna/xgfixtures/internal/cache"
	"github.com/fortuna/xgfixtures/internal/config"
	"github.com/fortuna/xgfixtures/internal/gameweek"
	"github.com/fortuna/xgfixtures/internal/ingest/understat"
	"github.com/fortuna/xgfixtures/internal/metrics"
	"github.com/fortuna/xgfixtures/internal/publisher"
	"github.com/fortuna/xgfixtures/internal/scheduler"
	"github.com/fortuna/xgfixtures/internal/service"
	"github.com/fortuna/xgfixtures/internal/store"
	"github.com/fortuna/xgfixtures/internal/store/repository"
)

const (
	serviceName    = "xgfixtures"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	level.Info(logger).Log("msg", "starting", "service", serviceName, "version", serviceVersion,
		"league", cfg.Understat.League, "season", cfg.Understat.Season)

	if err := run(cfg, logger); err != nil {
		level.Error(logger).Log("msg", "exiting", "err", err)
		os.Exit(1)
	}
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = level.NewFilter(logger, levelOption(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func levelOption(lvl string) level.Option {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

func run(cfg *config.Config, logger log.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	healthChecks := map[string]rest.HealthCheck{}

	// Redis is optional: it backs the page cache, snapshots and refresh stream.
	var redisCache *cache.RedisCache
	if cfg.Redis.URL != "" {
		rc, err := connectRedis(ctx, cfg.Redis.URL, logger)
		if err != nil {
			return err
		}
		defer rc.Close()
		redisCache = rc
		healthChecks["redis"] = rc.HealthCheck
	}

	calendar, db, err := loadCalendar(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		healthChecks["postgres"] = db.HealthCheck
	}
	level.Info(logger).Log("msg", "gameweek calendar loaded", "source", cfg.Calendar.Source, "windows", calendar.Len())

	var fetcher understat.Fetcher
	switch cfg.Understat.FetchMode {
	case config.FetchBrowser:
		bf := understat.NewBrowserFetcher(cfg.Understat.Timeout)
		defer bf.Close()
		fetcher = bf
	default:
		fetcher = understat.NewHTTPFetcher(cfg.Understat.Timeout)
	}
	if redisCache != nil && cfg.Redis.CacheTTL > 0 {
		fetcher = understat.NewCachingFetcher(fetcher, redisCache, cfg.Redis.CacheTTL, logger)
	}

	client := understat.New(cfg.Understat.BaseURL, fetcher, logger)
	svc := service.NewFixtureService(client, calendar, service.Options{
		League:         cfg.Understat.League,
		Season:         cfg.Understat.Season,
		DegradeRanking: cfg.Pipeline.DegradeRanking,
		Metrics:        m,
		Logger:         logger,
	})

	wsServer := websocket.NewServer(cfg.Server.AllowedOrigins, logger)

	handlerOpts := rest.HandlerOptions{
		League:       cfg.Understat.League,
		Season:       cfg.Understat.Season,
		HealthChecks: healthChecks,
		Logger:       logger,
	}
	if redisCache != nil {
		handlerOpts.Snapshots = redisCache
	}

	var sched *scheduler.Orchestrator
	if cfg.Scheduler.Enabled {
		deps := scheduler.Deps{
			Pipeline:    svc,
			Broadcaster: wsServer,
			Metrics:     m,
			Logger:      logger,
		}
		if redisCache != nil {
			deps.Publisher = publisher.NewRedisPublisher(redisCache.Client())
			deps.Snapshots = redisCache
		}
		sched, err = scheduler.NewOrchestrator(scheduler.Config{
			Spec:        cfg.Scheduler.Spec,
			League:      cfg.Understat.League,
			Season:      cfg.Understat.Season,
			MaxRetries:  cfg.Scheduler.MaxRetries,
			RetryDelay:  cfg.Scheduler.RetryDelay,
			SnapshotTTL: cfg.Redis.SnapshotTTL,
		}, deps)
		if err != nil {
			return err
		}
		handlerOpts.Scheduler = sched
		sched.Start()
	}

	restServer := rest.NewServer(rest.Config{
		Port:           cfg.Server.RESTPort,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       reg,
		Metrics:        m,
		Logger:         logger,
	}, rest.NewHandler(svc, handlerOpts))

	errc := make(chan error, 2)
	go func() {
		if err := restServer.Start(); !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("REST server: %w", err)
		}
	}()
	go func() {
		if err := wsServer.Start(cfg.Server.WSPort); !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("websocket server: %w", err)
		}
	}()

	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case s := <-term:
		level.Info(logger).Log("msg", "shutting down due to signal", "signal", s)
	case runErr = <-errc:
		level.Error(logger).Log("msg", "server failed", "err", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			level.Warn(logger).Log("msg", "scheduler shutdown", "err", err)
		}
	}
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		level.Warn(logger).Log("msg", "REST server shutdown", "err", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		level.Warn(logger).Log("msg", "websocket server shutdown", "err", err)
	}

	level.Info(logger).Log("msg", "stopped")
	return runErr
}

func connectRedis(ctx context.Context, url string, logger log.Logger) (*cache.RedisCache, error) {
	const (
		maxRetries = 10
		retryDelay = 2 * time.Second
	)

	var err error
	for i := 1; i <= maxRetries; i++ {
		var rc *cache.RedisCache
		rc, err = cache.NewRedisCache(ctx, url)
		if err == nil {
			level.Info(logger).Log("msg", "connected to redis")
			return rc, nil
		}
		level.Warn(logger).Log("msg", "redis connection failed", "attempt", i, "max", maxRetries, "err", err)
		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("connecting to redis after %d attempts: %w", maxRetries, err)
}

// loadCalendar resolves the configured calendar source. The database is
// returned so the caller can close it and health-check it.
func loadCalendar(ctx context.Context, cfg *config.Config, logger log.Logger) (gameweek.Calendar, *store.Database, error) {
	switch cfg.Calendar.Source {
	case config.CalendarFile:
		cal, err := gameweek.LoadFile(cfg.Calendar.Path)
		return cal, nil, err

	case config.CalendarPostgres:
		db, err := store.NewDatabase(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return gameweek.Calendar{}, nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return gameweek.Calendar{}, nil, err
		}

		repo := repository.NewGameweekRepository(db)
		season := cfg.Calendar.Season
		if cfg.Calendar.Seed {
			n, err := repo.CountWindows(ctx, season)
			if err != nil {
				db.Close()
				return gameweek.Calendar{}, nil, err
			}
			if n == 0 {
				level.Info(logger).Log("msg", "seeding builtin gameweek calendar", "season", season)
				if err := repo.SeedWindows(ctx, season, gameweek.Default().Windows()); err != nil {
					db.Close()
					return gameweek.Calendar{}, nil, err
				}
			}
		}

		cal, err := repo.LoadCalendar(ctx, season)
		if err != nil {
			db.Close()
			return gameweek.Calendar{}, nil, err
		}
		return cal, db, nil

	default:
		return gameweek.Default(), nil, nil
	}
}
