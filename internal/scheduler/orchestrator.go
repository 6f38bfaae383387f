package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"

	"github.com/fortuna/xgfixtures/internal/metrics"
	"github.com/fortuna/xgfixtures/internal/publisher"
	"github.com/fortuna/xgfixtures/internal/service"
)

// Pipeline computes the fixture view.
type Pipeline interface {
	ComputeUpcomingFixtures(ctx context.Context) (*service.Result, error)
}

// Broadcaster pushes an encoded payload to live subscribers.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Publisher announces completed refreshes.
type Publisher interface {
	PublishRefresh(ctx context.Context, event publisher.RefreshEvent) error
}

// SnapshotStore keeps the latest encoded payload.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, league, season string, payload []byte, ttl time.Duration) error
}

// Config holds scheduler configuration
type Config struct {
	Spec        string        // cron spec, e.g. "@every 15m"
	League      string        // e.g. "EPL"
	Season      string        // e.g. "2024"
	MaxRetries  int           // Default: 3
	RetryDelay  time.Duration // Default: 5s
	RunTimeout  time.Duration // Default: 2m
	SnapshotTTL time.Duration // 0 keeps snapshots until overwritten
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Spec:       "@every 15m",
		League:     "EPL",
		Season:     "2024",
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		RunTimeout: 2 * time.Minute,
	}
}

// Deps are the orchestrator's collaborators. Only Pipeline is required.
type Deps struct {
	Pipeline    Pipeline
	Broadcaster Broadcaster
	Publisher   Publisher
	Snapshots   SnapshotStore
	Metrics     *metrics.Metrics
	Logger      log.Logger
}

// Status describes the last refresh.
type Status struct {
	Spec        string    `json:"spec"`
	Runs        int       `json:"runs"`
	Failures    int       `json:"failures"`
	LastRun     time.Time `json:"last_run,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	NextRun     time.Time `json:"next_run,omitzero"`
}

// Orchestrator refreshes the fixture view on a cron schedule and fans the
// result out to websocket subscribers, the Redis stream and the snapshot
// store.
type Orchestrator struct {
	config Config
	deps   Deps
	cron   *cron.Cron
	entry  cron.EntryID
	logger log.Logger

	mu     sync.Mutex
	status Status
	sleep  func(ctx context.Context, d time.Duration) error

	startup sync.WaitGroup // refresh launched by Start
}

// NewOrchestrator validates the cron spec and creates an orchestrator.
func NewOrchestrator(config Config, deps Deps) (*Orchestrator, error) {
	if deps.Pipeline == nil {
		return nil, errors.New("scheduler: pipeline is required")
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultConfig().RunTimeout
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(nil)
	}

	o := &Orchestrator{
		config: config,
		deps:   deps,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: log.With(deps.Logger, "component", "scheduler"),
		status: Status{Spec: config.Spec},
		sleep:  sleepCtx,
	}

	id, err := o.cron.AddFunc(config.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.config.RunTimeout)
		defer cancel()
		o.RunOnce(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh spec %q: %w", config.Spec, err)
	}
	o.entry = id
	return o, nil
}

// Start runs one refresh immediately and then follows the schedule.
func (o *Orchestrator) Start() {
	level.Info(o.logger).Log("msg", "scheduler starting", "spec", o.config.Spec,
		"league", o.config.League, "season", o.config.Season, "max_retries", o.config.MaxRetries)
	o.cron.Start()
	o.startup.Add(1)
	go func() {
		defer o.startup.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.config.RunTimeout)
		defer cancel()
		o.RunOnce(ctx)
	}()
}

// Stop halts the schedule and waits for running refreshes, including the one
// launched by Start, or for ctx.
func (o *Orchestrator) Stop(ctx context.Context) error {
	level.Info(o.logger).Log("msg", "scheduler stopping")
	done := make(chan struct{})
	go func() {
		<-o.cron.Stop().Done()
		o.startup.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce computes the view with retries and distributes the result.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	var (
		res *service.Result
		err error
	)

	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		res, err = o.deps.Pipeline.ComputeUpcomingFixtures(ctx)
		if err == nil {
			break
		}

		level.Warn(o.logger).Log("msg", "refresh attempt failed", "attempt", attempt,
			"max_retries", o.config.MaxRetries, "err", err)

		if attempt < o.config.MaxRetries {
			if serr := o.sleep(ctx, o.config.RetryDelay); serr != nil {
				err = serr
				break
			}
		}
	}

	if err != nil {
		o.deps.Metrics.Refreshes.WithLabelValues("error").Inc()
		o.record(err)
		level.Error(o.logger).Log("msg", "refresh failed", "err", err)
		return err
	}

	o.distribute(ctx, res)
	o.deps.Metrics.Refreshes.WithLabelValues("ok").Inc()
	o.record(nil)
	return nil
}

func (o *Orchestrator) distribute(ctx context.Context, res *service.Result) {
	payload, err := json.Marshal(res)
	if err != nil {
		level.Error(o.logger).Log("msg", "failed to encode refresh", "err", err)
		return
	}

	if o.deps.Broadcaster != nil {
		o.deps.Broadcaster.Broadcast(payload)
	}

	if o.deps.Snapshots != nil {
		if err := o.deps.Snapshots.SaveSnapshot(ctx, o.config.League, o.config.Season, payload, o.config.SnapshotTTL); err != nil {
			level.Warn(o.logger).Log("msg", "failed to save snapshot", "err", err)
		}
	}

	if o.deps.Publisher != nil {
		event := publisher.RefreshEvent{
			League:       o.config.League,
			Season:       o.config.Season,
			Teams:        res.Teams.Teams(),
			Entries:      res.Teams.Entries(),
			SkippedCount: res.SkippedCount,
			RankingError: res.RankingError,
			GeneratedAt:  res.GeneratedAt,
		}
		if err := o.deps.Publisher.PublishRefresh(ctx, event); err != nil {
			level.Warn(o.logger).Log("msg", "failed to publish refresh", "err", err)
		}
	}

	level.Info(o.logger).Log("msg", "refresh complete", "teams", res.Teams.Teams(),
		"skipped", res.SkippedCount, "degraded", res.RankingError != "")
}

func (o *Orchestrator) record(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now().UTC()
	o.status.Runs++
	o.status.LastRun = now
	if err != nil {
		o.status.Failures++
		o.status.LastError = err.Error()
		return
	}
	o.status.LastSuccess = now
	o.status.LastError = ""
}

// Status returns a copy of the scheduler status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	s := o.status
	o.mu.Unlock()
	s.NextRun = o.cron.Entry(o.entry).Next
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
