package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/xgfixtures/internal/fixture"
	"github.com/fortuna/xgfixtures/internal/metrics"
	"github.com/fortuna/xgfixtures/internal/publisher"
	"github.com/fortuna/xgfixtures/internal/service"
)

type fakePipeline struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (p *fakePipeline) ComputeUpcomingFixtures(ctx context.Context) (*service.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &service.Result{
		Teams: fixture.View{
			"A": {{Opponent: "B", Venue: fixture.Home}},
			"B": {{Opponent: "A", Venue: fixture.Away}},
		},
		SkippedCount: 1,
		GeneratedAt:  time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

type fakeBroadcaster struct{ msgs [][]byte }

func (b *fakeBroadcaster) Broadcast(data []byte) { b.msgs = append(b.msgs, data) }

type fakePublisher struct {
	events []publisher.RefreshEvent
	err    error
}

func (p *fakePublisher) PublishRefresh(ctx context.Context, e publisher.RefreshEvent) error {
	p.events = append(p.events, e)
	return p.err
}

type fakeSnapshots struct{ saved map[string][]byte }

func (s *fakeSnapshots) SaveSnapshot(ctx context.Context, league, season string, payload []byte, ttl time.Duration) error {
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[league+":"+season] = payload
	return nil
}

func newTestOrchestrator(t *testing.T, p Pipeline, deps Deps) *Orchestrator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	deps.Pipeline = p
	o, err := NewOrchestrator(cfg, deps)
	require.NoError(t, err)
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o
}

func TestRunOnceDistributes(t *testing.T) {
	b := &fakeBroadcaster{}
	pub := &fakePublisher{}
	snaps := &fakeSnapshots{}
	m := metrics.New(nil)
	o := newTestOrchestrator(t, &fakePipeline{}, Deps{Broadcaster: b, Publisher: pub, Snapshots: snaps, Metrics: m})

	require.NoError(t, o.RunOnce(context.Background()))

	require.Len(t, b.msgs, 1)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(b.msgs[0], &payload))
	assert.Contains(t, payload, "teams")
	assert.EqualValues(t, 1, payload["skipped_count"])

	require.Len(t, pub.events, 1)
	assert.Equal(t, "EPL", pub.events[0].League)
	assert.Equal(t, 2, pub.events[0].Teams)
	assert.Equal(t, 2, pub.events[0].Entries)

	assert.Equal(t, b.msgs[0], snaps.saved["EPL:2024"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("ok")))

	st := o.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 0, st.Failures)
	assert.False(t, st.LastSuccess.IsZero())
}

func TestRunOnceRetries(t *testing.T) {
	p := &fakePipeline{errs: []error{errors.New("boom"), errors.New("boom")}}
	b := &fakeBroadcaster{}
	o := newTestOrchestrator(t, p, Deps{Broadcaster: b})

	require.NoError(t, o.RunOnce(context.Background()))
	assert.Equal(t, 3, p.calls)
	assert.Len(t, b.msgs, 1)
}

func TestRunOnceGivesUpAfterMaxRetries(t *testing.T) {
	boom := errors.New("boom")
	p := &fakePipeline{errs: []error{boom, boom, boom, boom}}
	b := &fakeBroadcaster{}
	m := metrics.New(nil)
	o := newTestOrchestrator(t, p, Deps{Broadcaster: b, Metrics: m})

	err := o.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, p.calls)
	assert.Empty(t, b.msgs)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("error")))

	st := o.Status()
	assert.Equal(t, 1, st.Failures)
	assert.Equal(t, "boom", st.LastError)
}

func TestRunOnceStopsRetryingOnCancel(t *testing.T) {
	p := &fakePipeline{errs: []error{errors.New("boom"), errors.New("boom")}}
	o := newTestOrchestrator(t, p, Deps{})
	o.sleep = sleepCtx
	o.config.RetryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := o.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.calls)
}

func TestPublishFailureDoesNotFailRefresh(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	o := newTestOrchestrator(t, &fakePipeline{}, Deps{Publisher: pub})

	assert.NoError(t, o.RunOnce(context.Background()))
	assert.Len(t, pub.events, 1)
}

func TestNewOrchestratorValidation(t *testing.T) {
	_, err := NewOrchestrator(DefaultConfig(), Deps{})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Spec = "every now and then"
	_, err = NewOrchestrator(cfg, Deps{Pipeline: &fakePipeline{}})
	assert.ErrorContains(t, err, "invalid refresh spec")
}

func TestStartRunsImmediately(t *testing.T) {
	p := &fakePipeline{}
	o := newTestOrchestrator(t, p, Deps{})
	o.Start()
	defer o.Stop(context.Background())

	assert.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, o.Status().NextRun.IsZero())
}

type blockingPipeline struct {
	fakePipeline
	started chan struct{}
	release chan struct{}
}

func (p *blockingPipeline) ComputeUpcomingFixtures(ctx context.Context) (*service.Result, error) {
	close(p.started)
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.fakePipeline.ComputeUpcomingFixtures(ctx)
}

func TestStopWaitsForStartupRefresh(t *testing.T) {
	p := &blockingPipeline{started: make(chan struct{}), release: make(chan struct{})}
	o := newTestOrchestrator(t, p, Deps{})
	o.Start()

	select {
	case <-p.started:
	case <-time.After(2 * time.Second):
		t.Fatal("startup refresh did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, o.Stop(ctx), context.DeadlineExceeded)

	close(p.release)
	require.NoError(t, o.Stop(context.Background()))

	st := o.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Zero(t, st.Failures)
}
