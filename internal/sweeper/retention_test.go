package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crivus/quiziq/internal/store/schema"
)

type fakePurger struct {
	batches []int64
	calls   []int64
	limits  []int
	err     error
	first   chan struct{}
}

func (f *fakePurger) DeleteEventsBefore(_ context.Context, cutoffTS int64, limit int) (int64, error) {
	f.calls = append(f.calls, cutoffTS)
	f.limits = append(f.limits, limit)
	if f.first != nil {
		select {
		case <-f.first:
		default:
			close(f.first)
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

type fakePolicySource struct {
	policy *schema.Policy
	err    error
}

func (f *fakePolicySource) Get(_ context.Context) (*schema.Policy, error) {
	return f.policy, f.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time                  { return c.now }
func (c *fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }
func (c *fakeClock) After(time.Duration) <-chan time.Time {
	// Never fires; sweeps are driven explicitly in tests
	return make(chan time.Time)
}
func (c *fakeClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

func newTestSweeper(purger *fakePurger, policies *fakePolicySource, batchSize int) *retentionSweeper {
	return NewRetentionSweeper(
		&RetentionSweeperConfig{Interval: time.Hour, BatchSize: batchSize},
		purger,
		policies,
		&fakeClock{now: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	).(*retentionSweeper)
}

func TestRunSweepCycleDrainsBatches(t *testing.T) {
	purger := &fakePurger{batches: []int64{4, 4, 2}}
	policies := &fakePolicySource{policy: &schema.Policy{RetentionDays: 30}}
	s := newTestSweeper(purger, policies, 4)

	require.NoError(t, s.runSweepCycle(context.Background()))

	// Keeps deleting while batches come back full, stops on the short one
	require.Len(t, purger.calls, 3)
	assert.Equal(t, []int{4, 4, 4}, purger.limits)

	wantCutoff := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	for _, cutoff := range purger.calls {
		assert.Equal(t, wantCutoff, cutoff)
	}
}

func TestRunSweepCycleRetentionDisabled(t *testing.T) {
	purger := &fakePurger{}
	policies := &fakePolicySource{policy: &schema.Policy{RetentionDays: 0}}
	s := newTestSweeper(purger, policies, 100)

	require.NoError(t, s.runSweepCycle(context.Background()))
	assert.Empty(t, purger.calls)
}

func TestRunSweepCyclePropagatesErrors(t *testing.T) {
	policies := &fakePolicySource{err: errors.New("db down")}
	s := newTestSweeper(&fakePurger{}, policies, 100)
	require.ErrorContains(t, s.runSweepCycle(context.Background()), "failed to load policy")

	purger := &fakePurger{err: errors.New("deadlock")}
	s = newTestSweeper(purger, &fakePolicySource{policy: &schema.Policy{RetentionDays: 30}}, 100)
	require.ErrorContains(t, s.runSweepCycle(context.Background()), "failed to purge expired events")
}

func TestStartStopLifecycle(t *testing.T) {
	purger := &fakePurger{first: make(chan struct{})}
	policies := &fakePolicySource{policy: &schema.Policy{RetentionDays: 30}}
	s := newTestSweeper(purger, policies, 100)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(context.Background())
	}()

	// Wait for the first cycle to run before asking it to stop
	select {
	case <-purger.first:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper never ran a cycle")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not exit after Stop")
	}

	// Second Stop is a no-op
	require.NoError(t, s.Stop(ctx))
}

func TestStartTwiceFails(t *testing.T) {
	purger := &fakePurger{first: make(chan struct{})}
	policies := &fakePolicySource{policy: &schema.Policy{RetentionDays: 30}}
	s := newTestSweeper(purger, policies, 100)

	go func() { _ = s.Start(context.Background()) }()
	<-purger.first

	require.Error(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
