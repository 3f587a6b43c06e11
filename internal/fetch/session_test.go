package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/proxy"
)

func TestSoftBlockRemovesProxyAndRefillsPool(t *testing.T) {
	t.Parallel()

	pool := proxy.New([]string{"p1:8080"})
	pauser := &recordingPauser{}
	s := NewSession(Config{
		MaxAttempts: 3,
		SleepBase:   2 * time.Second,
		ReinitSleep: 30 * time.Second,
	}, pool, zap.NewNop(),
		WithRand(fixedRand{intnVal: 0}), // Intn(2) == 0 forces removal
		WithPauser(pauser),
	)

	err := s.handleSoftBlock(context.Background(), 503, "p1:8080")
	require.NoError(t, err)

	// The only proxy was dropped, so the pool refilled to the complete set.
	require.Equal(t, []string{"p1:8080"}, pool.Snapshot())
	require.Equal(t, []time.Duration{30 * time.Second}, pauser.recorded())
	require.Equal(t, 3*time.Second, s.SleepBase())
}

func TestSoftBlockRemovalSkippedLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	pool := proxy.New([]string{"p1:8080", "p2:8080"})
	pauser := &recordingPauser{}
	s := NewSession(Config{
		MaxAttempts: 2,
		SleepBase:   2 * time.Second,
		ReinitSleep: 30 * time.Second,
	}, pool, zap.NewNop(),
		WithRand(fixedRand{intnVal: 1}), // Intn(2) == 1 skips removal
		WithPauser(pauser),
	)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.handleSoftBlock(context.Background(), 503, "p1:8080"))
	}

	require.Equal(t, 2, pool.Len())
	require.Empty(t, pauser.recorded())
	require.Equal(t, 2*time.Second, s.SleepBase())
}

func TestSoftBlockRemovalWithoutRefillDoesNotSlowDown(t *testing.T) {
	t.Parallel()

	pool := proxy.New([]string{"p1:8080", "p2:8080"})
	pauser := &recordingPauser{}
	s := NewSession(Config{
		MaxAttempts: 2,
		SleepBase:   time.Second,
		ReinitSleep: 10 * time.Second,
	}, pool, zap.NewNop(),
		WithRand(fixedRand{intnVal: 0}),
		WithPauser(pauser),
	)

	require.NoError(t, s.handleSoftBlock(context.Background(), 429, "p2:8080"))

	require.Equal(t, []string{"p1:8080"}, pool.Snapshot())
	require.Empty(t, pauser.recorded())
	require.Equal(t, time.Second, s.SleepBase())
}

func TestSoftBlockDirectConnectionCoolsDown(t *testing.T) {
	t.Parallel()

	pauser := &recordingPauser{}
	s := NewSession(Config{
		MaxAttempts: 2,
		SleepBase:   time.Second,
		ReinitSleep: 45 * time.Second,
	}, proxy.New(nil), zap.NewNop(),
		WithPauser(pauser),
	)

	require.NoError(t, s.handleSoftBlock(context.Background(), 403, ""))

	require.Equal(t, []time.Duration{45 * time.Second}, pauser.recorded())
	require.Equal(t, 2*time.Second, s.SleepBase())
}

func TestSoftBlockCooldownCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(Config{
		MaxAttempts: 2,
		ReinitSleep: time.Hour,
	}, proxy.New(nil), zap.NewNop(),
		WithPauser(&recordingPauser{}),
	)

	err := s.handleSoftBlock(ctx, 503, "")
	require.ErrorIs(t, err, context.Canceled)
	// The sleep base must not grow when the cooldown was aborted.
	require.Equal(t, time.Duration(0), s.SleepBase())
}

func TestPolitenessDelayIsBoundedBySleepBase(t *testing.T) {
	t.Parallel()

	s := NewSession(Config{
		MaxAttempts: 1,
		SleepBase:   4 * time.Second,
	}, proxy.New(nil), zap.NewNop(),
		WithRand(fixedRand{float64Val: 0.5}),
	)

	require.Equal(t, 2*time.Second, s.politenessDelay())
}

func TestUserAgentDefaultsWhenPoolEmpty(t *testing.T) {
	t.Parallel()

	s := NewSession(Config{MaxAttempts: 1}, proxy.New(nil), zap.NewNop())
	require.Equal(t, defaultUserAgent, s.userAgent())
}

func TestUserAgentPicksFromPool(t *testing.T) {
	t.Parallel()

	s := NewSession(Config{
		MaxAttempts: 1,
		UserAgents:  []string{"ua-a", "ua-b", "ua-c"},
	}, proxy.New(nil), zap.NewNop(),
		WithRand(fixedRand{intnVal: 2}),
	)
	require.Equal(t, "ua-c", s.userAgent())
}
