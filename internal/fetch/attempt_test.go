package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/proxy"
)

func newTestSession(t *testing.T, cfg Config, pool *proxy.Pool, opts ...Option) *Session {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts = append([]Option{WithPauser(&recordingPauser{})}, opts...)
	return NewSession(cfg, pool, zap.NewNop(), opts...)
}

func TestAttemptSuccess(t *testing.T) {
	t.Parallel()

	var gotCookie, gotUA, gotPage atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie.Store(r.Header.Get("Cookie"))
		gotUA.Store(r.Header.Get("User-Agent"))
		gotPage.Store(r.URL.Query().Get("page"))
		w.Header().Set("X-Probe", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("listing body"))
	}))
	defer srv.Close()

	s := newTestSession(t, Config{MaxAttempts: 1}, proxy.New(nil))
	outcome, err := s.Attempt(context.Background(), srv.URL, 0, map[string]string{"page": "42"})
	require.NoError(t, err)

	require.Equal(t, KindSuccess, outcome.Kind)
	require.True(t, outcome.Succeeded())
	require.Empty(t, outcome.Proxy)
	require.Equal(t, http.StatusOK, outcome.Response.StatusCode)
	require.Equal(t, []byte("listing body"), outcome.Response.Body)
	require.Equal(t, "yes", outcome.Response.Headers.Get("X-Probe"))
	require.Equal(t, localeCookie, gotCookie.Load())
	require.Equal(t, defaultUserAgent, gotUA.Load())
	require.Equal(t, "42", gotPage.Load())
}

func TestAttemptSoftBlockDirect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("blocked"))
	}))
	defer srv.Close()

	pauser := &recordingPauser{}
	s := newTestSession(t, Config{
		MaxAttempts: 1,
		ReinitSleep: 20 * time.Second,
	}, proxy.New(nil), WithPauser(pauser))

	outcome, err := s.Attempt(context.Background(), srv.URL, 0, nil)
	require.NoError(t, err)

	require.Equal(t, KindSoftBlocked, outcome.Kind)
	require.False(t, outcome.Succeeded())
	require.Equal(t, http.StatusServiceUnavailable, outcome.Response.StatusCode)
	// Direct soft block: the cooldown fires and the cadence slows.
	require.Contains(t, pauser.recorded(), 20*time.Second)
	require.Equal(t, time.Second, s.SleepBase())
}

func TestAttemptTransientConnectionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := srv.URL
	srv.Close() // nothing listens anymore

	s := newTestSession(t, Config{MaxAttempts: 1}, proxy.New(nil))
	outcome, err := s.Attempt(context.Background(), target, 0, nil)
	require.NoError(t, err)

	require.Equal(t, KindTransient, outcome.Kind)
	require.Nil(t, outcome.Response)
	require.NotEmpty(t, outcome.Reason)
}

func TestAttemptUserAgentFromPool(t *testing.T) {
	t.Parallel()

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestSession(t, Config{
		MaxAttempts: 1,
		UserAgents:  []string{"agent-one", "agent-two"},
	}, proxy.New(nil), WithRand(fixedRand{intnVal: 1}))

	outcome, err := s.Attempt(context.Background(), srv.URL, 0, nil)
	require.NoError(t, err)
	require.Equal(t, KindSuccess, outcome.Kind)
	require.Equal(t, "agent-two", gotUA.Load())
}

func TestAttemptCanceledBeforeDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSession(t, Config{MaxAttempts: 1, SleepBase: time.Second}, proxy.New(nil))
	_, err := s.Attempt(ctx, "http://127.0.0.1:1", 0, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAttemptRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Config{MaxAttempts: 1}, proxy.New(nil))
	_, err := s.Attempt(context.Background(), "http://bad url with spaces", 0, nil)
	require.Error(t, err)
}
