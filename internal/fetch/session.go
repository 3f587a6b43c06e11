package fetch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/metrics"
	"github.com/staywatch/staywatch/internal/proxy"
)

const defaultUserAgent = "Mozilla/5.0"

// Config captures the per-session fetch knobs. SleepBase is only the
// starting value; the session grows it by one second every time a cooldown
// fires, and later fetches sharing the session observe the larger value.
type Config struct {
	MaxAttempts   int
	SleepBase     time.Duration
	Timeout       time.Duration
	ReinitSleep   time.Duration
	UserAgents    []string
	RespectRobots bool
}

// Session holds the mutable state shared by every attempt of a fetch
// session: the sleep base, the user-agent pool, and the live proxy pool.
// A mutex serializes mutations so concurrent callers sharing one session
// keep the pool invariants intact; the expected mode is still one fetch
// at a time.
type Session struct {
	mu            sync.Mutex
	maxAttempts   int
	sleepBase     time.Duration
	timeout       time.Duration
	reinitSleep   time.Duration
	userAgents    []string
	respectRobots bool
	pool          *proxy.Pool
	rng           Rand
	pauser        Pauser
	logger        *zap.Logger
}

// Option adjusts a Session at construction time.
type Option func(*Session)

// WithRand replaces the random source, letting tests force the
// proxy-removal coin flip and pin the politeness delay.
func WithRand(r Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithPauser replaces the sleep implementation so tests never block.
func WithPauser(p Pauser) Option {
	return func(s *Session) { s.pauser = p }
}

// NewSession builds a Session around the given proxy pool.
func NewSession(cfg Config, pool *proxy.Pool, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = proxy.New(nil)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	s := &Session{
		maxAttempts:   cfg.MaxAttempts,
		sleepBase:     cfg.SleepBase,
		timeout:       cfg.Timeout,
		reinitSleep:   cfg.ReinitSleep,
		userAgents:    cfg.UserAgents,
		respectRobots: cfg.RespectRobots,
		pool:          pool,
		rng:           systemRand{},
		pauser:        timerPauser{},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAttempts returns the attempt budget for one fetch call.
func (s *Session) MaxAttempts() int {
	return s.maxAttempts
}

// SleepBase returns the current politeness sleep ceiling. Other code
// sharing the session reads this to observe cooldown-driven slowdowns.
func (s *Session) SleepBase() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleepBase
}

// Pool exposes the live proxy pool for diagnostics.
func (s *Session) Pool() *proxy.Pool {
	return s.pool
}

// politenessDelay draws a uniform delay from [0, sleepBase).
func (s *Session) politenessDelay() time.Duration {
	s.mu.Lock()
	base := s.sleepBase
	s.mu.Unlock()
	if base <= 0 {
		return 0
	}
	return time.Duration(s.rng.Float64() * float64(base))
}

// userAgent picks a pool entry uniformly at random, or the fixed default
// when no pool was configured.
func (s *Session) userAgent() string {
	if len(s.userAgents) == 0 {
		return defaultUserAgent
	}
	return s.userAgents[s.rng.Intn(len(s.userAgents))]
}

func (s *Session) extendSleepBase() {
	s.mu.Lock()
	s.sleepBase += time.Second
	base := s.sleepBase
	s.mu.Unlock()
	s.logger.Warn("request sleep base extended", zap.Duration("sleep_base", base))
}

// handleSoftBlock applies the mitigation side effects for a blocked
// response. A proxied block prunes the proxy with probability 0.5 and, if
// that empties the pool, refills it and cools down; a direct block cools
// down immediately since slowing our own IP is the only lever left. The
// error return is non-nil only when the cooldown is canceled.
func (s *Session) handleSoftBlock(ctx context.Context, status int, proxyAddr string) error {
	if proxyAddr == "" {
		s.logger.Warn("soft block on direct connection, cooling down",
			zap.Int("status", status),
			zap.Duration("cooldown", s.reinitSleep),
		)
		if err := s.pauser.Pause(ctx, s.reinitSleep); err != nil {
			return err
		}
		s.extendSleepBase()
		return nil
	}

	if s.rng.Intn(2) == 0 {
		refilled := s.pool.Drop(proxyAddr)
		metrics.TotalProxyRemovals.Inc()
		s.logger.Warn("removed proxy from live pool",
			zap.String("proxy", proxyAddr),
			zap.Int("remaining", s.pool.Len()),
			zap.Int("complete", s.pool.CompleteLen()),
		)
		if refilled {
			metrics.TotalPoolRefills.Inc()
			s.logger.Warn("no proxies remain, pool refilled; cooling down",
				zap.Duration("cooldown", s.reinitSleep),
			)
			if err := s.pauser.Pause(ctx, s.reinitSleep); err != nil {
				return err
			}
			s.extendSleepBase()
		}
		return nil
	}

	s.logger.Warn("keeping proxy in live pool this time",
		zap.String("proxy", proxyAddr),
		zap.Int("remaining", s.pool.Len()),
	)
	return nil
}
