package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/metrics"
)

// localeCookie pins the origin's locale so responses stay comparable across
// attempts; without it some origins auto-redirect by inferred locale.
const localeCookie = "sticky_locale=en"

// Attempt performs one HTTP GET: politeness delay, identity selection,
// dispatch, then classification into success, soft block, or transient
// failure. Expected network conditions never surface as errors; the error
// return is reserved for cancellation and malformed input.
func (s *Session) Attempt(ctx context.Context, rawURL string, attemptID int, params map[string]string) (Outcome, error) {
	// The politeness delay runs unconditionally, even when the attempt is
	// about to fail.
	if err := s.pauser.Pause(ctx, s.politenessDelay()); err != nil {
		return Outcome{}, err
	}

	target, err := buildURL(rawURL, params)
	if err != nil {
		return Outcome{}, err
	}

	proxyAddr, _ := s.pool.Pick(s.rng.Intn)
	metrics.TotalAttempts.Inc()
	s.logger.Debug("dispatching attempt",
		zap.Int("attempt", attemptID),
		zap.String("url", target),
		zap.String("proxy", proxyAddr),
	)

	resp, dispatchErr := s.dispatch(ctx, target, proxyAddr)
	if dispatchErr != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		reason := transientReason(dispatchErr)
		metrics.TotalTransientFailures.Inc()
		s.logger.Warn("attempt failed in transport",
			zap.Int("attempt", attemptID),
			zap.String("reason", reason),
			zap.String("proxy", proxyAddr),
			zap.Error(dispatchErr),
		)
		return Outcome{Kind: KindTransient, Proxy: proxyAddr, Reason: reason}, nil
	}

	if resp.StatusCode < 300 {
		metrics.TotalSuccesses.Inc()
		s.logger.Debug("attempt succeeded",
			zap.Int("attempt", attemptID),
			zap.Int("status", resp.StatusCode),
		)
		return Outcome{Kind: KindSuccess, Response: resp, Proxy: proxyAddr}, nil
	}

	metrics.TotalSoftBlocks.Inc()
	s.logger.Warn("origin answered with blocking status",
		zap.Int("attempt", attemptID),
		zap.Int("status", resp.StatusCode),
		zap.String("proxy", proxyAddr),
	)
	if err := s.handleSoftBlock(ctx, resp.StatusCode, proxyAddr); err != nil {
		return Outcome{}, err
	}
	// The blocked response still goes back to the caller for diagnostics.
	return Outcome{Kind: KindSoftBlocked, Response: resp, Proxy: proxyAddr}, nil
}

// dispatch issues the GET through a per-attempt collector. A response is
// returned for any HTTP status the origin produced, including blocking
// ones; the error return is transport-level only.
func (s *Session) dispatch(ctx context.Context, target, proxyAddr string) (*Response, error) {
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(s.userAgent()),
	)
	collector.IgnoreRobotsTxt = !s.respectRobots
	// Blocking statuses must reach OnResponse for classification instead
	// of being swallowed as collector errors.
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(s.timeout)
	collector.WithTransport(newHTTPTransport())
	if proxyAddr != "" {
		if err := collector.SetProxy("http://" + proxyAddr); err != nil {
			return nil, fmt.Errorf("set proxy %q: %w", proxyAddr, err)
		}
	}

	var (
		result   *Response
		fetchErr error
	)
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Cookie", localeCookie)
	})
	collector.OnResponse(func(r *colly.Response) {
		result = responseFrom(r, target, start)
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Colly reports blocking statuses through OnError; keep the
		// response so the caller can classify it by status.
		if r != nil && r.StatusCode >= 300 {
			result = responseFrom(r, target, start)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case visitErr := <-done:
		if result != nil {
			return result, nil
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
		if visitErr != nil {
			return nil, visitErr
		}
		return nil, errors.New("no response received")
	}
}

func responseFrom(r *colly.Response, target string, start time.Time) *Response {
	resp := &Response{
		URL:        target,
		StatusCode: r.StatusCode,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(start),
	}
	if r.Request != nil && r.Request.URL != nil {
		resp.URL = r.Request.URL.String()
	}
	if r.Headers != nil {
		resp.Headers = r.Headers.Clone()
	}
	return resp
}

func buildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// transientReason buckets a transport error for logging. The category is
// informational; every transient failure retries the same way.
func transientReason(err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET):
		return "connection"
	case strings.Contains(err.Error(), "stopped after"):
		return "redirect_loop"
	case strings.Contains(err.Error(), "malformed"):
		return "protocol"
	default:
		return "request"
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
