package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	retryDelay    = 500 * time.Millisecond
	retryDelay429 = 5 * time.Second
)

// NewHTTPClient builds a client routed through proxyURL when it is set.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			zap.L().Warn("ignoring invalid proxy url", zap.String("proxy", proxyURL), zap.Error(err))
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// getter issues paced GET requests with bounded retries.
type getter struct {
	client   *http.Client
	limiter  *rate.Limiter
	attempts int
	headers  map[string]string
}

func (g *getter) get(ctx context.Context, rawURL string) ([]byte, error) {
	attempts := g.attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := retryDelay
			if lastStatus == http.StatusTooManyRequests {
				backoff = retryDelay429
			}
			zap.L().Debug("retrying request", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
			}
		}
		body, status, err := g.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr, lastStatus = err, status
	}
	return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, lastErr)
}

func (g *getter) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}
