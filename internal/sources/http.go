package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"c19pulse/internal/config"
	apperrors "c19pulse/internal/errors"
	"c19pulse/internal/infrastructure"
)

// HTTPOpener downloads datasets with pacing and retries
type HTTPOpener struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	userAgent  string
	logger     *slog.Logger
}

// NewHTTPOpener creates an opener from HTTP settings
func NewHTTPOpener(cfg config.HTTPConfig, logger *slog.Logger) *HTTPOpener {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &HTTPOpener{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
		userAgent:  cfg.UserAgent,
		logger:     infrastructure.WithComponent(logger, "http_source"),
	}
}

// Open performs a GET and returns the response body. Transport errors,
// 5xx and 429 responses are retried with linear backoff; other non-2xx
// responses fail immediately.
func (o *HTTPOpener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	var lastErr error

	for i := 0; i < o.maxRetries; i++ {
		if i > 0 {
			if err := o.sleep(ctx, time.Duration(i)*o.retryDelay); err != nil {
				return nil, apperrors.NewNetworkError("fetch cancelled", err).WithContext("source", source)
			}
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewNetworkError("rate limiter wait failed", err).WithContext("source", source)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, apperrors.NewNetworkError("invalid source url", err).WithContext("source", source)
		}
		req.Header.Set("Accept", "text/csv, */*")
		if o.userAgent != "" {
			req.Header.Set("User-Agent", o.userAgent)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperrors.NewNetworkError("fetch cancelled", ctx.Err()).WithContext("source", source)
			}
			lastErr = err
			o.logAttempt(ctx, source, i, err)
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			o.logAttempt(ctx, source, i, lastErr)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, apperrors.NewNetworkError(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil).
				WithContext("source", source).
				WithContext("status", resp.StatusCode)
		}

		return resp.Body, nil
	}

	return nil, apperrors.NewNetworkError("max retries exceeded", lastErr).
		WithContext("source", source).
		WithContext("attempts", o.maxRetries)
}

func (o *HTTPOpener) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *HTTPOpener) logAttempt(ctx context.Context, source string, attempt int, err error) {
	infrastructure.WithError(o.logger, err).WarnContext(ctx, "fetch attempt failed",
		slog.String("source", source),
		slog.Int("attempt", attempt+1),
		slog.Int("max_attempts", o.maxRetries))
}
