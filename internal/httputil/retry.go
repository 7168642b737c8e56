// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Backoff bases. Declared as vars so tests override them to avoid
// real sleeps.
var (
	// RetryBaseDelay is the first backoff after a transient failure.
	// Each further attempt quadruples it: 2 s, 8 s.
	RetryBaseDelay = 2 * time.Second

	// RateLimitDelay is the minimum wait after an HTTP 429 before the
	// single rate-limit retry.
	RateLimitDelay = 10 * time.Second
)

const defaultMaxAttempts = 3

// DoWithRetry executes an HTTP request with the house retry policy:
// up to maxAttempts attempts (default 3), retrying only on transport
// errors and 5xx responses with exponential backoff starting at
// RetryBaseDelay. An HTTP 429 gets one retry after RateLimitDelay,
// independent of the transient budget.
//
// On each retried response the body is drained and closed before
// sleeping. If the context is cancelled during a backoff wait the
// function returns ctx.Err(). After exhausting retries the last
// response (or transport error) is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	rateLimitRetried := false

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			if attempt == maxAttempts-1 {
				return nil, lastErr
			}
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests && !rateLimitRetried:
			rateLimitRetried = true
			drain(resp)
			if err := sleep(ctx, RateLimitDelay); err != nil {
				return nil, err
			}
			// The rate-limit retry does not consume a transient attempt.
			attempt--
			continue

		case resp.StatusCode >= 500 && attempt < maxAttempts-1:
			drain(resp)
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue

		default:
			return resp, nil
		}
	}

	return nil, lastErr
}

// backoff returns the delay before retry attempt+1: base, base*4, ...
func backoff(attempt int) time.Duration {
	d := RetryBaseDelay
	for i := 0; i < attempt; i++ {
		d *= 4
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
