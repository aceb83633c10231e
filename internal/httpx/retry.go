// Package httpx provides a shared HTTP retry helper generalizing the
// teacher's storage upload/download retry idiom (exponential backoff
// with jitter, status/error classification) to every provider.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

const (
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// Do executes fn, retrying per the classification of the returned
// error: PROVIDER_TRANSIENT retries up to maxRetries with jittered
// exponential backoff; PROVIDER_PERMANENT and anything else propagate
// immediately.
func Do(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if orcherr.KindOf(lastErr) != orcherr.ProviderTransient {
			return lastErr
		}
		if attempt > maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
	return lastErr
}

// retryDelay mirrors the teacher's storage.go backoff: base*2^(n-1)
// capped at maxRetryDelay, plus 0-25% jitter.
func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}

// ClassifyStatus maps an HTTP status code to PROVIDER_TRANSIENT or
// PROVIDER_PERMANENT, mirroring the teacher's isRetryableStatus list.
func ClassifyStatus(status int) orcherr.Kind {
	switch status {
	case http.StatusTooManyRequests, http.StatusRequestTimeout,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return orcherr.ProviderTransient
	}
	if status >= 500 {
		return orcherr.ProviderTransient
	}
	if status >= 400 {
		return orcherr.ProviderPermanent
	}
	return ""
}

// ClassifyErr mirrors the teacher's isRetryableError string-matching,
// generalized with a net.Error check for timeout errors.
func ClassifyErr(err error) orcherr.Kind {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return orcherr.ProviderTransient
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{
		"timeout", "deadline exceeded", "connection reset",
		"connection refused", "eof", "broken pipe",
	} {
		if strings.Contains(msg, substr) {
			return orcherr.ProviderTransient
		}
	}
	return orcherr.ProviderPermanent
}
