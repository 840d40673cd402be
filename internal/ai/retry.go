package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"civic-complaints/internal/scoring"
)

type retryingAnalyzer struct {
	inner      Analyzer
	maxRetries uint64
	base       time.Duration
}

// Retrying wraps an analyzer so rate-limited and server-side failures are
// retried with Fibonacci backoff. Other errors return immediately.
func Retrying(inner Analyzer, maxRetries uint64, base time.Duration) Analyzer {
	if inner == nil || maxRetries == 0 {
		return inner
	}
	if base <= 0 {
		base = time.Second
	}
	return &retryingAnalyzer{inner: inner, maxRetries: maxRetries, base: base}
}

func (r *retryingAnalyzer) Enabled() bool {
	return r.inner.Enabled()
}

func (r *retryingAnalyzer) Analyze(ctx context.Context, req Request) (scoring.Analysis, Details, error) {
	var (
		analysis scoring.Analysis
		details  Details
		attempt  int
	)
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewFibonacci(r.base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		analysis, details, err = r.inner.Analyze(ctx, req)
		if err == nil {
			return nil
		}
		if retryable(err) {
			logrus.WithError(err).WithField("attempt", attempt).Debug("retrying ai analysis")
			return retry.RetryableError(err)
		}
		return err
	})
	return analysis, details, err
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusRetryable(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusRetryable(reqErr.HTTPStatusCode)
	}
	return false
}

func statusRetryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
