package requestor

import (
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func normalizeBaseURL(raw string) string {
	if raw == "" {
		raw = defaultBaseURL
	}
	return strings.TrimSuffix(raw, "/")
}

// retryingDoer retries connection-level failures (reset, refused, DNS)
// with exponential backoff. Responses are always returned as-is, even
// error statuses: what to do about an HTTP failure is the caller's
// decision, not the transport's.
type retryingDoer struct {
	inner      httpDoer
	maxElapsed time.Duration
}

func newRetryingDoer(inner httpDoer, maxElapsed time.Duration) httpDoer {
	if maxElapsed <= 0 {
		return inner
	}
	return &retryingDoer{inner: inner, maxElapsed: maxElapsed}
}

func (d *retryingDoer) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	op := func() error {
		r, err := d.inner.Do(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = d.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, req.Context())); err != nil {
		return nil, err
	}
	return resp, nil
}
