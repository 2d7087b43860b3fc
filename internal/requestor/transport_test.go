package requestor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNormalizeBaseURLTrimsTrailingSlashAndDefaults(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"", defaultBaseURL},
		{"https://flags.example.com/", "https://flags.example.com"},
		{"https://flags.example.com", "https://flags.example.com"},
	}

	for _, c := range cases {
		if got := normalizeBaseURL(c.input); got != c.expected {
			t.Fatalf("expected %s, got %s", c.expected, got)
		}
	}
}

func TestRetryingDoerDisabledWhenNoBudget(t *testing.T) {
	inner := roundTripperDoer{}
	if got := newRetryingDoer(inner, 0); got != inner {
		t.Fatal("expected inner doer back when retries disabled")
	}
}

type roundTripperDoer struct{}

func (roundTripperDoer) Do(*http.Request) (*http.Response, error) { return nil, nil }

type countingDoer struct {
	calls    int
	failures int
	err      error
	resp     func() *http.Response
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	if d.calls <= d.failures {
		return nil, d.err
	}
	return d.resp(), nil
}

func TestRetryingDoerRetriesConnectionFailures(t *testing.T) {
	inner := &countingDoer{
		failures: 2,
		err:      errors.New("dial tcp: connection refused"),
		resp: func() *http.Response {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("{}")),
				Header:     make(http.Header),
			}
		},
	}

	doer := newRetryingDoer(inner, 5*time.Second)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://flags.test/sdk/latest-all", nil)

	resp, err := doer.Do(req)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	resp.Body.Close()
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingDoerNeverRetriesStatusResponses(t *testing.T) {
	inner := &countingDoer{
		resp: func() *http.Response {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("boom")),
				Header:     make(http.Header),
			}
		},
	}

	doer := newRetryingDoer(inner, 5*time.Second)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://flags.test/sdk/latest-all", nil)

	resp, err := doer.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 passed through, got %d", resp.StatusCode)
	}
	if inner.calls != 1 {
		t.Fatalf("expected exactly one attempt for a status response, got %d", inner.calls)
	}
}

func TestRetryingDoerHonorsContextCancel(t *testing.T) {
	inner := &countingDoer{
		failures: 1 << 30,
		err:      errors.New("dial tcp: connection refused"),
	}

	doer := newRetryingDoer(inner, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://flags.test/sdk/latest-all", nil)

	if _, err := doer.Do(req); err == nil {
		t.Fatal("expected error after context expiry")
	}
}
