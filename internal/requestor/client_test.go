package requestor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripperFunc) *Client {
	return NewClient(Config{
		BaseURL:    "https://flags.test",
		SDKKey:     "sdk-key",
		HTTPClient: &http.Client{Transport: rt},
	})
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestFetchAllHitsAllDataEndpoint(t *testing.T) {
	var capturedPath, capturedAuth string

	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		capturedPath = req.URL.Path
		capturedAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{
			"flags": {
				"new-dashboard": {"key": "new-dashboard", "version": 3, "on": true}
			},
			"segments": {
				"beta-users": {"key": "beta-users", "version": 1, "included": ["u1"]}
			}
		}`), nil
	})

	snap, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}

	if capturedPath != allDataPath {
		t.Fatalf("expected %s path, got %s", allDataPath, capturedPath)
	}
	if capturedAuth != "sdk-key" {
		t.Fatalf("expected sdk key auth header, got %q", capturedAuth)
	}

	flag, ok := snap.Flags["new-dashboard"]
	if !ok || flag.Version != 3 || !flag.On {
		t.Fatalf("unexpected flag: %+v (present=%v)", flag, ok)
	}
	seg, ok := snap.Segments["beta-users"]
	if !ok || len(seg.Included) != 1 {
		t.Fatalf("unexpected segment: %+v (present=%v)", seg, ok)
	}
}

func TestFetchAllEmptyPayloadYieldsEmptySnapshot(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	snap, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if snap.Flags == nil || snap.Segments == nil {
		t.Fatal("expected normalized non-nil maps")
	}
	if len(snap.Flags) != 0 || len(snap.Segments) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestFetchAllNonOKStatusBecomesStatusError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, "invalid sdk key"), nil
	})

	_, err := client.FetchAll(context.Background())
	se, ok := AsStatusError(err)
	if !ok {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", se.Code)
	}
	if !strings.Contains(se.Error(), "invalid sdk key") {
		t.Fatalf("expected body in message, got %q", se.Error())
	}
}

func TestFetchAllTransportFailurePassesThrough(t *testing.T) {
	netErr := errors.New("connection reset by peer")
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, netErr
	})

	_, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := AsStatusError(err); ok {
		t.Fatalf("transport failure must not be a StatusError: %v", err)
	}
}

func TestFetchAllMalformedJSONFails(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"flags": [`), nil
	})

	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCloseIsSafeWithCallerClient(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	if err := client.Close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
}

func TestCloseReleasesOwnedClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://flags.test"})
	if err := client.Close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
}
