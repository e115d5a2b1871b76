package plaid

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const (
	testClientID = "client-id"
	testSecret   = "client-secret"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type capturedRequest struct {
	Method      string
	Path        string
	ContentType string
	Raw         []byte
	Body        map[string]any
}

// newStubClient returns a Client wired to a server that records the request
// and replies with status and response.
func newStubClient(t *testing.T, status int, response string, opts ...Option) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.ContentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		captured.Raw = body
		captured.Body = map[string]any{}
		if err := json.Unmarshal(body, &captured.Body); err != nil {
			t.Errorf("request body is not a JSON object: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)

	base := []Option{WithBaseURL(server.URL), WithHTTPClient(server.Client())}
	client, err := NewClient(testClientID, testSecret, Sandbox, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, captured
}

func strPtr(s string) *string {
	return &s
}
