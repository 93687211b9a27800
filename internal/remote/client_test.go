package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestRequestSendsJSONAndBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "abc", r.Header.Get("Idempotency-Key"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "v", in["k"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", staticToken("tok"))
	var out struct{ OK bool }
	err := c.Request(context.Background(), "/sync", Options{
		Method:  http.MethodPost,
		Body:    map[string]string{"k": "v"},
		Headers: http.Header{"Idempotency-Key": []string{"abc"}},
	}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestRequestWithoutTokenIsAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL, staticToken("")).Get(context.Background(), "/health", nil))
	require.NoError(t, NewClient(srv.URL, nil).Get(context.Background(), "/health", nil))
}

func TestRequestFailedMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"invalid credentials"}`, "invalid credentials"},
		{"message field", `{"message":"nope"}`, "nope"},
		{"not json", `<html>bad gateway</html>`, "Request failed"},
		{"empty", ``, "Request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL, nil).Get(context.Background(), "/auth/me", nil)
			require.Error(t, err)
			assert.True(t, IsRequestFailed(err))
			assert.False(t, IsNetworkError(err))
			assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

			var rf *RequestFailedError
			require.ErrorAs(t, err, &rf)
			assert.Equal(t, tt.want, rf.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, nil).Get(context.Background(), "/sync", nil)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Zero(t, StatusCode(err))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := NewClient(srv.URL, nil, WithTimeout(50*time.Millisecond)).Get(context.Background(), "/sync", nil)
	assert.True(t, IsNetworkError(err))
}

func TestBeaconIsFireAndForget(t *testing.T) {
	var hits atomic.Int32
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("tok"))
	assert.True(t, c.Beacon("/sync", map[string]any{"appData": nil}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.WaitBeacons(ctx)

	assert.Equal(t, int32(1), hits.Load(), "failed beacon is not retried")
	assert.Equal(t, "Bearer tok", auth.Load())
}

func TestBeaconUnencodableBody(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil)
	assert.False(t, c.Beacon("/sync", make(chan int)))
}

func TestBaseURLFor(t *testing.T) {
	tests := map[string]string{
		"http://localhost:5173":         DevBaseURL,
		"http://127.0.0.1:8080":         DevBaseURL,
		"http://[::1]:3000":             DevBaseURL,
		"http://app.localhost":          DevBaseURL,
		"https://reign.example.com":     "https://reign.example.com/api",
		"https://reign.example.com/app": "https://reign.example.com/api",
		"":                              "/api",
	}
	for origin, want := range tests {
		assert.Equal(t, want, BaseURLFor(origin), origin)
	}
}
