package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/iapod/internal/errors"
)

func TestGet_SetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := Get(context.Background(), NewClient(0), srv.URL, "application/json")
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGet_NonSuccessStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), NewClient(0), srv.URL, "")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrTransport))
	require.Contains(t, err.Error(), "503")
	require.Contains(t, err.Error(), "slow down")
	require.Equal(t, 1, calls, "requests must not be retried")
}

func TestGet_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Get(context.Background(), NewClient(0), url, "")
	require.True(t, errors.Is(err, errors.ErrTransport))
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "hola", got["status"])
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer secret")
	body, err := PostJSON(context.Background(), NewClient(0), srv.URL, header, map[string]string{"status": "hola"})
	require.NoError(t, err)
	require.Contains(t, string(body), `"id"`)
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"https://api.telegram.org/bot123:ABC/sendAudio": "https://api.telegram.org/bot***/sendAudio",
		"https://archive.org/advancedsearch.php?q=x":    "https://archive.org/advancedsearch.php?q=x",
		"https://example.com/bot":                       "https://example.com/bot",
	}
	for in, want := range tests {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExcerpt_Bounded(t *testing.T) {
	got := excerpt([]byte(strings.Repeat("x", 2000)))
	require.Len(t, got, maxErrorBody+3)
}
