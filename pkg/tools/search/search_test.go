package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(b, &got))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Weather","url":"https://example.com/w","content":" Sunny, 31C "},
			{"title":"News","url":"https://example.com/n","content":"Nothing happened"}
		]}`))
	}))
	defer srv.Close()

	a := New("tvly-key", WithBaseURL(srv.URL)).Adapter()
	out := a.Invoke(context.Background(), json.RawMessage(`{"query":"singapore weather"}`))

	assert.Equal(t, "Title: Weather\nURL: https://example.com/w\nContent: Sunny, 31C\n"+
		"\nTitle: News\nURL: https://example.com/n\nContent: Nothing happened\n", out)
	assert.Equal(t, "tvly-key", got.APIKey)
	assert.Equal(t, "singapore weather", got.Query)
	assert.Equal(t, 2, got.MaxResults)
}

func TestSearchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := New("bad", WithBaseURL(srv.URL)).Adapter()
	out := a.Invoke(context.Background(), json.RawMessage(`{"query":"x"}`))
	require.True(t, tools.IsError(out))
	assert.Contains(t, out, "invalid api key")

	tool := New("k", WithBaseURL(srv.URL))
	_, err := tool.Run(context.Background(), Input{Query: "  "})
	assert.Error(t, err)
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	out, err := New("k", WithBaseURL(srv.URL), WithMaxResults(5)).Run(context.Background(), Input{Query: "zzz"})
	require.NoError(t, err)
	assert.Equal(t, `No results found for "zzz".`, out)
}
