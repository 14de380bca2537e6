// Package search exposes Tavily web search as a tool.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/jiminy/pkg/helpers"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
)

const (
	Name              = "web_search"
	DefaultBaseURL    = "https://api.tavily.com"
	DefaultMaxResults = 2
)

type Input struct {
	Query string `json:"query" jsonschema:"required,description=The search query"`
}

type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type request struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type response struct {
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

type Tool struct {
	apiKey     string
	baseURL    string
	maxResults int
	http       *http.Client
}

type Option func(*Tool)

func WithBaseURL(u string) Option {
	return func(t *Tool) { t.baseURL = strings.TrimRight(u, "/") }
}

func WithMaxResults(n int) Option {
	return func(t *Tool) { t.maxResults = n }
}

func WithTimeout(d time.Duration) Option {
	return func(t *Tool) { t.http = helpers.NewHTTPClient(d) }
}

func New(apiKey string, opts ...Option) *Tool {
	t := &Tool{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		maxResults: DefaultMaxResults,
		http:       helpers.NewHTTPClient(0),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tool) Adapter() tools.Adapter {
	return tools.NewFuncAdapter(Name,
		"A search engine optimized for comprehensive, accurate, and trusted results. "+
			"Useful for answering questions about current events.",
		t.Run)
}

func (t *Tool) Search(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(request{APIKey: t.apiKey, Query: query, MaxResults: t.maxResults})
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequest(http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	var resp response
	if err := helpers.DoJSON(ctx, t.http, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (t *Tool) Run(ctx context.Context, in Input) (string, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", errors.New("query must not be empty")
	}
	results, err := t.Search(ctx, query)
	if err != nil {
		return "", errors.Wrap(err, "search failed")
	}
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query), nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\nContent: %s\n", r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return sb.String(), nil
}
