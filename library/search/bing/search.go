// Package bing implements the external search engine backed by the Bing Web Search v7 API.
package bing

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/go-resty/resty/v2"

	"github.com/z-Shi/TangoWithDjango/library/search"
)

const (
	// DefaultEndpoint is the Azure cognitive services search endpoint provisioned for rango.
	DefaultEndpoint = "https://rango-bing-search-res.cognitiveservices.azure.com/bing/v7.0/search"
	// DefaultTimeout bounds a single upstream round trip.
	DefaultTimeout = 10 * time.Second

	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
)

// CredentialSource supplies the subscription key.
type CredentialSource interface {
	Load(ctx context.Context) (string, error)
}

var _ search.Engine = (*SearchEngine)(nil)

// SearchEngine queries Bing over HTTPS.
type SearchEngine struct {
	credential CredentialSource
	endpoint   string
	timeout    time.Duration
	client     *resty.Client
}

// Option customises a SearchEngine.
type Option func(*SearchEngine)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(se *SearchEngine) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			se.endpoint = endpoint
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(se *SearchEngine) {
		if timeout > 0 {
			se.timeout = timeout
		}
	}
}

// WithHTTPClient sends requests through client instead of a fresh one.
func WithHTTPClient(client *http.Client) Option {
	return func(se *SearchEngine) {
		if client != nil {
			se.client = resty.NewWithClient(client)
		}
	}
}

// NewSearchEngine is a constructor for SearchEngine.
func NewSearchEngine(credential CredentialSource, opts ...Option) (*SearchEngine, error) {
	if credential == nil {
		return nil, errors.New("credential source is required")
	}

	se := &SearchEngine{
		credential: credential,
		endpoint:   DefaultEndpoint,
		timeout:    DefaultTimeout,
		client:     resty.New(),
	}
	for _, opt := range opts {
		opt(se)
	}
	se.client.SetTimeout(se.timeout)

	return se, nil
}

// Name returns search.EngineBing.
func (se *SearchEngine) Name() string {
	return search.EngineBing
}

// webPagesResponse keeps only what rango reads from the payload.
// Pointers tell an absent key apart from an empty collection.
type webPagesResponse struct {
	WebPages *struct {
		Value *[]hit `json:"value"`
	} `json:"webPages"`
}

type hit struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Search runs query against Bing and translates each web page hit, in order.
func (se *SearchEngine) Search(ctx context.Context, query string) ([]search.SearchResult, error) {
	key, err := se.credential.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load bing subscription key")
	}

	resp, err := se.client.R().
		SetContext(ctx).
		SetHeader(subscriptionKeyHeader, key).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"q":               query,
			"textDecorations": "true",
			"textFormat":      "HTML",
		}).
		Get(se.endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "send request to `%s`", se.endpoint)
	}

	if !resp.IsSuccess() {
		return nil, &search.UpstreamError{
			StatusCode: resp.StatusCode(),
			Reason:     http.StatusText(resp.StatusCode()),
		}
	}

	return translate(resp.Body())
}

func translate(body []byte) ([]search.SearchResult, error) {
	payload := new(webPagesResponse)
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, &search.UpstreamError{
			Reason: search.ReasonUnexpectedShape,
			Err:    errors.Wrap(err, "unmarshal bing response"),
		}
	}

	if payload.WebPages == nil || payload.WebPages.Value == nil {
		return nil, &search.UpstreamError{Reason: search.ReasonUnexpectedShape}
	}

	hits := *payload.WebPages.Value
	results := make([]search.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, search.SearchResult{
			Title:   h.Name,
			Link:    h.URL,
			Summary: h.Snippet,
		})
	}

	return results, nil
}
