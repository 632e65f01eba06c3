// Package imagesearch finds a background image for a trip from a free-text
// place query using the Pixabay API. The URLs it returns live on Pixabay's
// CDN and may expire; the gallery service promotes them before keeping them.
package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/tripplanner/api/internal/domain"
)

// DefaultBaseURL is the Pixabay search endpoint.
const DefaultBaseURL = "https://pixabay.com/api/"

// Pixabay is a rate-limited Pixabay search client. The limiter keeps us under
// the free tier's 100 requests per minute.
type Pixabay struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewPixabay returns a client for baseURL. An empty apiKey disables search:
// Search then always reports no result.
func NewPixabay(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Pixabay {
	return &Pixabay{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(100.0/60.0), 10),
		log:     log,
	}
}

type searchResponse struct {
	Hits []struct {
		LargeImageURL string `json:"largeImageURL"`
	} `json:"hits"`
}

// Search returns the first matching photo URL, or "" when nothing matched.
func (p *Pixabay) Search(ctx context.Context, query string) (string, error) {
	if p.apiKey == "" {
		return "", nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("imagesearch.Pixabay.Search: %w", domain.ErrUpstreamSearch)
	}

	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", query)
	q.Set("image_type", "photo")
	q.Set("category", "places")
	q.Set("per_page", "3")
	q.Set("safesearch", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("imagesearch.Pixabay.Search: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			p.log.WarnContext(ctx, "image search timeout", "query", query)
			return "", fmt.Errorf("imagesearch.Pixabay.Search: %w", domain.ErrUpstreamTimeout)
		}
		p.log.ErrorContext(ctx, "image search request failed", "query", query, "error", err)
		return "", fmt.Errorf("imagesearch.Pixabay.Search: %w", domain.ErrUpstreamSearch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.ErrorContext(ctx, "image search rejected", "query", query, "status", resp.StatusCode)
		return "", fmt.Errorf("imagesearch.Pixabay.Search: status %d: %w", resp.StatusCode, domain.ErrUpstreamSearch)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		p.log.ErrorContext(ctx, "image search decode failed", "query", query, "error", err)
		return "", fmt.Errorf("imagesearch.Pixabay.Search: %w", domain.ErrUpstreamSearch)
	}

	if len(body.Hits) == 0 {
		return "", nil
	}
	return body.Hits[0].LargeImageURL, nil
}
