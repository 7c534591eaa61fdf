// Package websearch resolves dish queries against the Google Custom Search
// image API.
package websearch

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/normalize"
)

const (
	// ProviderName identifies this provider for logging and rate limiting.
	ProviderName = "google_cse"

	defaultBaseURL = "https://www.googleapis.com/customsearch/v1"
	defaultLimit   = 3
	// strictSiteCount is how many food domains join the first-pass site
	// restriction.
	strictSiteCount = 5
)

// Config configures the web search client.
type Config struct {
	APIKey   string
	EngineID string
	// BaseURL overrides the CSE endpoint, used in tests.
	BaseURL string
	// Limit is the number of image URLs returned per query.
	Limit int
}

// Client searches Google CSE for dish photos.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a web search client.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, errors.Configuration("web search: api key and engine id required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Tier returns the cascade tier this provider serves.
func (c *Client) Tier() domain.Tier { return domain.TierWebSearch }

type cseItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Image       struct {
		ContextLink  string `json:"contextLink"`
		ThumbnailURL string `json:"thumbnailLink"`
	} `json:"image"`
}

type cseResponse struct {
	Items []cseItem `json:"items"`
}

// Resolve searches for dish photos in two passes: a strict pass restricted
// to known food sites with junk-term negatives, then a looser pass without
// restrictions when the strict pass comes up short. Results dedupe by
// canonical image URL and source page.
func (c *Client) Resolve(ctx context.Context, query domain.Query) ([]domain.Candidate, error) {
	core, modifiers := normalize.SearchTerms(query.Name)
	keywords := coreKeywords(core, modifiers)
	savory := isSavory(core)

	c.logger.Debug("searching images",
		"name", query.Name,
		"core", core,
		"modifiers", modifiers,
	)

	seenImages := make(map[string]bool)
	seenPages := make(map[string]bool)
	var candidates []domain.Candidate

	strictQuery := buildQuery(core, modifiers, query.Description, true, true) + " " + siteRestriction(strictSiteCount)
	items, err := c.search(ctx, strictQuery, min(c.cfg.Limit*2, 10))
	if err != nil {
		return nil, err
	}
	candidates = c.collect(candidates, items, keywords, savory, seenImages, seenPages)

	if len(candidates) < c.cfg.Limit {
		looseModifiers := modifiers
		if len(looseModifiers) > 1 {
			looseModifiers = looseModifiers[:1]
		}
		looseQuery := buildQuery(core, looseModifiers, query.Description, false, false)

		items, err = c.search(ctx, looseQuery, min((c.cfg.Limit-len(candidates))*2, 10))
		if err != nil {
			// The strict pass already produced results; return them rather
			// than failing the whole tier.
			if len(candidates) > 0 {
				c.logger.WithError(err).Warn("loose search pass failed, returning strict results")
				return candidates, nil
			}
			return nil, err
		}
		candidates = c.collect(candidates, items, []string{core}, savory, seenImages, seenPages)
	}

	c.logger.Debug("image search complete",
		"name", query.Name,
		"found", len(candidates),
	)
	return candidates, nil
}

// collect filters, dedupes, and ranks search items into candidates.
func (c *Client) collect(candidates []domain.Candidate, items []cseItem, keywords []string, savory bool, seenImages, seenPages map[string]bool) []domain.Candidate {
	for _, item := range items {
		if len(candidates) >= c.cfg.Limit {
			break
		}
		if item.Link == "" {
			continue
		}

		canonical := canonicalURL(item.Link)
		if seenImages[canonical] || (item.Image.ContextLink != "" && seenPages[item.Image.ContextLink]) {
			continue
		}
		if !isRelevant(item, keywords, savory) {
			continue
		}

		seenImages[canonical] = true
		seenPages[item.Image.ContextLink] = true
		candidates = append(candidates, domain.Candidate{
			ImageURL: item.Link,
			Source:   domain.TierWebSearch,
			Rank:     len(candidates),
			Title:    item.Title,
		})
	}
	return candidates
}

// search runs one CSE image query.
func (c *Client) search(ctx context.Context, query string, num int) ([]cseItem, error) {
	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(num))
	params.Set("safe", "active")
	params.Set("imgType", "photo")
	params.Set("imgSize", "LARGE")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.TransientProvider(ProviderName, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var parsed cseResponse
	if err := json.UnmarshalRead(resp.Body, &parsed); err != nil {
		return nil, errors.TransientProvider(ProviderName, fmt.Errorf("parse response: %w", err))
	}
	return parsed.Items, nil
}

// classifyStatus maps HTTP status codes onto the transient/permanent split:
// 429 is transient and carries the Retry-After hint, 5xx is transient,
// remaining 4xx are permanent.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.RateLimited(ProviderName, parseRetryAfter(resp), fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return errors.TransientProvider(ProviderName, fmt.Errorf("status %d", resp.StatusCode))
	default:
		return errors.PermanentProvider(ProviderName, fmt.Errorf("status %d", resp.StatusCode))
	}
}

// parseRetryAfter reads the Retry-After header in seconds form. HTTP-date
// form is rare from these APIs and is ignored.
func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
