// Package genimage resolves dish queries by generating an image with the
// OpenAI images API. This is the cascade's last resort before giving up.
package genimage

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
)

const (
	// ProviderName identifies this provider for logging and rate limiting.
	ProviderName = "openai_images"

	defaultBaseURL = "https://api.openai.com/v1/images/generations"
	defaultModel   = "dall-e-3"
	defaultSize    = "1024x1024"
)

// Config configures the image generation client.
type Config struct {
	APIKey string
	Model  string
	Size   string
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

// Client generates dish images.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates an image generation client.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.Configuration("image generation: api key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Size == "" {
		cfg.Size = defaultSize
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			// Generation regularly takes tens of seconds.
			Timeout: 120 * time.Second,
		},
		logger: log,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Tier returns the cascade tier this provider serves.
func (c *Client) Tier() domain.Tier { return domain.TierGenerated }

// Prompt builds the generation prompt for a dish. The fixed framing keeps
// generated images visually consistent across a menu.
func Prompt(query domain.Query) string {
	prompt := fmt.Sprintf(
		"High-resolution, photorealistic image of %s, plated on a clean white plate, "+
			"viewed at a 45-degree angle under natural lighting, realistic background, "+
			"food magazine style", query.Name)
	if query.Description != "" {
		prompt += ". The dish contains: " + query.Description
	}
	return prompt
}

type generateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	N       int    `json:"n"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Resolve generates one image for the query.
func (c *Client) Resolve(ctx context.Context, query domain.Query) ([]domain.Candidate, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.cfg.Model,
		Prompt:  Prompt(query),
		Size:    c.cfg.Size,
		Quality: "standard",
		N:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	c.logger.Debug("generating image", "name", query.Name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.TransientProvider(ProviderName, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var parsed generateResponse
	if err := json.UnmarshalRead(resp.Body, &parsed); err != nil {
		return nil, errors.TransientProvider(ProviderName, fmt.Errorf("parse response: %w", err))
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		c.logger.Warn("generation returned no image", "name", query.Name)
		return nil, nil
	}

	return []domain.Candidate{{
		ImageURL: parsed.Data[0].URL,
		Source:   domain.TierGenerated,
	}}, nil
}

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
