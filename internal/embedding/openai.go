package embedding

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"time"

	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
)

const embeddingsURL = "https://api.openai.com/v1/embeddings"

// OpenAIConfig configures the OpenAI embeddings client.
type OpenAIConfig struct {
	APIKey string
	Model  string
	// Dimensions must match the vectors stored in the catalog.
	Dimensions int
}

// OpenAIProvider calls the OpenAI embeddings API.
type OpenAIProvider struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewOpenAI creates an OpenAI embeddings provider.
func NewOpenAI(cfg OpenAIConfig, log *logger.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.Configuration("openai embeddings: api key required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.Configurationf("openai embeddings: invalid dimensions %d", cfg.Dimensions)
	}
	return &OpenAIProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: log,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Dimensions returns the configured embedding dimensionality.
func (p *OpenAIProvider) Dimensions() int { return p.cfg.Dimensions }

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitzero"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed returns one embedding per input string.
func (p *OpenAIProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingsRequest{
		Model:      p.cfg.Model,
		Input:      inputs,
		Dimensions: p.cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, embeddingsURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrEmbedding.WithCause(err)
	}
	defer resp.Body.Close()

	var parsed embeddingsResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.UnmarshalRead(resp.Body, &parsed)
		if parsed.Error.Message != "" {
			return nil, errors.Embedding(fmt.Sprintf("openai: %s", parsed.Error.Message))
		}
		return nil, errors.Embedding(fmt.Sprintf("openai: status %d", resp.StatusCode))
	}

	if err := json.UnmarshalRead(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, errors.Embedding(fmt.Sprintf("openai: got %d embeddings for %d inputs", len(parsed.Data), len(inputs)))
	}

	// Place embeddings by the index field, not response position.
	out := make([][]float32, len(inputs))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errors.Embedding(fmt.Sprintf("openai: embedding index %d out of range", d.Index))
		}
		if len(d.Embedding) != p.cfg.Dimensions {
			return nil, errors.Embedding(fmt.Sprintf("openai: got %d dimensions, want %d", len(d.Embedding), p.cfg.Dimensions))
		}
		out[d.Index] = d.Embedding
	}

	return out, nil
}
