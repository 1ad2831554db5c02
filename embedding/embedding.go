// Package embedding turns text into fixed-dimension vectors through a remote
// embedding model. Individual failures degrade to a zero vector so that one
// bad text never blocks the rest of a batch.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flarexio/groundrag/resilience"
)

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrUnrecognizedResponse = errors.New("unrecognized embedding response")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
)

type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

const DefaultDimension = 768

// modelDimensions lists the native output size of known models.
var modelDimensions = map[string]int{
	"text-embedding-004":     768,
	"gemini-embedding-001":   3072,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// ModelDimension reports the native output size of model, if known.
func ModelDimension(model string) (int, bool) {
	dim, ok := modelDimensions[strings.TrimPrefix(model, "models/")]
	return dim, ok
}

type Config struct {
	Provider          ProviderType `yaml:"provider"`
	Model             string       `yaml:"model"`
	BaseURL           string       `yaml:"baseURL"`
	APIKeyEnvs        []string     `yaml:"apiKeyEnvs"`
	Dimension         int          `yaml:"dimension"` // 0 uses the model's native size
	RequestsPerSecond float64      `yaml:"requestsPerSecond"`
}

func DefaultConfig() Config {
	return Config{
		Provider:   ProviderGemini,
		Model:      DefaultGeminiModel,
		APIKeyEnvs: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}
}

// Client performs a single remote embedding call without retrying.
type Client interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// LookupAPIKey returns the first non-empty variable among envs.
func LookupAPIKey(envs ...string) (string, error) {
	for _, env := range envs {
		if key := os.Getenv(env); key != "" {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w: none of %v is set", ErrConfiguration, envs)
}

// NewProvider resolves the API key and builds the configured client. It
// fails with ErrConfiguration before any remote call when no key is set.
func NewProvider(cfg Config, policy *resilience.Policy) (*Provider, error) {
	if len(cfg.APIKeyEnvs) == 0 {
		cfg.APIKeyEnvs = DefaultConfig().APIKeyEnvs
	}

	key, err := LookupAPIKey(cfg.APIKeyEnvs...)
	if err != nil {
		return nil, err
	}

	var client Client
	switch cfg.Provider {
	case ProviderGemini, "":
		if cfg.Model == "" {
			cfg.Model = DefaultGeminiModel
		}

		client = NewGeminiClient(cfg.BaseURL, key, cfg.Model)

	case ProviderOpenAI:
		if cfg.Model == "" || cfg.Model == DefaultGeminiModel {
			cfg.Model = DefaultOpenAIModel
		}

		client = NewOpenAIClient(cfg.BaseURL, key, cfg.Model)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", ErrConfiguration, cfg.Provider)
	}

	if dim, ok := ModelDimension(cfg.Model); ok && cfg.Dimension > 0 && cfg.Dimension != dim {
		return nil, fmt.Errorf("%w: model %s returns %d dimensions, configured %d",
			ErrConfiguration, cfg.Model, dim, cfg.Dimension)
	}

	return New(client, cfg, policy), nil
}

func New(client Client, cfg Config, policy *resilience.Policy) *Provider {
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
		if dim, ok := ModelDimension(cfg.Model); ok {
			cfg.Dimension = dim
		}
	}

	p := &Provider{
		client: client,
		policy: policy,
		dim:    cfg.Dimension,
		log: zap.L().With(
			zap.String("component", "embedding"),
			zap.String("provider", string(cfg.Provider)),
			zap.String("model", cfg.Model),
		),
	}

	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return p
}

type Provider struct {
	client  Client
	policy  *resilience.Policy
	limiter *rate.Limiter
	dim     int
	log     *zap.Logger
}

func (p *Provider) Dimension() int {
	return p.dim
}

// EmbedBatch returns one vector per text in input order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.embedOrZero(ctx, text, i)
	}

	return vectors
}

// Embed embeds a single text. Failures yield the zero vector, never an error.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.embedOrZero(ctx, text, 0), nil
}

func (p *Provider) embedOrZero(ctx context.Context, text string, index int) []float32 {
	vec, err := p.embed(ctx, text)
	if err != nil {
		p.log.Warn(err.Error(),
			zap.String("action", "embed"),
			zap.Int("index", index),
		)

		return make([]float32, p.dim)
	}

	return vec
}

func (p *Provider) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := resilience.Do(ctx, p.policy, func(ctx context.Context) ([]float32, error) {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		return p.client.EmbedText(ctx, text)
	})

	if err != nil {
		return nil, err
	}

	if len(vec) != p.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), p.dim)
	}

	return vec, nil
}
