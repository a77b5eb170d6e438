// Package materials suggests a material list for a job using an LLM.
//
// Suggestions are best effort: any failure yields an empty list and a
// warning log, never an error, so job operations are never blocked by it.
package materials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"jobline/internal/config"
	"jobline/internal/domain"
	"jobline/internal/logging"
	"jobline/internal/metrics"
)

const (
	defaultTimeout        = 20 * time.Second
	defaultPerMinute      = 30
	defaultBurst          = 5
	maxMaterials          = 25
	maxResponseTokens     = 800
	suggestionTemperature = 0.2
)

// Suggester returns suggested materials for a job.
type Suggester interface {
	Suggest(ctx context.Context, job domain.Job) []domain.Material
}

// Disabled is the Suggester used when no provider is configured.
type Disabled struct{}

func (Disabled) Suggest(context.Context, domain.Job) []domain.Material { return []domain.Material{} }

// LLMSuggester asks a langchaingo model for a JSON material list.
type LLMSuggester struct {
	model   llms.Model
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLMSuggester wraps model. perMinute <= 0 uses the default rate.
func NewLLMSuggester(model llms.Model, perMinute int, timeout time.Duration, logger *zap.Logger) *LLMSuggester {
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LLMSuggester{
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), defaultBurst),
		timeout: timeout,
		logger:  logging.OrNop(logger).Named("materials"),
	}
}

// FromConfig builds the configured Suggester.
func FromConfig(cfg config.LLMConfig, logger *zap.Logger) (Suggester, error) {
	switch cfg.Provider {
	case "":
		return Disabled{}, nil
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKeyEnv != "" {
			opts = append(opts, openai.WithToken(os.Getenv(cfg.APIKeyEnv)))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return NewLLMSuggester(llm, cfg.RequestsPerMinute, time.Duration(cfg.TimeoutSeconds)*time.Second, logger), nil
	default:
		return nil, fmt.Errorf("unsupported materials provider %q", cfg.Provider)
	}
}

func (s *LLMSuggester) Suggest(ctx context.Context, job domain.Job) []domain.Material {
	start := time.Now()
	out, err := s.suggest(ctx, job)
	if err != nil {
		metrics.MaterialSuggestDuration.WithLabelValues("degraded").Observe(time.Since(start).Seconds())
		s.logger.Warn("material suggestion unavailable", zap.String("job_id", job.ID), zap.Error(err))
		return []domain.Material{}
	}
	metrics.MaterialSuggestDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return out
}

func (s *LLMSuggester) suggest(ctx context.Context, job domain.Job) ([]domain.Material, error) {
	if s.model == nil {
		return nil, errors.New("no model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	msgs := []llms.MessageContent{
		{Role: schema.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}}},
		{Role: schema.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: Prompt(job)}}},
	}
	resp, err := s.model.GenerateContent(ctx, msgs,
		llms.WithTemperature(suggestionTemperature),
		llms.WithMaxTokens(maxResponseTokens),
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, errors.New("empty response")
	}
	return Parse(resp.Choices[0].Content)
}

const systemPrompt = `You plan materials for home maintenance jobs. Reply with JSON only, shaped as {"materials":[{"name":"...","quantity":"...","catalog_id":"..."}]}. catalog_id may be empty.`

// Prompt renders the user prompt for a job.
func Prompt(job domain.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", job.Title)
	if job.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", job.Description)
	}
	fmt.Fprintf(&b, "Risk: %s, technical grade TG%d\n", job.RiskLevel, job.TechnicalGrade)
	b.WriteString("List the materials a professional needs.")
	return b.String()
}

// wireMaterial is a reply item as models actually send it: quantity and
// catalog id come back as strings or bare numbers.
type wireMaterial struct {
	Name      string          `json:"name"`
	Quantity  json.RawMessage `json:"quantity"`
	CatalogID json.RawMessage `json:"catalog_id"`
}

type materialList struct {
	Materials []wireMaterial `json:"materials"`
}

// Parse decodes a model reply into materials. It accepts either the wrapped
// object or a bare array, optionally inside a markdown code fence.
func Parse(raw string) ([]domain.Material, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	var items []wireMaterial
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("decode materials: %w", err)
		}
	} else {
		var list materialList
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, fmt.Errorf("decode materials: %w", err)
		}
		items = list.Materials
	}
	out := make([]domain.Material, 0, len(items))
	for _, m := range items {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		out = append(out, domain.Material{
			Name:      name,
			Quantity:  scalarText(m.Quantity),
			CatalogID: scalarText(m.CatalogID),
		})
		if len(out) == maxMaterials {
			break
		}
	}
	return out, nil
}

// scalarText renders a JSON string or number as text. Anything else,
// including a missing field, is empty.
func scalarText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}
