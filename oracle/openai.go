package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/cloudx-io/proxypilot/core"
)

const (
	defaultModel       = "google/gemini-2.5-flash-preview-09-2025"
	defaultMaxTokens   = 2000
	defaultTemperature = 0.1
)

// ClientConfig configures the OpenAI-compatible oracle client. BaseURL may
// point at any compatible gateway (OpenRouter included).
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32

	// SafeMaxRatio and CeilingRatio override the prompt's financial guidance
	// when > 0. They should match whatever the validator enforces, or the
	// prompt will promise boundaries the pipeline does not honor.
	SafeMaxRatio float64
	CeilingRatio float64
}

// Client is the OpenAI-backed Oracle implementation.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	prompts     *PromptBuilder
	log         zerolog.Logger
}

// NewClient builds a Client. Zero-valued config fields take defaults; the
// temperature defaults low so proposals stay consistent across retries.
func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	prompts := NewPromptBuilder()
	if cfg.SafeMaxRatio > 0 {
		prompts.SafeMaxRatio = cfg.SafeMaxRatio
	}
	if cfg.CeilingRatio > 0 {
		prompts.CeilingRatio = cfg.CeilingRatio
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		prompts:     prompts,
		log:         log.With().Str("component", "oracle").Logger(),
	}
}

// Propose sends the prompts and parses the reply into a strategy decision.
func (c *Client) Propose(ctx context.Context, req Request) (core.StrategyDecision, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompts.SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: c.prompts.UserPrompt(req)},
		},
	})
	if err != nil {
		return core.StrategyDecision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return core.StrategyDecision{}, fmt.Errorf("%w: empty completion", ErrMalformedReply)
	}

	decision, err := ParseDecision(resp.Choices[0].Message.Content)
	if err != nil {
		c.log.Warn().Err(err).Str("model", c.model).Msg("discarding unparseable oracle reply")
		return core.StrategyDecision{}, err
	}

	c.log.Debug().
		Str("strategy", string(decision.Strategy)).
		Float64("recommended_bid", decision.RecommendedBidAmount).
		Float64("confidence", decision.Confidence).
		Msg("oracle proposal accepted")
	return decision, nil
}

// ParseDecision extracts the first JSON object from a model reply and
// decodes it. Replies wrapped in markdown code fences are tolerated.
// Omitted optional fields take defaults: max_budget_for_domain falls back
// to the recommended bid amount.
func ParseDecision(raw string) (core.StrategyDecision, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return core.StrategyDecision{}, err
	}

	var decision core.StrategyDecision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return core.StrategyDecision{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	if decision.MaxBudgetForDomain == 0 {
		decision.MaxBudgetForDomain = decision.RecommendedBidAmount
	}

	if err := decision.Validate(); err != nil {
		return core.StrategyDecision{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return decision, nil
}

func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	// Prefer the contents of a fenced block when present.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = rest[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in reply", ErrMalformedReply)
	}
	return s[start : end+1], nil
}
