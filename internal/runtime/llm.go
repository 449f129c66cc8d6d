package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/squad/internal/router"
	"github.com/ShayCichocki/squad/pkg/models"
)

// TierPricing holds the per-million-token rates for one tier.
type TierPricing struct {
	// InputPerMTok is the dollar cost per million input tokens.
	InputPerMTok float64
	// OutputPerMTok is the dollar cost per million output tokens.
	OutputPerMTok float64
}

// DefaultPricing returns approximate per-tier Claude pricing.
func DefaultPricing() map[models.Tier]TierPricing {
	return map[models.Tier]TierPricing{
		models.TierCheap:   {InputPerMTok: 1.0, OutputPerMTok: 5.0},
		models.TierCapable: {InputPerMTok: 3.0, OutputPerMTok: 15.0},
		models.TierPremium: {InputPerMTok: 15.0, OutputPerMTok: 75.0},
	}
}

// DefaultModels maps each tier to its Claude model.
func DefaultModels() map[models.Tier]anthropic.Model {
	return map[models.Tier]anthropic.Model{
		models.TierCheap:   anthropic.ModelClaudeHaiku4_5_20251001,
		models.TierCapable: anthropic.ModelClaudeSonnet4_5_20250929,
		models.TierPremium: anthropic.ModelClaudeOpus4_1_20250805,
	}
}

// LLMRuntime executes agent work by prompting Claude through one of the
// configured provider clients.
type LLMRuntime struct {
	providers map[string]*Client
	tierModel map[models.Tier]anthropic.Model
	pricing   map[models.Tier]TierPricing
	maxTokens int64
}

// NewLLMRuntime creates a runtime over the given provider clients.
// Providers are keyed by name ("anthropic", "bedrock"). Nil model or
// pricing maps get the defaults.
func NewLLMRuntime(providers map[string]*Client, tierModel map[models.Tier]anthropic.Model, pricing map[models.Tier]TierPricing) *LLMRuntime {
	if tierModel == nil {
		tierModel = DefaultModels()
	}
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &LLMRuntime{
		providers: providers,
		tierModel: tierModel,
		pricing:   pricing,
		maxTokens: 4096,
	}
}

// Run performs one agent call. The response is expected to carry a JSON
// object with the role's metrics; an unparseable response degrades to a
// safe default payload instead of failing the attempt.
func (r *LLMRuntime) Run(ctx context.Context, call Call) (*models.RoleOutput, float64, error) {
	client, ok := r.providers[call.Provider]
	if !ok {
		return nil, 0, router.Errorf(router.KindInvalidConfig, "unknown provider %q", call.Provider)
	}
	model, ok := r.tierModel[call.Tier]
	if !ok {
		return nil, 0, router.Errorf(router.KindInvalidConfig, "no model configured for tier %q", call.Tier)
	}

	resp, err := client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     client.translateModel(model),
		MaxTokens: r.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(call)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(call))),
		},
	})
	if err != nil {
		return nil, 0, classifyAPIError(err)
	}

	client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	cost := r.cost(call.Tier, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	out := parseOutput(call.Role, text.String())
	return out, cost, nil
}

// cost converts token usage to dollars at the tier's rates.
func (r *LLMRuntime) cost(tier models.Tier, input, output int64) float64 {
	p := r.pricing[tier]
	return float64(input)/1_000_000*p.InputPerMTok + float64(output)/1_000_000*p.OutputPerMTok
}

// classifyAPIError maps SDK failures onto the router's error taxonomy.
func classifyAPIError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return router.Wrap(router.KindRateLimit, err)
		case apierr.StatusCode == 529 || apierr.StatusCode >= 500:
			return router.Wrap(router.KindAvailability, err)
		case apierr.StatusCode == 400 || apierr.StatusCode == 404 || apierr.StatusCode == 422:
			return router.Wrap(router.KindInvalidInput, err)
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return router.Wrap(router.KindInvalidConfig, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return router.Wrap(router.KindTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return router.Wrap(router.KindTimeout, err)
	}
	return router.Wrap(router.KindConnection, err)
}

// systemPrompt tells the model what role it plays and the exact output
// shape the aggregator can score.
func systemPrompt(call Call) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %q analysis agent in an automated quality pipeline.\n", call.Role)
	if len(call.Tools) > 0 {
		fmt.Fprintf(&b, "Available tools: %s.\n", strings.Join(call.Tools, ", "))
		b.WriteString("If a tool you need is unavailable, report metrics of 0 and set \"degraded\": true instead of failing.\n")
	}
	b.WriteString("Respond with a single JSON object: ")
	b.WriteString(`{"metrics": {"<name>": <number>, ...}, "summary": "<one line>", "findings": ["<issue>", ...], "degraded": false}`)
	b.WriteString("\nNo prose outside the JSON object.")
	return b.String()
}

// userPrompt serializes the agent's config and execution context.
func userPrompt(call Call) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\n", call.Role)
	if len(call.Config) > 0 {
		cfg, _ := json.Marshal(call.Config)
		fmt.Fprintf(&b, "Config: %s\n", cfg)
	}
	if len(call.Context) > 0 {
		cc, _ := json.Marshal(call.Context)
		fmt.Fprintf(&b, "Context from prior agents: %s\n", cc)
	}
	b.WriteString("Perform your analysis and respond with the JSON object only.")
	return b.String()
}

// wireOutput is the JSON shape agents respond with.
type wireOutput struct {
	Metrics  map[string]float64 `json:"metrics"`
	Summary  string             `json:"summary"`
	Findings []string           `json:"findings"`
	Degraded bool               `json:"degraded"`
}

// parseOutput extracts the JSON payload from a model response. Responses
// without a parseable object degrade to an empty-metrics payload with the
// warning flag set, per the runtime contract.
func parseOutput(role, text string) *models.RoleOutput {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		var wire wireOutput
		if err := json.Unmarshal([]byte(text[start:end+1]), &wire); err == nil {
			return &models.RoleOutput{
				Role:     role,
				Metrics:  wire.Metrics,
				Summary:  wire.Summary,
				Findings: wire.Findings,
				Degraded: wire.Degraded,
			}
		}
	}
	return &models.RoleOutput{
		Role:     role,
		Metrics:  map[string]float64{},
		Summary:  strings.TrimSpace(text),
		Degraded: true,
	}
}
