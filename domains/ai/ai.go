package ai

import (
	"context"
	"math"
)

// Turn is one prior message mapped into model-context form. Role is "user"
// or "assistant"; a message counts as assistant iff it was sent from the
// business phone number itself.
type Turn struct {
	Role string
	Text string
}

// Usage are the raw token counts returned by a model provider. A response
// without usage counts cannot be billed and is treated as a hard failure.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// IChatModel is a single chat-completion provider.
type IChatModel interface {
	Complete(ctx context.Context, model, systemPrompt string, history []Turn, maxTokens int, temperature float64) (string, *Usage, error)
}

// GenerateRequest carries everything the reply generator needs for one
// invocation against one chat.
type GenerateRequest struct {
	UserID        string
	ChatID        string
	PhoneNumberID string
	Prompt        string
	Model         string
	UserName      string
	UserPhone     string
}

// GenerateResult is a produced reply plus the id of the AiUsage row recorded
// for the invocation.
type GenerateResult struct {
	Reply   string
	UsageID string
}

type IReplyGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// ModelPricing defines costs per 1M tokens in USD.
type ModelPricing struct {
	InputPerMToken  float64 `json:"input_per_m_token"`
	OutputPerMToken float64 `json:"output_per_m_token"`
}

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// ModelPrices is the static per-model price table used for AiUsage cost
// attribution. Unknown models fall back to DefaultOpenAIModel pricing.
var ModelPrices = map[string]ModelPricing{
	// OpenAI
	"gpt-4o":      {InputPerMToken: 2.50, OutputPerMToken: 10.00},
	"gpt-4o-mini": {InputPerMToken: 0.15, OutputPerMToken: 0.60},
	"gpt-4.1":     {InputPerMToken: 2.00, OutputPerMToken: 8.00},
	"gpt-4.1-mini": {
		InputPerMToken:  0.40,
		OutputPerMToken: 1.60,
	},

	// Gemini
	"gemini-2.5-flash":      {InputPerMToken: 0.30, OutputPerMToken: 2.50},
	"gemini-2.5-flash-lite": {InputPerMToken: 0.10, OutputPerMToken: 0.40},
	"gemini-2.0-flash":      {InputPerMToken: 0.10, OutputPerMToken: 0.40},
	"gemini-2.0-flash-lite": {InputPerMToken: 0.075, OutputPerMToken: 0.30},
}

// PriceFor returns the pricing for a model, falling back to the default
// OpenAI model when the model is not in the table.
func PriceFor(model string) ModelPricing {
	if p, ok := ModelPrices[model]; ok {
		return p
	}
	return ModelPrices[DefaultOpenAIModel]
}

// RoundCost rounds a USD amount to 6 decimal places, the precision stored on
// AiUsage rows.
func RoundCost(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// CostUSD computes the input and output cost for a token count against a
// model's price table entry. Both components are already rounded.
func CostUSD(model string, inputTokens, outputTokens int) (inputCost, outputCost float64) {
	pricing := PriceFor(model)
	inputCost = RoundCost(float64(inputTokens) * pricing.InputPerMToken / 1_000_000)
	outputCost = RoundCost(float64(outputTokens) * pricing.OutputPerMToken / 1_000_000)
	return inputCost, outputCost
}
