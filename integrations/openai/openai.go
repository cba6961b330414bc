package openai

import (
	"context"
	"fmt"

	"github.com/ak-softwares/wa-api-sub000/domains/ai"
	openailib "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// Provider is the adapter for the OpenAI chat completion API.
type Provider struct {
	apiKey string
}

func NewProvider(apiKey string) *Provider {
	return &Provider{apiKey: apiKey}
}

var _ ai.IChatModel = (*Provider)(nil)

// Complete runs one chat completion. History arrives oldest first. A response
// missing text or usage counts is an error; the caller cannot bill it.
func (p *Provider) Complete(ctx context.Context, model, systemPrompt string, history []ai.Turn, maxTokens int, temperature float64) (string, *ai.Usage, error) {
	if p.apiKey == "" {
		return "", nil, fmt.Errorf("openai provider has no API key")
	}

	client := openailib.NewClient(
		option.WithAPIKey(p.apiKey),
	)

	if model == "" {
		model = ai.DefaultOpenAIModel
	}

	var messages []openailib.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openailib.SystemMessage(systemPrompt))
	}
	for _, t := range history {
		if t.Role == "assistant" {
			messages = append(messages, openailib.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openailib.UserMessage(t.Text))
		}
	}

	params := openailib.ChatCompletionNewParams{
		Model:       openailib.ChatModel(model),
		Messages:    messages,
		Temperature: openailib.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openailib.Int(int64(maxTokens))
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", nil, err
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", nil, fmt.Errorf("no response text from openai")
	}
	if completion.Usage.PromptTokens == 0 && completion.Usage.CompletionTokens == 0 {
		return "", nil, fmt.Errorf("openai response missing usage counts")
	}

	usage := &ai.Usage{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}

	logrus.WithFields(logrus.Fields{
		"model":         model,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
	}).Debug("[OPENAI] Chat completed")

	return completion.Choices[0].Message.Content, usage, nil
}
