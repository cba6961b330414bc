package gemini

import (
	"context"
	"fmt"

	"github.com/ak-softwares/wa-api-sub000/domains/ai"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Provider is the adapter for the Google Gemini API.
type Provider struct {
	apiKey string
}

func NewProvider(apiKey string) *Provider {
	return &Provider{apiKey: apiKey}
}

var _ ai.IChatModel = (*Provider)(nil)

// Complete runs one generation. History arrives oldest first; assistant
// turns map to the model role.
func (p *Provider) Complete(ctx context.Context, model, systemPrompt string, history []ai.Turn, maxTokens int, temperature float64) (string, *ai.Usage, error) {
	if p.apiKey == "" {
		return "", nil, fmt.Errorf("gemini provider has no API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", nil, err
	}

	if model == "" {
		model = ai.DefaultGeminiModel
	}

	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, "")
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	temp := float32(temperature)
	cfg.Temperature = &temp

	var contents []*genai.Content
	for _, t := range history {
		role := genai.RoleUser
		if t.Role == "assistant" {
			role = genai.RoleModel
		}
		if t.Text != "" {
			contents = append(contents, &genai.Content{
				Role:  role,
				Parts: []*genai.Part{{Text: t.Text}},
			})
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", nil, err
	}

	text := result.Text()
	if text == "" {
		return "", nil, fmt.Errorf("no response text from gemini")
	}
	if result.UsageMetadata == nil {
		return "", nil, fmt.Errorf("gemini response missing usage metadata")
	}

	usage := &ai.Usage{
		InputTokens:  int(result.UsageMetadata.PromptTokenCount),
		OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
	}

	logrus.WithFields(logrus.Fields{
		"model":         model,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
	}).Debug("[GEMINI] Generation completed")

	return text, usage, nil
}
