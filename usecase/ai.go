package usecase

import (
	"context"
	"fmt"
	"strings"

	domainAI "github.com/ak-softwares/wa-api-sub000/domains/ai"
	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	"github.com/sirupsen/logrus"
)

type serviceAI struct {
	openai       domainAI.IChatModel
	gemini       domainAI.IChatModel
	chatStore    chat.IChatStore
	usageStore   chat.IUsageStore
	historyLimit int
	maxTokens    int
	temperature  float64
}

func NewAIService(openai, gemini domainAI.IChatModel, chatStore chat.IChatStore, usageStore chat.IUsageStore, historyLimit, maxTokens int, temperature float64) domainAI.IReplyGenerator {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &serviceAI{
		openai:       openai,
		gemini:       gemini,
		chatStore:    chatStore,
		usageStore:   usageStore,
		historyLimit: historyLimit,
		maxTokens:    maxTokens,
		temperature:  temperature,
	}
}

// Generate produces one reply for the chat's latest state and records the
// billing row. A provider response without text or usage counts is a hard
// error: an unbillable reply must never be sent.
func (service serviceAI) Generate(ctx context.Context, req domainAI.GenerateRequest) (domainAI.GenerateResult, error) {
	recent, err := service.chatStore.RecentMessages(ctx, req.ChatID, service.historyLimit)
	if err != nil {
		return domainAI.GenerateResult{}, fmt.Errorf("load chat history: %w", err)
	}

	// RecentMessages is newest first; the model wants chronological order.
	history := make([]domainAI.Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m.Body == "" {
			continue
		}
		role := "user"
		if m.From == req.PhoneNumberID {
			role = "assistant"
		}
		history = append(history, domainAI.Turn{Role: role, Text: m.Body})
	}

	model := req.Model
	if model == "" {
		model = domainAI.DefaultOpenAIModel
	}

	reply, usage, err := service.providerFor(model).Complete(
		ctx, model, service.buildSystemPrompt(req), history, service.maxTokens, service.temperature,
	)
	if err != nil {
		return domainAI.GenerateResult{}, err
	}
	if reply == "" || usage == nil {
		return domainAI.GenerateResult{}, fmt.Errorf("model %s returned no usable reply", model)
	}

	inputCost, outputCost := domainAI.CostUSD(model, usage.InputTokens, usage.OutputTokens)
	record := &chat.AiUsage{
		UserID:       req.UserID,
		Model:        model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.InputTokens + usage.OutputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
	}
	if err := service.usageStore.CreateUsage(ctx, record); err != nil {
		return domainAI.GenerateResult{}, fmt.Errorf("record usage: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"chat_id":       req.ChatID,
		"model":         model,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
		"total_cost":    fmt.Sprintf("$%.6f", record.TotalCost),
	}).Info("[AI] Reply generated")

	return domainAI.GenerateResult{Reply: reply, UsageID: record.ID}, nil
}

func (service serviceAI) providerFor(model string) domainAI.IChatModel {
	if strings.HasPrefix(model, "gemini-") {
		return service.gemini
	}
	return service.openai
}

func (service serviceAI) buildSystemPrompt(req domainAI.GenerateRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = "You are a helpful assistant answering WhatsApp messages on behalf of a business."
	}
	b.WriteString(prompt)

	if req.UserName != "" || req.UserPhone != "" {
		b.WriteString("\n\nYou are talking with")
		if req.UserName != "" {
			b.WriteString(" " + req.UserName)
		}
		if req.UserPhone != "" {
			b.WriteString(" (phone: " + req.UserPhone + ")")
		}
		b.WriteString(". You may address them by name, but don't overuse the name.")
	}
	return b.String()
}
