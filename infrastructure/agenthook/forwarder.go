package agenthook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/agent"
	"github.com/sirupsen/logrus"
)

// submitFn is swappable in tests.
var submitFn = submit

// Forwarder relays inbound event payloads to user-owned agent endpoints. The
// timeout is generous but bounded; those endpoints are user-controlled and
// may be slow.
type Forwarder struct {
	httpClient *http.Client
}

func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Forwarder{
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ agent.IForwarder = (*Forwarder)(nil)

// Forward wraps the raw event in a {raw: payload} envelope and performs one
// HTTP POST. Every outcome, including transport failure, maps to a
// structured result; nothing is raised.
func (f *Forwarder) Forward(ctx context.Context, webhookURL string, raw map[string]any) agent.Result {
	data, err := submitFn(ctx, f.httpClient, webhookURL, map[string]any{"raw": raw})
	if err != nil {
		logrus.WithError(err).WithField("url", webhookURL).Warn("[AGENT] Forward failed")
		return agent.Result{Success: false, Message: err.Error()}
	}
	return agent.Result{Success: true, Message: "forwarded", Data: data}
}

// Test sends a fixed synthetic sample payload through the identical
// transport path as Forward, so a passing test is a meaningful reachability
// guarantee before activating agent mode.
func (f *Forwarder) Test(ctx context.Context, webhookURL string) agent.Result {
	data, err := submitFn(ctx, f.httpClient, webhookURL, map[string]any{"raw": SamplePayload()})
	if err != nil {
		return agent.Result{Success: false, Message: err.Error()}
	}
	return agent.Result{Success: true, Message: "agent webhook reachable", Data: data}
}

// SamplePayload is the synthetic inbound event used by Test.
func SamplePayload() map[string]any {
	return map[string]any{
		"messaging_product": "whatsapp",
		"metadata": map[string]any{
			"display_phone_number": "15550000000",
			"phone_number_id":      "000000000000000",
		},
		"contacts": []any{
			map[string]any{
				"profile": map[string]any{"name": "Webhook Test"},
				"wa_id":   "15550001111",
			},
		},
		"messages": []any{
			map[string]any{
				"from":      "15550001111",
				"id":        "wamid.TEST",
				"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
				"type":      "text",
				"text":      map[string]any{"body": "This is a test event from your console."},
			},
		},
	}
}

func submit(ctx context.Context, client *http.Client, webhookURL string, envelope map[string]any) (any, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal agent payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("agent endpoint returned status %d", resp.StatusCode)
	}

	// Response bodies are passed through as-is; the agent decides the shape.
	var data any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &data); err != nil {
			data = string(respBody)
		}
	}
	return data, nil
}
