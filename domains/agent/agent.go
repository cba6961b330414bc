package agent

import "context"

// Result is the structured outcome of one forward attempt. Transport errors
// and non-2xx statuses are mapped here rather than raised, so callers are
// statically forced to inspect Success.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// IForwarder relays inbound event payloads to a user-configured HTTP
// endpoint. No retry is performed; a failed forward is terminal for that
// event.
type IForwarder interface {
	Forward(ctx context.Context, webhookURL string, raw map[string]any) Result
	// Test sends a fixed synthetic sample payload through the identical
	// transport path, so a passing test is a meaningful reachability check.
	Test(ctx context.Context, webhookURL string) Result
}
