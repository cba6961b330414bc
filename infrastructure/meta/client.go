package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/send"
	"github.com/sirupsen/logrus"
)

// APIError is a non-2xx response from the provider. Callers treat any error
// as a send failure to be recorded, not raised.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the WhatsApp Cloud (Graph) API. One instance is shared by
// all accounts; credentials travel per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
}

type Config struct {
	BaseURL string
	Version string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		version:    cfg.Version,
	}
}

var _ send.IProviderClient = (*Client)(nil)

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type templatePayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Template         struct {
		Name     string `json:"name"`
		Language struct {
			Code string `json:"code"`
		} `json:"language"`
	} `json:"template"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText performs one POST /{phoneNumberId}/messages call and returns the
// provider-assigned message id.
func (c *Client) SendText(ctx context.Context, creds send.Credentials, to, body string) (string, error) {
	payload := textPayload{MessagingProduct: "whatsapp", To: to, Type: "text"}
	payload.Text.Body = body
	return c.post(ctx, creds, payload)
}

// SendTemplate sends a pre-approved template by name and language code.
func (c *Client) SendTemplate(ctx context.Context, creds send.Credentials, to, templateName, languageCode string) (string, error) {
	payload := templatePayload{MessagingProduct: "whatsapp", To: to, Type: "template"}
	payload.Template.Name = templateName
	payload.Template.Language.Code = languageCode
	return c.post(ctx, creds, payload)
}

func (c *Client) post(ctx context.Context, creds send.Credentials, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal provider payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.PermanentToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{
			"phone_number_id": creds.PhoneNumberID,
			"status":          resp.StatusCode,
		}).Warn("[PROVIDER] Send rejected")
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("malformed provider response: %w", err)
	}
	if len(parsed.Messages) == 0 || parsed.Messages[0].ID == "" {
		return "", fmt.Errorf("provider response missing message id")
	}
	return parsed.Messages[0].ID, nil
}
