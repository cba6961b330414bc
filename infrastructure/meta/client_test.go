package meta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ak-softwares/wa-api-sub000/domains/send"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() send.Credentials {
	return send.Credentials{
		PhoneNumberID:  "100000000000001",
		PermanentToken: "test-token",
	}
}

func TestSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "wamid.SENT1"}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Version: "v19.0"})

	id, err := client.SendText(context.Background(), testCreds(), "15550001111", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.SENT1", id)
	assert.Equal(t, "/v19.0/100000000000001/messages", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "text", gotBody["type"])
}

func TestSendTemplate(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "wamid.TPL1"}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Version: "v19.0"})

	id, err := client.SendTemplate(context.Background(), testCreds(), "15550001111", "order_update", "en_US")
	require.NoError(t, err)
	assert.Equal(t, "wamid.TPL1", id)

	tpl, ok := gotBody["template"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order_update", tpl["name"])
}

func TestSendText_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid token"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Version: "v19.0"})

	_, err := client.SendText(context.Background(), testCreds(), "15550001111", "hello")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "invalid token")
}

func TestSendText_MissingMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]string{}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Version: "v19.0"})

	_, err := client.SendText(context.Background(), testCreds(), "15550001111", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing message id")
}
