package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/account"
	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	domainSend "github.com/ak-softwares/wa-api-sub000/domains/send"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *account.WaAccount {
	return &account.WaAccount{
		ID:             "acc-1",
		UserID:         "user-1",
		PhoneNumberID:  "100000000000001",
		PermanentToken: "token-1",
		Default:        true,
	}
}

func TestSendSingle_Success(t *testing.T) {
	provider := newFakeProvider()
	store := newMemChatStore()
	svc := NewSendService(provider, store, time.Second)

	msg, err := svc.SendSingle(context.Background(), testAccount(), "15550001111", "hello", domainSend.SingleOptions{})
	require.NoError(t, err)

	assert.Equal(t, chat.StatusSent, msg.Status)
	assert.NotEmpty(t, msg.WaMessageID)
	assert.Equal(t, "15550001111", msg.To)
	assert.Equal(t, "100000000000001", msg.From)

	c, err := store.GetByID(context.Background(), msg.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "hello", c.LastMessage)
	assert.Equal(t, 0, c.UnreadCount, "outbound sends never bump unread")
}

func TestSendSingle_ProviderFailureRecordsFailedRow(t *testing.T) {
	provider := newFakeProvider()
	provider.failFor["15550001111"] = pkgError.WebhookError("provider returned status 500")
	store := newMemChatStore()
	svc := NewSendService(provider, store, time.Second)

	msg, err := svc.SendSingle(context.Background(), testAccount(), "15550001111", "hello", domainSend.SingleOptions{})
	require.NoError(t, err, "provider failure must not surface as an error")

	assert.Equal(t, chat.StatusFailed, msg.Status)
	assert.Empty(t, msg.WaMessageID)
	assert.NotEmpty(t, msg.Error)

	// The failed send must not overwrite the chat preview.
	c, err := store.GetByID(context.Background(), msg.ChatID)
	require.NoError(t, err)
	assert.Empty(t, c.LastMessage)
}

func TestSendSingle_CarriesTagAndUsageID(t *testing.T) {
	provider := newFakeProvider()
	store := newMemChatStore()
	svc := NewSendService(provider, store, time.Second)

	msg, err := svc.SendSingle(context.Background(), testAccount(), "15550001111", "reply", domainSend.SingleOptions{
		Tag:       "aichat",
		AiUsageID: "usage-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "aichat", msg.Tag)
	assert.Equal(t, "usage-42", msg.AiUsageID)
}

func TestSendTemplate_Success(t *testing.T) {
	provider := newFakeProvider()
	store := newMemChatStore()
	svc := NewSendService(provider, store, time.Second)

	msg, err := svc.SendTemplate(context.Background(), testAccount(), "15550001111", "order_update", "en_US")
	require.NoError(t, err)
	assert.Equal(t, chat.StatusSent, msg.Status)
	assert.Equal(t, chat.MessageTypeTemplate, msg.Type)
	assert.Equal(t, "order_update", msg.Template)
}

func TestSendBroadcast_FailureIsolation(t *testing.T) {
	provider := newFakeProvider()
	provider.failFor["15550002222"] = pkgError.WebhookError("provider returned status 500")
	store := newMemChatStore()
	svc := NewSendService(provider, store, time.Second)
	ctx := context.Background()

	bc, err := store.CreateBroadcast(ctx, "user-1", "acc-1", "Campaign", []chat.Participant{
		{Number: "15550001111"},
		{Number: "15550002222"},
		{Number: "15550003333"},
	})
	require.NoError(t, err)

	msg, report, err := svc.SendBroadcast(ctx, testAccount(), bc, "promo text")
	require.NoError(t, err)
	require.Len(t, report, 3)

	// Results are indexed by participant order.
	assert.True(t, report[0].Success)
	assert.False(t, report[1].Success)
	assert.NotEmpty(t, report[1].Error)
	assert.True(t, report[2].Success)

	assert.Equal(t, []string{"15550001111", "15550003333"}, provider.sentTo())

	// Exactly one summary row, addressed to the synthetic recipient.
	assert.Equal(t, "broadcast", msg.To)
	assert.Equal(t, chat.StatusSent, msg.Status)
	rows := store.allMessages(bc.ID)
	require.Len(t, rows, 1)
}

func TestSendBroadcast_AllFailedMarksSummaryFailed(t *testing.T) {
	provider := newFakeProvider()
	provider.failFor["15550001111"] = pkgError.WebhookError("provider returned status 500")
	provider.failFor["15550002222"] = pkgError.WebhookError("provider returned status 500")
	store := newMemChatStore()
	svc := NewSendService(provider, store, time.Second)
	ctx := context.Background()

	bc, err := store.CreateBroadcast(ctx, "user-1", "acc-1", "Campaign", []chat.Participant{
		{Number: "15550001111"},
		{Number: "15550002222"},
	})
	require.NoError(t, err)

	msg, report, err := svc.SendBroadcast(ctx, testAccount(), bc, "promo")
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.False(t, report[0].Success)
	assert.False(t, report[1].Success)
	assert.Equal(t, chat.StatusFailed, msg.Status)
}
