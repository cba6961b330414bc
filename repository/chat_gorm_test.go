package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, InitSchema(context.Background(), db))
	t.Cleanup(func() {
		db.Exec("DELETE FROM messages")
		db.Exec("DELETE FROM chats")
		db.Exec("DELETE FROM ai_usages")
		db.Exec("DELETE FROM wa_accounts")
	})
	return db
}

func TestResolveOrCreate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	p := chat.Participant{Number: "15550001111", Name: "Alice"}

	first, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", p)
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, chat.ChatTypeSingle, first.Type)
	assert.Equal(t, "Alice", first.ChatName)

	second, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", p)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveOrCreate_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	p := chat.Participant{Number: "15550002222", Name: "Bob"}

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", p)
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, ids[0], ids[i], "concurrent resolves must return the same chat")
	}
}

func TestResolveOrCreate_DistinctIdentities(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	a, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", chat.Participant{Number: "15550001111"})
	require.NoError(t, err)
	b, err := repo.ResolveOrCreate(ctx, "user-1", "acc-2", chat.Participant{Number: "15550001111"})
	require.NoError(t, err)
	c, err := repo.ResolveOrCreate(ctx, "user-2", "acc-1", chat.Participant{Number: "15550001111"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestCreateBroadcast_DoesNotCollide(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	participants := []chat.Participant{
		{Number: "15550001111"},
		{Number: "15550002222"},
	}

	b1, err := repo.CreateBroadcast(ctx, "user-1", "acc-1", "Campaign A", participants)
	require.NoError(t, err)
	b2, err := repo.CreateBroadcast(ctx, "user-1", "acc-1", "Campaign B", participants)
	require.NoError(t, err)

	assert.NotEqual(t, b1.ID, b2.ID)
	assert.Equal(t, chat.ChatTypeBroadcast, b1.Type)

	got, err := repo.GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 2)
	assert.Equal(t, "Campaign A", got.ChatName)
}

func TestTouchAndMarkRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	c, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", chat.Participant{Number: "15550003333"})
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, repo.Touch(ctx, c.ID, "hello there", at, true))
	require.NoError(t, repo.Touch(ctx, c.ID, "second", at.Add(time.Second), true))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.LastMessage)
	assert.Equal(t, 2, got.UnreadCount)

	require.NoError(t, repo.MarkRead(ctx, c.ID))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount)
}

func TestRecentMessages_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	c, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", chat.Participant{Number: "15550004444"})
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &chat.Message{
			UserID:    "user-1",
			ChatID:    c.ID,
			To:        "15550004444",
			From:      "100000000000001",
			Body:      string(rune('a' + i)),
			Status:    chat.StatusSent,
			Type:      chat.MessageTypeText,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.AppendMessage(ctx, msg))
	}

	msgs, err := repo.RecentMessages(ctx, c.ID, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "e", msgs[0].Body)
	assert.Equal(t, "d", msgs[1].Body)
	assert.Equal(t, "c", msgs[2].Body)
}

func TestUpdateStatusByWaMessageID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	c, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", chat.Participant{Number: "15550005555"})
	require.NoError(t, err)

	msg := &chat.Message{
		UserID:      "user-1",
		ChatID:      c.ID,
		To:          "15550005555",
		From:        "100000000000001",
		Body:        "hi",
		WaMessageID: "wamid.STATUS1",
		Status:      chat.StatusSent,
		Type:        chat.MessageTypeText,
	}
	require.NoError(t, repo.AppendMessage(ctx, msg))

	fetch := func() chat.Message {
		msgs, err := repo.RecentMessages(ctx, c.ID, 1)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		return msgs[0]
	}

	updated, err := repo.UpdateStatusByWaMessageID(ctx, "wamid.STATUS1", chat.StatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, chat.StatusDelivered, updated.Status)
	assert.Equal(t, chat.StatusDelivered, fetch().Status)

	// A late "delivered" after "read" must not move the status backwards.
	_, err = repo.UpdateStatusByWaMessageID(ctx, "wamid.STATUS1", chat.StatusRead)
	require.NoError(t, err)
	ignored, err := repo.UpdateStatusByWaMessageID(ctx, "wamid.STATUS1", chat.StatusDelivered)
	require.NoError(t, err)
	assert.Nil(t, ignored)
	assert.Equal(t, chat.StatusRead, fetch().Status)

	// Failed is assigned only at creation, never via callback.
	ignored, err = repo.UpdateStatusByWaMessageID(ctx, "wamid.STATUS1", chat.StatusFailed)
	require.NoError(t, err)
	assert.Nil(t, ignored)
	assert.Equal(t, chat.StatusRead, fetch().Status)

	// Unknown ids are ignored.
	ignored, err = repo.UpdateStatusByWaMessageID(ctx, "wamid.UNKNOWN", chat.StatusRead)
	require.NoError(t, err)
	assert.Nil(t, ignored)
}

func TestFailedMessageIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatGormRepository(db)
	ctx := context.Background()

	c, err := repo.ResolveOrCreate(ctx, "user-1", "acc-1", chat.Participant{Number: "15550006666"})
	require.NoError(t, err)

	msg := &chat.Message{
		UserID:      "user-1",
		ChatID:      c.ID,
		To:          "15550006666",
		From:        "100000000000001",
		Body:        "doomed",
		WaMessageID: "wamid.FAILED1",
		Status:      chat.StatusFailed,
		Type:        chat.MessageTypeText,
		Error:       "provider returned status 400",
	}
	require.NoError(t, repo.AppendMessage(ctx, msg))

	ignored, err := repo.UpdateStatusByWaMessageID(ctx, "wamid.FAILED1", chat.StatusDelivered)
	require.NoError(t, err)
	assert.Nil(t, ignored)

	msgs, err := repo.RecentMessages(ctx, c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusFailed, msgs[0].Status)
}
