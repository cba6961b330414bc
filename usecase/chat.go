package usecase

import (
	"context"

	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
)

// IChatUsecase is the operator-facing read/manage surface over chats.
type IChatUsecase interface {
	ListChats(ctx context.Context, userID, waAccountID string, limit, offset int) ([]chat.Chat, error)
	GetChat(ctx context.Context, userID, chatID string) (*chat.Chat, error)
	Messages(ctx context.Context, userID, chatID string, limit int) ([]chat.Message, error)
	MarkRead(ctx context.Context, userID, chatID string) error
	SetFavourite(ctx context.Context, userID, chatID string, favourite bool) error
	CreateBroadcast(ctx context.Context, userID, waAccountID, chatName string, numbers []string) (*chat.Chat, error)
	ListUsage(ctx context.Context, userID string, limit, offset int) ([]chat.AiUsage, error)
}

type serviceChat struct {
	chatStore  chat.IChatStore
	usageStore chat.IUsageStore
}

func NewChatService(chatStore chat.IChatStore, usageStore chat.IUsageStore) IChatUsecase {
	return &serviceChat{
		chatStore:  chatStore,
		usageStore: usageStore,
	}
}

func (service serviceChat) ListChats(ctx context.Context, userID, waAccountID string, limit, offset int) ([]chat.Chat, error) {
	return service.chatStore.List(ctx, userID, waAccountID, limit, offset)
}

// GetChat loads one chat, refusing access across user boundaries.
func (service serviceChat) GetChat(ctx context.Context, userID, chatID string) (*chat.Chat, error) {
	c, err := service.chatStore.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, pkgError.NotFoundError("chat not found")
	}
	return c, nil
}

func (service serviceChat) Messages(ctx context.Context, userID, chatID string, limit int) ([]chat.Message, error) {
	if _, err := service.GetChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return service.chatStore.RecentMessages(ctx, chatID, limit)
}

func (service serviceChat) MarkRead(ctx context.Context, userID, chatID string) error {
	if _, err := service.GetChat(ctx, userID, chatID); err != nil {
		return err
	}
	return service.chatStore.MarkRead(ctx, chatID)
}

func (service serviceChat) SetFavourite(ctx context.Context, userID, chatID string, favourite bool) error {
	if _, err := service.GetChat(ctx, userID, chatID); err != nil {
		return err
	}
	return service.chatStore.SetFavourite(ctx, chatID, favourite)
}

func (service serviceChat) CreateBroadcast(ctx context.Context, userID, waAccountID, chatName string, numbers []string) (*chat.Chat, error) {
	if len(numbers) == 0 {
		return nil, pkgError.ValidationError("broadcast needs at least one recipient")
	}
	participants := make([]chat.Participant, 0, len(numbers))
	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		participants = append(participants, chat.Participant{Number: n})
	}
	if len(participants) == 0 {
		return nil, pkgError.ValidationError("broadcast needs at least one recipient")
	}
	return service.chatStore.CreateBroadcast(ctx, userID, waAccountID, chatName, participants)
}

func (service serviceChat) ListUsage(ctx context.Context, userID string, limit, offset int) ([]chat.AiUsage, error) {
	return service.usageStore.ListUsage(ctx, userID, limit, offset)
}
