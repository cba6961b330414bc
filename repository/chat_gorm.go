package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type chatModel struct {
	ID           string         `gorm:"primaryKey;column:id"`
	UserID       string         `gorm:"column:user_id;not null;index;uniqueIndex:idx_chat_identity"`
	WaAccountID  string         `gorm:"column:wa_account_id;not null;uniqueIndex:idx_chat_identity"`
	PeerNumber   string         `gorm:"column:peer_number;not null;uniqueIndex:idx_chat_identity"`
	Type         string         `gorm:"column:type;not null;default:'single'"`
	ChatName     sql.NullString `gorm:"column:chat_name"`
	Participants sql.NullString `gorm:"column:participants;type:text"` // JSON
	LastMessage  sql.NullString `gorm:"column:last_message"`
	LastMessageAt *time.Time    `gorm:"column:last_message_at;index"`
	IsFavourite  bool           `gorm:"column:is_favourite;default:false"`
	UnreadCount  int            `gorm:"column:unread_count;default:0"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
}

func (chatModel) TableName() string { return "chats" }

type messageModel struct {
	ID          string         `gorm:"primaryKey;column:id"`
	UserID      string         `gorm:"column:user_id;not null;index"`
	ChatID      string         `gorm:"column:chat_id;not null;index"`
	ToNumber    string         `gorm:"column:to_number;not null"`
	FromNumber  string         `gorm:"column:from_number;not null"`
	Body        sql.NullString `gorm:"column:body;type:text"`
	Template    sql.NullString `gorm:"column:template"`
	WaMessageID sql.NullString `gorm:"column:wa_message_id;index"`
	Status      string         `gorm:"column:status;not null"`
	Type        string         `gorm:"column:type;not null;default:'text'"`
	Tag         sql.NullString `gorm:"column:tag"`
	AiUsageID   sql.NullString `gorm:"column:ai_usage_id"`
	Error       sql.NullString `gorm:"column:error"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null;index"`
}

func (messageModel) TableName() string { return "messages" }

// --- Repository Implementation ---

// ChatGormRepository persists chats and their message ledger. Chat identity
// is (user_id, wa_account_id, peer_number); the unique index plus the keyed
// mutex make ResolveOrCreate race-free even across processes sharing the DB.
type ChatGormRepository struct {
	db *gorm.DB

	// resolveMu serializes in-process resolve-or-create per chat identity so
	// the common case never hits the unique-constraint retry path.
	resolveMu sync.Map
}

func NewChatGormRepository(db *gorm.DB) *ChatGormRepository {
	return &ChatGormRepository{db: db}
}

var _ chat.IChatStore = (*ChatGormRepository)(nil)

func (r *ChatGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&chatModel{},
		&messageModel{},
	)
}

// ResolveOrCreate returns the existing single chat with the participant, or
// creates it. Concurrent calls for the same identity return the same row.
func (r *ChatGormRepository) ResolveOrCreate(ctx context.Context, userID, waAccountID string, participant chat.Participant) (*chat.Chat, error) {
	identity := userID + "|" + waAccountID + "|" + participant.Number
	muAny, _ := r.resolveMu.LoadOrStore(identity, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	existing, err := r.findByIdentity(ctx, userID, waAccountID, participant.Number)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	c := chat.Chat{
		ID:           uuid.NewString(),
		UserID:       userID,
		WaAccountID:  waAccountID,
		Type:         chat.ChatTypeSingle,
		ChatName:     participant.Name,
		Participants: []chat.Participant{participant},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	model := toChatModel(c, participant.Number)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		// Another process won the race; the unique index rejected us.
		if isDuplicateErr(err) {
			return r.findByIdentity(ctx, userID, waAccountID, participant.Number)
		}
		return nil, err
	}
	return &c, nil
}

// CreateBroadcast creates a broadcast chat. Broadcast chats get a synthetic
// peer number so the identity index stays meaningful for single chats.
func (r *ChatGormRepository) CreateBroadcast(ctx context.Context, userID, waAccountID, chatName string, participants []chat.Participant) (*chat.Chat, error) {
	now := time.Now().UTC()
	c := chat.Chat{
		ID:           uuid.NewString(),
		UserID:       userID,
		WaAccountID:  waAccountID,
		Type:         chat.ChatTypeBroadcast,
		ChatName:     chatName,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	model := toChatModel(c, "broadcast:"+c.ID)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatGormRepository) GetByID(ctx context.Context, chatID string) (*chat.Chat, error) {
	var m chatModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", chatID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgError.NotFoundError("chat not found")
		}
		return nil, err
	}
	c := fromChatModel(m)
	return &c, nil
}

func (r *ChatGormRepository) List(ctx context.Context, userID, waAccountID string, limit, offset int) ([]chat.Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []chatModel
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if waAccountID != "" {
		q = q.Where("wa_account_id = ?", waAccountID)
	}
	if err := q.Order("last_message_at DESC NULLS LAST").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]chat.Chat, len(models))
	for i, m := range models {
		res[i] = fromChatModel(m)
	}
	return res, nil
}

// Touch updates the chat preview after a message lands. incrementUnread is
// set for inbound messages only.
func (r *ChatGormRepository) Touch(ctx context.Context, chatID, lastMessage string, at time.Time, incrementUnread bool) error {
	updates := map[string]interface{}{
		"last_message":    lastMessage,
		"last_message_at": at,
		"updated_at":      time.Now().UTC(),
	}
	if incrementUnread {
		updates["unread_count"] = gorm.Expr("unread_count + 1")
	}
	return r.db.WithContext(ctx).Model(&chatModel{}).Where("id = ?", chatID).Updates(updates).Error
}

func (r *ChatGormRepository) MarkRead(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Model(&chatModel{}).Where("id = ?", chatID).
		Update("unread_count", 0).Error
}

func (r *ChatGormRepository) SetFavourite(ctx context.Context, chatID string, favourite bool) error {
	return r.db.WithContext(ctx).Model(&chatModel{}).Where("id = ?", chatID).
		Update("is_favourite", favourite).Error
}

func (r *ChatGormRepository) AppendMessage(ctx context.Context, msg *chat.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	model := toMessageModel(*msg)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ChatGormRepository) RecentMessages(ctx context.Context, chatID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []messageModel
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).
		Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]chat.Message, len(models))
	for i, m := range models {
		res[i] = fromMessageModel(m)
	}
	return res, nil
}

// UpdateStatusByWaMessageID applies a provider status callback. Unknown ids
// and transitions the status machine forbids are ignored and return nil.
func (r *ChatGormRepository) UpdateStatusByWaMessageID(ctx context.Context, waMessageID string, status chat.MessageStatus) (*chat.Message, error) {
	var updated *chat.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m messageModel
		if err := tx.First(&m, "wa_message_id = ?", waMessageID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if !chat.MessageStatus(m.Status).CanTransition(status) {
			return nil
		}
		if err := tx.Model(&m).Update("status", string(status)).Error; err != nil {
			return err
		}
		m.Status = string(status)
		msg := fromMessageModel(m)
		updated = &msg
		return nil
	})
	return updated, err
}

// --- Mappers ---

func toChatModel(c chat.Chat, peerNumber string) chatModel {
	participants, _ := json.Marshal(c.Participants)
	return chatModel{
		ID:            c.ID,
		UserID:        c.UserID,
		WaAccountID:   c.WaAccountID,
		PeerNumber:    peerNumber,
		Type:          string(c.Type),
		ChatName:      sql.NullString{String: c.ChatName, Valid: c.ChatName != ""},
		Participants:  sql.NullString{String: string(participants), Valid: true},
		LastMessage:   sql.NullString{String: c.LastMessage, Valid: c.LastMessage != ""},
		LastMessageAt: c.LastMessageAt,
		IsFavourite:   c.IsFavourite,
		UnreadCount:   c.UnreadCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromChatModel(m chatModel) chat.Chat {
	var participants []chat.Participant
	participantsJSON := nullStringValue(m.Participants)
	if participantsJSON != "" {
		_ = json.Unmarshal([]byte(participantsJSON), &participants)
	}
	return chat.Chat{
		ID:            m.ID,
		UserID:        m.UserID,
		WaAccountID:   m.WaAccountID,
		Type:          chat.ChatType(m.Type),
		ChatName:      nullStringValue(m.ChatName),
		Participants:  participants,
		LastMessage:   nullStringValue(m.LastMessage),
		LastMessageAt: m.LastMessageAt,
		IsFavourite:   m.IsFavourite,
		UnreadCount:   m.UnreadCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toMessageModel(msg chat.Message) messageModel {
	return messageModel{
		ID:          msg.ID,
		UserID:      msg.UserID,
		ChatID:      msg.ChatID,
		ToNumber:    msg.To,
		FromNumber:  msg.From,
		Body:        sql.NullString{String: msg.Body, Valid: msg.Body != ""},
		Template:    sql.NullString{String: msg.Template, Valid: msg.Template != ""},
		WaMessageID: sql.NullString{String: msg.WaMessageID, Valid: msg.WaMessageID != ""},
		Status:      string(msg.Status),
		Type:        string(msg.Type),
		Tag:         sql.NullString{String: msg.Tag, Valid: msg.Tag != ""},
		AiUsageID:   sql.NullString{String: msg.AiUsageID, Valid: msg.AiUsageID != ""},
		Error:       sql.NullString{String: msg.Error, Valid: msg.Error != ""},
		CreatedAt:   msg.CreatedAt,
	}
}

func fromMessageModel(m messageModel) chat.Message {
	return chat.Message{
		ID:          m.ID,
		UserID:      m.UserID,
		ChatID:      m.ChatID,
		To:          m.ToNumber,
		From:        m.FromNumber,
		Body:        nullStringValue(m.Body),
		Template:    nullStringValue(m.Template),
		WaMessageID: nullStringValue(m.WaMessageID),
		Status:      chat.MessageStatus(m.Status),
		Type:        chat.MessageType(m.Type),
		Tag:         nullStringValue(m.Tag),
		AiUsageID:   nullStringValue(m.AiUsageID),
		Error:       nullStringValue(m.Error),
		CreatedAt:   m.CreatedAt,
	}
}

func (r *ChatGormRepository) findByIdentity(ctx context.Context, userID, waAccountID, peerNumber string) (*chat.Chat, error) {
	var m chatModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND wa_account_id = ? AND peer_number = ?", userID, waAccountID, peerNumber).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	c := fromChatModel(m)
	return &c, nil
}

func isDuplicateErr(err error) bool {
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// nullStringValue returns a trimmed string or empty if null to prevent legacy data panics.
func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
