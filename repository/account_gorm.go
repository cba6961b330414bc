package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/account"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type waAccountModel struct {
	ID                      string         `gorm:"primaryKey;column:id"`
	UserID                  string         `gorm:"column:user_id;not null;index"`
	PhoneNumberID           string         `gorm:"column:phone_number_id;not null;index"`
	WabaID                  sql.NullString `gorm:"column:waba_id"`
	BusinessID              sql.NullString `gorm:"column:business_id"`
	PermanentToken          string         `gorm:"column:permanent_token;not null"`
	IsPhoneNumberRegistered bool           `gorm:"column:is_phone_number_registered;default:false"`
	IsAppSubscribed         bool           `gorm:"column:is_app_subscribed;default:false"`
	IsDefault               bool           `gorm:"column:is_default;default:false;index"`
	AiAgentActive           bool           `gorm:"column:ai_agent_active;default:false"`
	AiAgentWebhookURL       sql.NullString `gorm:"column:ai_agent_webhook_url"`
	AiAgentPrompt           sql.NullString `gorm:"column:ai_agent_prompt;type:text"`
	AiChatActive            bool           `gorm:"column:ai_chat_active;default:false"`
	AiChatPrompt            sql.NullString `gorm:"column:ai_chat_prompt;type:text"`
	AiChatModel             sql.NullString `gorm:"column:ai_chat_model"`
	CreatedAt               time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt               time.Time      `gorm:"column:updated_at;not null"`
}

func (waAccountModel) TableName() string { return "wa_accounts" }

// AccountGormRepository persists connected WhatsApp Business accounts. The AI
// configuration is stored as the legacy dual-flag columns and folded into the
// tagged AIMode variant on read, so precedence lives in exactly one place.
type AccountGormRepository struct {
	db *gorm.DB
}

func NewAccountGormRepository(db *gorm.DB) *AccountGormRepository {
	return &AccountGormRepository{db: db}
}

var _ account.IAccountRepository = (*AccountGormRepository)(nil)

func (r *AccountGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&waAccountModel{})
}

func (r *AccountGormRepository) GetByID(ctx context.Context, id string) (*account.WaAccount, error) {
	var m waAccountModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgError.NotFoundError("account not found")
		}
		return nil, err
	}
	acc := fromAccountModel(m)
	return &acc, nil
}

func (r *AccountGormRepository) GetDefaultByPhoneNumberID(ctx context.Context, phoneNumberID string) (*account.WaAccount, error) {
	var m waAccountModel
	err := r.db.WithContext(ctx).
		Where("phone_number_id = ? AND is_default = ?", phoneNumberID, true).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgError.NotFoundError("no default account for phone number")
		}
		return nil, err
	}
	acc := fromAccountModel(m)
	return &acc, nil
}

func (r *AccountGormRepository) Save(ctx context.Context, acc *account.WaAccount) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
		acc.CreatedAt = time.Now().UTC()
	}
	acc.UpdatedAt = time.Now().UTC()
	model := toAccountModel(*acc)
	return r.db.WithContext(ctx).Save(&model).Error
}

func toAccountModel(acc account.WaAccount) waAccountModel {
	m := waAccountModel{
		ID:                      acc.ID,
		UserID:                  acc.UserID,
		PhoneNumberID:           acc.PhoneNumberID,
		WabaID:                  sql.NullString{String: acc.WabaID, Valid: acc.WabaID != ""},
		BusinessID:              sql.NullString{String: acc.BusinessID, Valid: acc.BusinessID != ""},
		PermanentToken:          acc.PermanentToken,
		IsPhoneNumberRegistered: acc.IsPhoneNumberRegistered,
		IsAppSubscribed:         acc.IsAppSubscribed,
		IsDefault:               acc.Default,
		CreatedAt:               acc.CreatedAt,
		UpdatedAt:               acc.UpdatedAt,
	}
	switch mode := acc.AI.(type) {
	case account.AgentWebhook:
		m.AiAgentActive = true
		m.AiAgentWebhookURL = sql.NullString{String: mode.URL, Valid: mode.URL != ""}
		m.AiAgentPrompt = sql.NullString{String: mode.Prompt, Valid: mode.Prompt != ""}
	case account.DirectChat:
		m.AiChatActive = true
		m.AiChatPrompt = sql.NullString{String: mode.Prompt, Valid: mode.Prompt != ""}
		m.AiChatModel = sql.NullString{String: mode.Model, Valid: mode.Model != ""}
	}
	return m
}

func fromAccountModel(m waAccountModel) account.WaAccount {
	return account.WaAccount{
		ID:                      m.ID,
		UserID:                  m.UserID,
		PhoneNumberID:           m.PhoneNumberID,
		WabaID:                  nullStringValue(m.WabaID),
		BusinessID:              nullStringValue(m.BusinessID),
		PermanentToken:          m.PermanentToken,
		IsPhoneNumberRegistered: m.IsPhoneNumberRegistered,
		IsAppSubscribed:         m.IsAppSubscribed,
		Default:                 m.IsDefault,
		AI: account.ModeFromFlags(
			m.AiAgentActive, nullStringValue(m.AiAgentWebhookURL), nullStringValue(m.AiAgentPrompt),
			m.AiChatActive, nullStringValue(m.AiChatPrompt), nullStringValue(m.AiChatModel),
		),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
