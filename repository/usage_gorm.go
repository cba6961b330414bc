package repository

import (
	"context"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type aiUsageModel struct {
	ID           string    `gorm:"primaryKey;column:id"`
	UserID       string    `gorm:"column:user_id;not null;index"`
	Model        string    `gorm:"column:model;not null"`
	InputTokens  int       `gorm:"column:input_tokens;default:0"`
	OutputTokens int       `gorm:"column:output_tokens;default:0"`
	TotalTokens  int       `gorm:"column:total_tokens;default:0"`
	InputCost    float64   `gorm:"column:input_cost;default:0"`
	OutputCost   float64   `gorm:"column:output_cost;default:0"`
	TotalCost    float64   `gorm:"column:total_cost;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index"`
}

func (aiUsageModel) TableName() string { return "ai_usages" }

// UsageGormRepository persists model-invocation billing records. Rows are
// immutable once written.
type UsageGormRepository struct {
	db *gorm.DB
}

func NewUsageGormRepository(db *gorm.DB) *UsageGormRepository {
	return &UsageGormRepository{db: db}
}

var _ chat.IUsageStore = (*UsageGormRepository)(nil)

func (r *UsageGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&aiUsageModel{})
}

func (r *UsageGormRepository) CreateUsage(ctx context.Context, usage *chat.AiUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.NewString()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}
	model := toUsageModel(*usage)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *UsageGormRepository) ListUsage(ctx context.Context, userID string, limit, offset int) ([]chat.AiUsage, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []aiUsageModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]chat.AiUsage, len(models))
	for i, m := range models {
		res[i] = fromUsageModel(m)
	}
	return res, nil
}

func toUsageModel(u chat.AiUsage) aiUsageModel {
	return aiUsageModel{
		ID:           u.ID,
		UserID:       u.UserID,
		Model:        u.Model,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
		InputCost:    u.InputCost,
		OutputCost:   u.OutputCost,
		TotalCost:    u.TotalCost,
		CreatedAt:    u.CreatedAt,
	}
}

func fromUsageModel(m aiUsageModel) chat.AiUsage {
	return chat.AiUsage{
		ID:           m.ID,
		UserID:       m.UserID,
		Model:        m.Model,
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		TotalTokens:  m.TotalTokens,
		InputCost:    m.InputCost,
		OutputCost:   m.OutputCost,
		TotalCost:    m.TotalCost,
		CreatedAt:    m.CreatedAt,
	}
}
