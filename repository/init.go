package repository

import (
	"context"

	"gorm.io/gorm"
)

// InitSchema migrates all tables. Called once at startup before the server
// accepts traffic.
func InitSchema(ctx context.Context, db *gorm.DB) error {
	if err := NewChatGormRepository(db).Init(ctx); err != nil {
		return err
	}
	if err := NewUsageGormRepository(db).Init(ctx); err != nil {
		return err
	}
	return NewAccountGormRepository(db).Init(ctx)
}
