package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlaidItem is a linked institution login. The access token is stored sealed.
type PlaidItem struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID                string    `gorm:"column:item_id;not null;uniqueIndex:plaid_items_item_id_key"`
	ClientUserID          string    `gorm:"column:client_user_id;not null;index"`
	InstitutionID         *string   `gorm:"column:institution_id"`
	AccessTokenCiphertext string    `gorm:"column:access_token_ciphertext;not null"`
	TransactionsCursor    *string   `gorm:"column:transactions_cursor"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PlaidItem) TableName() string {
	return "plaid_items"
}

func (i *PlaidItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
