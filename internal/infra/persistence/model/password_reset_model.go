package model

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetModel mirrors the 'password_resets' table.
// Only the SHA-256 digest of the emailed token is stored.
type PasswordResetModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID int64     `gorm:"not null;index:idx_password_resets_account_id"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex:idx_password_resets_token_hash;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time

	Account *AccountModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (PasswordResetModel) TableName() string {
	return "password_resets"
}
