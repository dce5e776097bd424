package model

import (
	"time"
)

// AccountModel mirrors the 'accounts' table. PostgreSQL assigns ids from a bigserial sequence.
type AccountModel struct {
	ID                int64   `gorm:"primaryKey;autoIncrement"`
	DisplayName       string  `gorm:"type:text;not null"`
	Email             string  `gorm:"type:varchar(255);uniqueIndex:idx_accounts_email;not null"`
	FavoriteTeam      *string `gorm:"type:text"`
	PasswordHash      string  `gorm:"type:varchar(255);not null"`
	PasswordChangedAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
