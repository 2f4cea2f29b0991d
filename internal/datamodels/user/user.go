package user

import (
	"context"
	"time"
)

// User 用户模型
type User struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:64;not null"`
	Email     string `gorm:"size:128"` // 下单时作为默认收件邮箱
	Password  string `gorm:"size:255;not null" json:"-"`
	Salt      string `gorm:"size:64" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 用户仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	ListAll(ctx context.Context) ([]*User, error)
}
