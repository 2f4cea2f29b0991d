package product

import (
	"context"
	"time"
)

// Product 商品模型。
// 主键使用字符串（沿用文档库时代的外部 ID），"manual_" 前缀表示
// 人工补录的虚拟商品行，不参与库存管理。
type Product struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"size:512"`
	// Price 单位为分
	Price int64 `gorm:"not null"`
	// Stock 商品总库存；有规格商品时为各规格库存之和
	Stock    int64  `gorm:"not null"`
	Category string `gorm:"size:32;index"`
	Status   int    `gorm:"index"` // 0:下线 1:正常

	Variants []Variant `gorm:"foreignKey:ProductID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Variant 商品规格（尺码/颜色等），库存独立计数
type Variant struct {
	ID        string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"index;size:64;not null"`
	Name      string `gorm:"size:64;not null"`
	Stock     int64  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, productID, variantID string) (*Variant, error)
	ListAll(ctx context.Context) ([]*Product, error)
	// ListByCategory 只返回在线商品；category 为空或 "all" 时不过滤分类
	ListByCategory(ctx context.Context, category string) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
