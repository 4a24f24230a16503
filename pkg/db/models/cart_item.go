package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem persists one (product, quantity) line belonging to a user's cart.
// The product name is captured at add-time. There is deliberately no unique
// constraint on (user_id, product_id): the unconditional add path may create
// duplicate rows, and reconciliation restores per-user uniqueness.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
