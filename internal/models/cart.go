package models

import "github.com/google/uuid"

// Cart is the single cart of a user.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// CartItem is one line of a cart. A product appears at most once per cart and
// quantity stays at or above one.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int       `json:"quantity"`
}
