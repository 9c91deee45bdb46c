package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

// CartItem one product line in a user's cart. A user holds at most one row per product.
type CartItem struct {
	ID        int64     `json:"id,string"`
	UserID    int64     `gorm:"index" json:"user_id,string"`
	ProductID int64     `gorm:"index" json:"product_id,string"`
	Quantity  int       `json:"quantity"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == 0 {
		i.ID = common.UUIDint64()
	}
	return nil
}

// WishlistItem a product saved for later by a user
type WishlistItem struct {
	ID        int64     `json:"id,string"`
	UserID    int64     `gorm:"index" json:"user_id,string"`
	ProductID int64     `gorm:"index" json:"product_id,string"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (WishlistItem) TableName() string {
	return "wishlists"
}

func (i *WishlistItem) BeforeCreate(*gorm.DB) error {
	if i.ID == 0 {
		i.ID = common.UUIDint64()
	}
	return nil
}
