package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// OrderStatuses valid values of Order.Status
var OrderStatuses = []string{OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled}

// Order a checked-out cart
type Order struct {
	ID             int64         `json:"id,string"`
	UserID         common.NullID `gorm:"index" json:"user_id"`
	Status         string        `gorm:"size:32;index" json:"status"`
	Subtotal       float64       `json:"subtotal"`
	DiscountAmount float64       `json:"discount_amount"`
	ShippingAmount float64       `json:"shipping_amount"`
	TotalAmount    float64       `json:"total_amount"`
	ShippingRateID common.NullID `json:"shipping_rate_id"`
	PromotionID    common.NullID `json:"promotion_id"`
	Profile        *Profile      `gorm:"foreignKey:UserID" json:"profiles,omitempty"`
	Items          []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == 0 {
		o.ID = common.UUIDint64()
	}
	return nil
}

// OrderItem snapshot of a cart line at checkout time
type OrderItem struct {
	ID          int64   `json:"id,string"`
	OrderID     int64   `gorm:"index" json:"order_id,string"`
	ProductID   int64   `json:"product_id,string"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == 0 {
		i.ID = common.UUIDint64()
	}
	return nil
}
