package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

// ShippingRate delivery option offered at checkout
type ShippingRate struct {
	ID            int64     `json:"id,string"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	Price         float64   `json:"price"`
	EstimatedDays int       `json:"estimated_days"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ShippingRate) TableName() string {
	return "shipping_rates"
}

func (r *ShippingRate) BeforeCreate(*gorm.DB) error {
	if r.ID == 0 {
		r.ID = common.UUIDint64()
	}
	return nil
}
