package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

const (
	PromotionPercentage   = "percentage"
	PromotionFixed        = "fixed"
	PromotionFreeShipping = "free_shipping"
)

// Promotion discount campaign, optionally restricted to one product or a code
type Promotion struct {
	ID                 int64         `json:"id,string"`
	Name               string        `json:"name"`
	Description        *string       `json:"description"`
	DiscountPercentage *int          `json:"discount_percentage"`
	PromotionType      string        `gorm:"size:32" json:"promotion_type"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `gorm:"index" json:"end_date"`
	Code               *string       `gorm:"size:64;uniqueIndex" json:"code"`
	MinimumPurchase    float64       `json:"minimum_purchase"`
	UsageLimit         *int          `json:"usage_limit"`
	TimesUsed          int           `json:"times_used"`
	Active             bool          `gorm:"index" json:"active"`
	ProductID          common.NullID `json:"product_id"`
	Product            *Product      `gorm:"foreignKey:ProductID" json:"products,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

func (Promotion) TableName() string {
	return "promotions"
}

func (p *Promotion) BeforeCreate(*gorm.DB) error {
	if p.ID == 0 {
		p.ID = common.UUIDint64()
	}
	return nil
}
