package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

// Review a rating (1..5) left by a user on a product
type Review struct {
	ID        int64         `json:"id,string"`
	ProductID common.NullID `gorm:"index" json:"product_id"`
	UserID    common.NullID `gorm:"index" json:"user_id"`
	Rating    int           `json:"rating"`
	Comment   *string       `json:"comment"`
	Product   *Product      `gorm:"foreignKey:ProductID" json:"products,omitempty"`
	Profile   *Profile      `gorm:"foreignKey:UserID" json:"profiles,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == 0 {
		r.ID = common.UUIDint64()
	}
	return nil
}
