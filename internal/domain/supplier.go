package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

// Supplier represents a product supplier contact
type Supplier struct {
	ID          int64     `json:"id,string"`
	Name        string    `gorm:"index" json:"name"`
	ContactName *string   `json:"contact_name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Address     *string   `json:"address"`
	Status      string    `gorm:"size:32" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns table name
func (Supplier) TableName() string {
	return "suppliers"
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	if s.ID == 0 {
		s.ID = common.UUIDint64()
	}
	return nil
}
