package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

// Product catalog item, linked to its category by name
type Product struct {
	ID          int64     `json:"id,string" csv:"id"`
	Name        string    `gorm:"index" json:"name" csv:"name"`
	Category    string    `gorm:"index;size:200" json:"category" csv:"category"`
	Description *string   `json:"description" csv:"description"`
	Price       float64   `json:"price" csv:"price"`
	Stock       int       `json:"stock" csv:"stock"`
	ImageURL    *string   `gorm:"size:1024" json:"image_url" csv:"image_url"`
	IsFeatured  bool      `json:"is_featured" csv:"is_featured"`
	SoldCount   int       `json:"sold_count" csv:"sold_count"`
	ViewCount   int       `json:"view_count" csv:"view_count"`
	CreatedAt   time.Time `json:"created_at" csv:"-"`
	UpdatedAt   time.Time `json:"updated_at" csv:"-"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == 0 {
		p.ID = common.UUIDint64()
	}
	return nil
}

// ProductCategory named category used by products.category
type ProductCategory struct {
	ID          int64     `json:"id,string"`
	Name        string    `gorm:"size:200;uniqueIndex" json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}

func (c *ProductCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == 0 {
		c.ID = common.UUIDint64()
	}
	return nil
}
