package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

// NewsletterSubscriber e-mail registered for the newsletter
type NewsletterSubscriber struct {
	ID        int64     `json:"id,string" csv:"id"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email" csv:"email"`
	Active    bool      `json:"active" csv:"active"`
	Token     string    `gorm:"size:64;index" json:"-" csv:"-"`
	CreatedAt time.Time `json:"created_at" csv:"created_at"`
}

func (NewsletterSubscriber) TableName() string {
	return "newsletter_subscribers"
}

func (s *NewsletterSubscriber) BeforeCreate(*gorm.DB) error {
	if s.ID == 0 {
		s.ID = common.UUIDint64()
	}
	if s.Token == "" {
		s.Token = common.UUID()
	}
	return nil
}
