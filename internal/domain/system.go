package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

// SiteSetting key/value site configuration
type SiteSetting struct {
	ID          int64     `json:"id,string"`
	Key         string    `gorm:"size:128;uniqueIndex" json:"key"`
	Value       string    `json:"value"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName Specify table name
func (SiteSetting) TableName() string {
	return "site_settings"
}

func (s *SiteSetting) BeforeCreate(*gorm.DB) error {
	if s.ID == 0 {
		s.ID = common.UUIDint64()
	}
	return nil
}

// Notification message shown to a user
type Notification struct {
	ID        int64     `json:"id,string"`
	UserID    int64     `gorm:"index" json:"user_id,string"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `gorm:"size:32" json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == 0 {
		n.ID = common.UUIDint64()
	}
	return nil
}

// ShopScheduler scheduler task data model for managing shop maintenance jobs
type ShopScheduler struct {
	ID          int64     `json:"id,string" form:"id"`          // Primary key ID
	Name        string    `json:"name" form:"name"`             // Scheduler name
	TaskType    string    `json:"task_type" form:"task_type"`   // expire_promotions, low_stock_alert, cleanup_carts
	Interval    int       `json:"interval" form:"interval"`     // Interval in seconds
	Status      string    `json:"status" form:"status"`         // enabled/disabled
	LastRunAt   time.Time `json:"last_run_at"`                  // Last execution time
	NextRunAt   time.Time `json:"next_run_at"`                  // Next scheduled execution time
	LastResult  string    `json:"last_result" form:"last_result"`
	LastMessage string    `json:"last_message" form:"last_message"`
	Config      string    `json:"config" form:"config"` // JSON config for task-specific settings
	Remark      string    `json:"remark" form:"remark"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (ShopScheduler) TableName() string {
	return "shop_scheduler"
}

func (s *ShopScheduler) BeforeCreate(*gorm.DB) error {
	if s.ID == 0 {
		s.ID = common.UUIDint64()
	}
	return nil
}

// SysOprLog back-office audit trail
type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `json:"opr_name"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}

func (l *SysOprLog) BeforeCreate(*gorm.DB) error {
	if l.ID == 0 {
		l.ID = common.UUIDint64()
	}
	return nil
}
