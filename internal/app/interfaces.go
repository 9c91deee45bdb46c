package app

import (
	"github.com/boutiqueapp/boutique/config"
	"github.com/boutiqueapp/boutique/internal/auth"
	"github.com/boutiqueapp/boutique/internal/mailer"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides site settings access, keys are "category.name"
type SettingsProvider interface {
	GetSettingsStringValue(category, name string) string
	GetSettingsInt64Value(category, name string) int64
	GetSettingsBoolValue(category, name string) bool
	GetSettingsFloatValue(category, name string) float64
	ShopSettings() (ShopSettings, error)
	SiteInfo() map[string]string
	ReloadSettings() error
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ConfigManagerProvider provides configuration manager access
type ConfigManagerProvider interface {
	ConfigMgr() *ConfigManager
}

// HubProvider provides the realtime change feed
type HubProvider interface {
	Hub() *realtime.Hub
}

// MailerProvider provides outgoing mail
type MailerProvider interface {
	Mailer() *mailer.Mailer
}

// AuthProvider provides token issuing and the account service
type AuthProvider interface {
	Tokens() *auth.TokenManager
	Auth() *auth.Service
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	ConfigManagerProvider
	HubProvider
	MailerProvider
	AuthProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// RunSchedulerNow triggers a scheduler execution immediately by ID
	RunSchedulerNow(id int64) error
}
