// Package config loads the boutique YAML configuration and applies
// BOUTIQUE_* environment overrides on top of it.
package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig system config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	NodeID   int64  `yaml:"node_id"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server config
type WebConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Secret        string        `yaml:"secret"`
	SessionSecret string        `yaml:"session_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	CorsOrigins   []string      `yaml:"cors_origins"`
}

// LogConfig logger config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// MailConfig SMTP config used for newsletters and stock alerts
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system"`
	Web      WebConfig  `yaml:"web"`
	Database DBConfig   `yaml:"database"`
	Logger   LogConfig  `yaml:"logger"`
	Mail     MailConfig `yaml:"mail"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetBackupDir() string {
	return path.Join(c.System.Workdir, "backup")
}

// InitDirs creates the working directories.
func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetBackupDir(), 0o755)
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToInt(v)
	}
}

func setEnvInt64Value(name string, val *int64) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToInt64(v)
	}
}

func setEnvDurationValue(name string, val *time.Duration) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToDuration(v)
	}
}

// DefaultAppConfig is used when no configuration file exists.
var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "boutique",
		NodeID:   1,
		Location: "Europe/Paris",
		Workdir:  "/var/boutique",
		Debug:    true,
	},
	Web: WebConfig{
		Host:          "0.0.0.0",
		Port:          1980,
		Secret:        "9b6de5cc-0731-4bf1-boutique-5fd2b3a9c7e1",
		SessionSecret: "c2a1f3e4-boutique-session-8d7c6b5a",
		TokenTTL:      24 * time.Hour,
		CorsOrigins:   []string{"http://localhost:5173"},
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "boutique",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/boutique/logs/boutique.log",
	},
	Mail: MailConfig{
		Enabled: false,
		Host:    "localhost",
		Port:    25,
		From:    "boutique@localhost",
	},
}

// LoadConfig reads cfile (when it exists) and applies environment overrides.
func LoadConfig(cfile string) *AppConfig {
	if cfile == "" {
		cfile = "boutique.yml"
	}
	cfg := *DefaultAppConfig
	cfg.Web.CorsOrigins = append([]string(nil), DefaultAppConfig.Web.CorsOrigins...)
	if _, err := os.Stat(cfile); err == nil {
		data, err := os.ReadFile(cfile)
		if err != nil {
			panic(err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(err)
		}
	}

	setEnvValue("BOUTIQUE_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("BOUTIQUE_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvInt64Value("BOUTIQUE_SYSTEM_NODE_ID", &cfg.System.NodeID)
	setEnvBoolValue("BOUTIQUE_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("BOUTIQUE_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("BOUTIQUE_WEB_PORT", &cfg.Web.Port)
	setEnvValue("BOUTIQUE_WEB_SECRET", &cfg.Web.Secret)
	setEnvValue("BOUTIQUE_WEB_SESSION_SECRET", &cfg.Web.SessionSecret)
	setEnvDurationValue("BOUTIQUE_WEB_TOKEN_TTL", &cfg.Web.TokenTTL)
	if v := os.Getenv("BOUTIQUE_WEB_CORS_ORIGINS"); v != "" {
		cfg.Web.CorsOrigins = strings.Split(v, ",")
	}

	setEnvValue("BOUTIQUE_DB_TYPE", &cfg.Database.Type)
	setEnvValue("BOUTIQUE_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("BOUTIQUE_DB_PORT", &cfg.Database.Port)
	setEnvValue("BOUTIQUE_DB_NAME", &cfg.Database.Name)
	setEnvValue("BOUTIQUE_DB_USER", &cfg.Database.User)
	setEnvValue("BOUTIQUE_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("BOUTIQUE_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("BOUTIQUE_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("BOUTIQUE_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvBoolValue("BOUTIQUE_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("BOUTIQUE_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("BOUTIQUE_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("BOUTIQUE_MAIL_USER", &cfg.Mail.User)
	setEnvValue("BOUTIQUE_MAIL_PASSWORD", &cfg.Mail.Password)
	setEnvValue("BOUTIQUE_MAIL_FROM", &cfg.Mail.From)

	if cfg.Web.TokenTTL <= 0 {
		cfg.Web.TokenTTL = DefaultAppConfig.Web.TokenTTL
	}
	return &cfg
}
