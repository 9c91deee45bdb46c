package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/boutiqueapp/boutique/config"
	"github.com/boutiqueapp/boutique/internal/auth"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/mailer"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/pkg/common"
	"github.com/boutiqueapp/boutique/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	configManager *ConfigManager
	hub           *realtime.Hub
	mailer        *mailer.Mailer
	revoked       auth.RevocationStore
	tokens        *auth.TokenManager
	authService   *auth.Service
	stopSched     context.CancelFunc
}

// Ensure Application implements all interfaces
var (
	_ DBProvider            = (*Application)(nil)
	_ ConfigProvider        = (*Application)(nil)
	_ SettingsProvider      = (*Application)(nil)
	_ SchedulerProvider     = (*Application)(nil)
	_ ConfigManagerProvider = (*Application)(nil)
	_ HubProvider           = (*Application)(nil)
	_ MailerProvider        = (*Application)(nil)
	_ AuthProvider          = (*Application)(nil)
	_ AppContext            = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg.Logger)

	if err := common.SetNodeID(cfg.System.NodeID); err != nil {
		zap.S().Warn("invalid snowflake node id, using default:", err)
	}

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.Setup(); err != nil {
		zap.L().Fatal("application setup failed", zap.Error(err))
	}

	a.initJob()
}

func initLogger(cfg config.LogConfig) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	var err error
	if cfg.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// Setup migrates the schema, seeds defaults and wires the in-process
// services on the current database handle.
func (a *Application) Setup() error {
	if a.gormDB == nil {
		return errors.New("database not initialized")
	}
	if err := a.MigrateDB(false); err != nil {
		return errors.Wrap(err, "migrate database")
	}
	a.SeedDefaults()

	a.configManager = NewConfigManager(a.gormDB)
	a.hub = realtime.NewHub()
	a.mailer = mailer.New(a.appConfig.Mail)

	store, err := auth.OpenBoltStore(filepath.Join(a.appConfig.GetDataDir(), "revoked.db"))
	if err != nil {
		return err
	}
	a.revoked = store
	a.tokens = auth.NewTokenManager(a.appConfig.Web.Secret, a.appConfig.Web.TokenTTL, store)
	a.authService = auth.NewService(a.gormDB, a.tokens, a.hub)
	return nil
}

// SeedDefaults creates the records a fresh store needs.
func (a *Application) SeedDefaults() {
	a.checkSuper()
	a.checkSettings()
	a.checkCategories()
	a.checkShippingRates()
	a.checkSchedulers()
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// ConfigMgr returns the configuration manager
func (a *Application) ConfigMgr() *ConfigManager {
	return a.configManager
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Hub() *realtime.Hub {
	return a.hub
}

func (a *Application) Mailer() *mailer.Mailer {
	return a.mailer
}

func (a *Application) Tokens() *auth.TokenManager {
	return a.tokens
}

func (a *Application) Auth() *auth.Service {
	return a.authService
}

// GetSettingsStringValue retrieves a string setting
func (a *Application) GetSettingsStringValue(category, name string) string {
	return a.configManager.GetString(category, name)
}

// GetSettingsInt64Value retrieves an int64 setting
func (a *Application) GetSettingsInt64Value(category, name string) int64 {
	return a.configManager.GetInt64(category, name)
}

// GetSettingsBoolValue retrieves a boolean setting
func (a *Application) GetSettingsBoolValue(category, name string) bool {
	return a.configManager.GetBool(category, name)
}

func (a *Application) GetSettingsFloatValue(category, name string) float64 {
	return a.configManager.GetFloat(category, name)
}

// ReloadSettings refreshes the settings cache after a write
func (a *Application) ReloadSettings() error {
	return a.configManager.Reload()
}

// StartBackgroundJobs starts the DB scheduler loop until ctx is done or Release is called
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.stopSched = cancel
	a.StartSchedulerService(ctx)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.stopSched != nil {
		a.stopSched()
	}
	if a.revoked != nil {
		_ = a.revoked.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
