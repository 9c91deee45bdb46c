package app

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/google/btree"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

//go:embed settings_schemas.json
var configSchemasData []byte

// ConfigSchema describes one default site setting
type ConfigSchema struct {
	Key         string `json:"key"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

type ConfigSchemasJSON struct {
	Schemas []ConfigSchema `json:"schemas"`
}

// LoadConfigSchemas returns the embedded default settings.
func LoadConfigSchemas() ([]ConfigSchema, error) {
	var data ConfigSchemasJSON
	if err := jsoniter.Unmarshal(configSchemasData, &data); err != nil {
		return nil, errors.Wrap(err, "parse settings schemas")
	}
	return data.Schemas, nil
}

// ShopSettings typed view of site_settings
type ShopSettings struct {
	Site struct {
		Name         string `setting:"name"`
		Currency     string `setting:"currency"`
		ContactEmail string `setting:"contact_email"`
		Locale       string `setting:"locale"`
	} `setting:"site"`
	Shop struct {
		LowStockThreshold   int     `setting:"low_stock_threshold"`
		CartRetentionDays   int     `setting:"cart_retention_days"`
		FreeShippingMinimum float64 `setting:"free_shipping_minimum"`
	} `setting:"shop"`
}

type settingItem struct {
	key   string
	value string
}

func lessSetting(a, b settingItem) bool { return a.key < b.key }

// ConfigManager caches site_settings ordered by key
type ConfigManager struct {
	db   *gorm.DB
	mu   sync.RWMutex
	tree *btree.BTreeG[settingItem]
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	m := &ConfigManager{db: db, tree: btree.NewG[settingItem](8, lessSetting)}
	_ = m.Reload()
	return m
}

// Reload replaces the cache with the current table content.
func (m *ConfigManager) Reload() error {
	var rows []domain.SiteSetting
	if err := m.db.Find(&rows).Error; err != nil {
		return errors.Wrap(err, "load site settings")
	}
	tree := btree.NewG[settingItem](8, lessSetting)
	for _, r := range rows {
		tree.ReplaceOrInsert(settingItem{key: r.Key, value: r.Value})
	}
	m.mu.Lock()
	m.tree = tree
	m.mu.Unlock()
	return nil
}

func (m *ConfigManager) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.tree.Get(settingItem{key: key})
	return item.value, ok
}

func (m *ConfigManager) GetString(category, name string) string {
	v, _ := m.Get(category + "." + name)
	return v
}

func (m *ConfigManager) GetInt(category, name string) int {
	return cast.ToInt(m.GetString(category, name))
}

func (m *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.GetString(category, name))
}

func (m *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(m.GetString(category, name))
}

func (m *ConfigManager) GetFloat(category, name string) float64 {
	return cast.ToFloat64(m.GetString(category, name))
}

// Prefix returns the settings whose key starts with prefix, in key order.
func (m *ConfigManager) Prefix(prefix string) map[string]string {
	out := map[string]string{}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.tree.AscendGreaterOrEqual(settingItem{key: prefix}, func(item settingItem) bool {
		if !strings.HasPrefix(item.key, prefix) {
			return false
		}
		out[item.key] = item.value
		return true
	})
	return out
}

// Decode maps the cached settings into out, nesting on the dots of each key.
func (m *ConfigManager) Decode(out interface{}) error {
	input := map[string]interface{}{}
	m.mu.RLock()
	m.tree.Ascend(func(item settingItem) bool {
		parts := strings.SplitN(item.key, ".", 2)
		if len(parts) != 2 {
			input[item.key] = item.value
			return true
		}
		group, ok := input[parts[0]].(map[string]interface{})
		if !ok {
			group = map[string]interface{}{}
			input[parts[0]] = group
		}
		group[parts[1]] = item.value
		return true
	})
	m.mu.RUnlock()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "setting",
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// ShopSettings decodes the cached site settings into their typed view.
func (a *Application) ShopSettings() (ShopSettings, error) {
	var s ShopSettings
	if err := a.configManager.Decode(&s); err != nil {
		return s, errors.Wrap(err, "decode site settings")
	}
	return s, nil
}

// SiteInfo returns the public "site." settings with the prefix stripped.
func (a *Application) SiteInfo() map[string]string {
	out := map[string]string{}
	for k, v := range a.configManager.Prefix("site.") {
		out[strings.TrimPrefix(k, "site.")] = v
	}
	return out
}
