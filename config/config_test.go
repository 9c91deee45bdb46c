package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/boutiqueapp/boutique/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	c := qt.New(t)

	cfg := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))

	c.Assert(cfg.Database.Type, qt.Equals, "postgres")
	c.Assert(cfg.Web.Port, qt.Equals, 1980)
	c.Assert(cfg.Web.TokenTTL, qt.Equals, 24*time.Hour)
	c.Assert(cfg.GetDataDir(), qt.Equals, "/var/boutique/data")
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "boutique.yml")
	content := `
system:
  workdir: ` + dir + `
web:
  port: 8088
  token_ttl: 2h
database:
  type: sqlite
  name: shop.db
mail:
  enabled: true
  host: smtp.example.com
`
	c.Assert(os.WriteFile(file, []byte(content), 0o644), qt.IsNil)

	t.Setenv("BOUTIQUE_WEB_PORT", "9090")
	t.Setenv("BOUTIQUE_DB_DEBUG", "true")
	t.Setenv("BOUTIQUE_WEB_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg := config.LoadConfig(file)

	c.Assert(cfg.System.Workdir, qt.Equals, dir)
	c.Assert(cfg.Web.Port, qt.Equals, 9090)
	c.Assert(cfg.Web.TokenTTL, qt.Equals, 2*time.Hour)
	c.Assert(cfg.Database.Type, qt.Equals, "sqlite")
	c.Assert(cfg.Database.Debug, qt.IsTrue)
	c.Assert(cfg.Mail.Enabled, qt.IsTrue)
	c.Assert(cfg.Mail.Host, qt.Equals, "smtp.example.com")
	c.Assert(cfg.Web.CorsOrigins, qt.DeepEquals, []string{"https://a.example", "https://b.example"})
}
