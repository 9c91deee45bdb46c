package adminapi

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

// TableInfo represents table metadata
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

func registerDatabaseRoutes() {
	webserver.ApiGET("/database/tables", listTables)
	webserver.ApiGET("/database/backup", backupDatabase)
}

// storeTables returns the table names of the registered models, sorted.
func storeTables(db *gorm.DB) ([]string, error) {
	names := make([]string, 0, len(domain.Tables))
	for _, model := range domain.Tables {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, errors.Wrapf(err, "parse %T", model)
		}
		names = append(names, stmt.Schema.Table)
	}
	sort.Strings(names)
	return names, nil
}

// TableStats counts the rows of every store table.
func TableStats(db *gorm.DB) ([]TableInfo, error) {
	names, err := storeTables(db)
	if err != nil {
		return nil, err
	}
	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		var count int64
		if err := db.Table(name).Count(&count).Error; err != nil {
			return nil, errors.Wrapf(err, "count %s", name)
		}
		tables = append(tables, TableInfo{Name: name, RowCount: count})
	}
	return tables, nil
}

// WriteBackup dumps every store table as one JSON document keyed by table name.
func WriteBackup(db *gorm.DB, w io.Writer) error {
	names, err := storeTables(db)
	if err != nil {
		return err
	}
	stream := jsoniter.NewStream(jsoniter.ConfigCompatibleWithStandardLibrary, w, 4096)
	stream.WriteObjectStart()
	stream.WriteObjectField("generated_at")
	stream.WriteString(time.Now().Format(time.RFC3339))
	stream.WriteMore()
	stream.WriteObjectField("database")
	stream.WriteString(db.Dialector.Name())
	for _, name := range names {
		var rows []map[string]interface{}
		if err := db.Table(name).Find(&rows).Error; err != nil {
			return errors.Wrapf(err, "dump %s", name)
		}
		if rows == nil {
			rows = []map[string]interface{}{}
		}
		stream.WriteMore()
		stream.WriteObjectField(name)
		stream.WriteVal(rows)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return stream.Error
	}
	return stream.Flush()
}

func listTables(c echo.Context) error {
	tables, err := TableStats(GetDB(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list tables", err.Error())
	}
	return ok(c, tables)
}

func backupDatabase(c echo.Context) error {
	filename := fmt.Sprintf("boutique_backup_%s.json", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c.Response().WriteHeader(http.StatusOK)
	if err := WriteBackup(GetDB(c), c.Response()); err != nil {
		return err
	}
	logOperation(c, "backup_database", "download "+filename)
	return nil
}
