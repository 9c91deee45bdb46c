package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func GetDB(c echo.Context) *gorm.DB {
	return webserver.GetDB(c)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, data, total, page, pageSize)
}

// parsePagination accepts perPage (react-admin) or the older pageSize.
func parsePagination(c echo.Context) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	raw := c.QueryParam("perPage")
	if raw == "" {
		raw = c.QueryParam("pageSize")
	}
	pageSize, err := strconv.Atoi(raw)
	if err != nil || pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func handleValidationError(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload", webserver.ValidationDetails(err))
}

// sortOrder returns the whitelisted column and direction of ?sort=&order=.
func sortOrder(c echo.Context, allowed map[string]string, fallback string) string {
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	col, ok := allowed[strings.TrimSpace(c.QueryParam("sort"))]
	if !ok || col == "" {
		col = fallback
	}
	return col + " " + order
}

// whereLike adds a case-insensitive substring filter on columns.
func whereLike(db *gorm.DB, q string, columns ...string) *gorm.DB {
	if q == "" || len(columns) == 0 {
		return db
	}
	clauses := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	if strings.EqualFold(db.Name(), "postgres") {
		for _, col := range columns {
			clauses = append(clauses, col+" ILIKE ?")
			args = append(args, "%"+q+"%")
		}
	} else {
		for _, col := range columns {
			clauses = append(clauses, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(q)+"%")
		}
	}
	return db.Where(strings.Join(clauses, " OR "), args...)
}

var errNameTaken = errors.New("name already exists")
