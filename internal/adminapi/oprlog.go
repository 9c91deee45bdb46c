package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func registerLogRoutes() {
	webserver.ApiGET("/logs", listOprLogs)
}

// logOperation records an admin mutation in sys_opr_log.
func logOperation(c echo.Context, action, desc string) {
	name := "unknown"
	if claims := webserver.CurrentClaims(c); claims != nil {
		name = claims.Username
	}
	entry := domain.SysOprLog{
		OprName:   name,
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}
	if err := GetDB(c).Create(&entry).Error; err != nil {
		zap.L().Error("write operation log failed", zap.String("namespace", "adminapi"), zap.Error(err))
	}
}

func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.SysOprLog{})
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		db = db.Where("opt_action = ?", action)
	}
	db = whereLike(db, strings.TrimSpace(c.QueryParam("q")), "opr_name", "opt_desc")

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	var rows []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}
