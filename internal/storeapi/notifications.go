package storeapi

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
)

func registerNotificationRoutes() {
	webserver.UserGET("/notifications", listNotifications)
	webserver.UserPUT("/notifications/:id/read", markNotificationRead)
	webserver.UserGET("/toasts", popToasts)
}

func listNotifications(c echo.Context) error {
	db := GetDB(c).Where("user_id = ?", currentUser(c))
	if c.QueryParam("unread") == "true" {
		db = db.Where("read = ?", false)
	}
	var rows []domain.Notification
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query notifications", err.Error())
	}
	return ok(c, rows)
}

func markNotificationRead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID", nil)
	}
	res := GetDB(c).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, currentUser(c)).
		Update("read", true)
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update notification", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Notification not found", nil)
	}
	return ok(c, map[string]bool{"read": true})
}

// popToasts drains the transient notifications queued in the session.
func popToasts(c echo.Context) error {
	return ok(c, webserver.PopToasts(c))
}
