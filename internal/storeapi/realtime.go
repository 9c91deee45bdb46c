package storeapi

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/auth"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
)

func registerRealtimeRoutes() {
	webserver.UserWS("/ws", serveChanges)
}

// serveChanges streams the cart, wishlist and auth events of the caller.
// Admins also receive new orders.
func serveChanges(c echo.Context) error {
	hub := GetAppContext(c).Hub()
	if hub == nil {
		return fail(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Change feed unavailable", nil)
	}
	uid := currentUser(c)
	topics := realtime.UserTopics(uid)
	isAdmin, err := auth.HasRole(c.Request().Context(), GetDB(c), uid, domain.RoleAdmin)
	if err == nil && isAdmin {
		topics = append(topics, realtime.TopicOrdersAdmin)
	}
	return hub.ServeWS(c, topics...)
}
