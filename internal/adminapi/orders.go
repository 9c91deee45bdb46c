package adminapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

type orderStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending paid shipped delivered cancelled"`
}

func registerOrderRoutes() {
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPUT("/orders/:id/status", updateOrderStatus)
}

func withCustomer(db *gorm.DB) *gorm.DB {
	return db.Preload("Profile", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "full_name", "username") })
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Order{})
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	var rows []domain.Order
	err := withCustomer(db).Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var order domain.Order
	err = withCustomer(GetDB(c)).Preload("Items").Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query order", err.Error())
	}
	return ok(c, order)
}

// updateOrderStatus changes the status and notifies the customer.
func updateOrderStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload orderStatusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var order domain.Order
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := tx.Model(&order).Update("status", payload.Status).Error; err != nil {
			return err
		}
		if !order.UserID.Valid {
			return nil
		}
		return tx.Create(&domain.Notification{
			UserID:  order.UserID.Int64,
			Title:   "Commande mise à jour",
			Message: fmt.Sprintf("Votre commande est maintenant : %s", payload.Status),
			Type:    "order",
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update order", err.Error())
	}
	if hub := GetAppContext(c).Hub(); hub != nil {
		ev := realtime.Event{Type: realtime.EventOrder, Action: "status", Data: strconv.FormatInt(id, 10)}
		if order.UserID.Valid {
			ev.UserID = order.UserID.Int64
		}
		hub.Publish(realtime.TopicOrdersAdmin, ev)
	}
	logOperation(c, "update_order_status", fmt.Sprintf("order %d -> %s", id, payload.Status))
	return ok(c, order)
}
