package storeapi

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/mailer"
	"github.com/boutiqueapp/boutique/internal/shop"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerOrderRoutes() {
	webserver.UserPOST("/checkout", checkout)
	webserver.UserGET("/orders", listMyOrders)
	webserver.UserGET("/orders/:id", getMyOrder)
}

func checkout(c echo.Context) error {
	var in shop.CheckoutInput
	if err := c.Bind(&in); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	settings, err := GetAppContext(c).ShopSettings()
	if err != nil {
		zap.L().Error("load shop settings failed", zap.String("namespace", "storeapi"), zap.Error(err))
	}
	svc := shop.NewCheckoutService(GetDB(c), publisher(c), func() float64 {
		return settings.Shop.FreeShippingMinimum
	})
	uid := currentUser(c)
	order, err := svc.Checkout(c.Request().Context(), uid, in)
	if err != nil {
		return shopError(c, err, "Impossible de finaliser la commande")
	}
	sendOrderConfirmation(GetAppContext(c), settings, uid, order)
	return webserver.OKWithToast(c, http.StatusCreated, order,
		webserver.InfoToast("Commande enregistrée", "Votre commande a bien été enregistrée"))
}

func listMyOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Order{}).Where("user_id = ?", currentUser(c))

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	var rows []domain.Order
	err := db.Preload("Items").Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getMyOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var order domain.Order
	err = GetDB(c).Preload("Items").Where("id = ? AND user_id = ?", id, currentUser(c)).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query order", err.Error())
	}
	return ok(c, order)
}

// sendOrderConfirmation mails the order summary to its owner in the background.
func sendOrderConfirmation(appCtx app.AppContext, settings app.ShopSettings, uid int64, order *domain.Order) {
	m := appCtx.Mailer()
	if !m.Enabled() {
		return
	}
	var account domain.Account
	if err := appCtx.DB().Select("email").Where("id = ?", uid).First(&account).Error; err != nil {
		zap.L().Warn("order confirmation skipped", zap.String("namespace", "storeapi"), zap.Int64("user_id", uid), zap.Error(err))
		return
	}
	subject, body := mailer.OrderConfirmation(mailer.Locale(settings.Site.Locale), settings.Site.Name, settings.Site.Currency, order)
	go func() {
		if err := m.Send(account.Email, subject, body); err != nil {
			zap.L().Warn("order confirmation failed", zap.String("namespace", "storeapi"), zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}()
}
