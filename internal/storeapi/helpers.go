package storeapi

import (
	"net/http"
	"strconv"

	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/internal/shop"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
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

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func handleValidationError(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload", webserver.ValidationDetails(err))
}

// shopError maps service errors to a response with a destructive toast.
// description is the user-facing message of the failed action.
func shopError(c echo.Context, err error, description string) error {
	switch {
	case errors.Is(err, shop.ErrLoginRequired):
		return webserver.FailWithToast(c, http.StatusUnauthorized, "LOGIN_REQUIRED", err.Error(),
			"Veuillez vous connecter pour continuer")
	case errors.Is(err, shop.ErrNotFound):
		return webserver.FailWithToast(c, http.StatusNotFound, "NOT_FOUND", err.Error(), description)
	case errors.Is(err, shop.ErrAlreadyInWishlist):
		return webserver.FailWithToast(c, http.StatusConflict, "ALREADY_IN_WISHLIST", err.Error(),
			"Ce produit est déjà dans votre wishlist")
	case errors.Is(err, shop.ErrOutOfStock):
		return webserver.FailWithToast(c, http.StatusConflict, "OUT_OF_STOCK", err.Error(),
			"Stock insuffisant pour finaliser la commande")
	case errors.Is(err, shop.ErrEmptyCart):
		return webserver.FailWithToast(c, http.StatusBadRequest, "EMPTY_CART", err.Error(), "Votre panier est vide")
	case errors.Is(err, shop.ErrPromotionInvalid):
		return webserver.FailWithToast(c, http.StatusBadRequest, "PROMOTION_INVALID", err.Error(),
			"Ce code promo n'est pas valide")
	case errors.Is(err, shop.ErrInvalidQuantity):
		return webserver.FailWithToast(c, http.StatusBadRequest, "INVALID_QUANTITY", err.Error(), description)
	}
	zap.L().Error("store request failed",
		zap.String("namespace", "storeapi"),
		zap.String("path", c.Path()),
		zap.Error(err))
	return webserver.FailWithToast(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Request failed", description)
}

func currentUser(c echo.Context) int64 {
	return webserver.CurrentUserID(c)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, data, total, page, pageSize)
}

// parsePagination reads page and perPage (or pageSize), defaulting to 1 and 20.
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

func publisher(c echo.Context) realtime.Publisher {
	if hub := GetAppContext(c).Hub(); hub != nil {
		return hub
	}
	return realtime.NopPublisher{}
}
