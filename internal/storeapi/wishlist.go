package storeapi

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/shop"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
)

type wishlistPayload struct {
	ProductID int64 `json:"product_id,string" validate:"required"`
}

func registerWishlistRoutes() {
	webserver.UserGET("/wishlist", getWishlist)
	webserver.UserPOST("/wishlist", addToWishlist)
	webserver.UserDELETE("/wishlist/:id", removeFromWishlist)
}

func wishlistService(c echo.Context) *shop.WishlistService {
	return shop.NewGormWishlistService(GetDB(c), publisher(c))
}

func getWishlist(c echo.Context) error {
	items, err := wishlistService(c).List(c.Request().Context(), currentUser(c))
	if err != nil {
		return shopError(c, err, "Impossible de charger la wishlist")
	}
	return ok(c, items)
}

func addToWishlist(c echo.Context) error {
	var payload wishlistPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	item, err := wishlistService(c).Add(c.Request().Context(), currentUser(c), payload.ProductID)
	if err != nil {
		return shopError(c, err, "Impossible d'ajouter le produit à la wishlist")
	}
	return webserver.OKWithToast(c, http.StatusCreated, item,
		webserver.InfoToast("Produit ajouté", "Le produit a été ajouté à votre wishlist"))
}

func removeFromWishlist(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid wishlist item ID", nil)
	}
	if err := wishlistService(c).Remove(c.Request().Context(), currentUser(c), id); err != nil {
		return shopError(c, err, "Impossible de retirer le produit de la wishlist")
	}
	return webserver.OKWithToast(c, http.StatusOK, map[string]bool{"removed": true},
		webserver.InfoToast("Produit retiré", "Le produit a été retiré de votre wishlist"))
}
