package storeapi

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/shop"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
)

type cartAddPayload struct {
	ProductID int64 `json:"product_id,string" validate:"required"`
	Quantity  int   `json:"quantity"`
}

type cartQuantityPayload struct {
	Quantity int `json:"quantity"`
}

func registerCartRoutes() {
	webserver.UserGET("/cart", getCart)
	webserver.UserPOST("/cart", addToCart)
	webserver.UserPUT("/cart/:id", updateCartQuantity)
	webserver.UserDELETE("/cart/:id", removeFromCart)
	webserver.UserDELETE("/cart", clearCart)
}

func cartService(c echo.Context) *shop.CartService {
	return shop.NewGormCartService(GetDB(c), publisher(c))
}

func getCart(c echo.Context) error {
	items, err := cartService(c).List(c.Request().Context(), currentUser(c))
	if err != nil {
		return shopError(c, err, "Impossible de charger le panier")
	}
	return ok(c, shop.Summarize(items))
}

func addToCart(c echo.Context) error {
	var payload cartAddPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	svc := cartService(c)
	ctx := c.Request().Context()
	if err := svc.Add(ctx, currentUser(c), payload.ProductID, payload.Quantity); err != nil {
		return shopError(c, err, "Impossible d'ajouter le produit au panier")
	}
	items, err := svc.List(ctx, currentUser(c))
	if err != nil {
		return shopError(c, err, "Impossible de charger le panier")
	}
	return webserver.OKWithToast(c, http.StatusOK, shop.Summarize(items),
		webserver.InfoToast("Produit ajouté", "Le produit a été ajouté à votre panier"))
}

// updateCartQuantity ignores quantities below 1 and reports it with updated=false.
func updateCartQuantity(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid cart item ID", nil)
	}
	var payload cartQuantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	updated, err := cartService(c).UpdateQuantity(c.Request().Context(), currentUser(c), id, payload.Quantity)
	if err != nil {
		return shopError(c, err, "Impossible de mettre à jour la quantité")
	}
	return ok(c, map[string]bool{"updated": updated})
}

func removeFromCart(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid cart item ID", nil)
	}
	if err := cartService(c).Remove(c.Request().Context(), currentUser(c), id); err != nil {
		return shopError(c, err, "Impossible de retirer le produit du panier")
	}
	return webserver.OKWithToast(c, http.StatusOK, map[string]bool{"removed": true},
		webserver.InfoToast("Produit retiré", "Le produit a été retiré de votre panier"))
}

func clearCart(c echo.Context) error {
	if err := cartService(c).Clear(c.Request().Context(), currentUser(c)); err != nil {
		return shopError(c, err, "Impossible de vider le panier")
	}
	return ok(c, map[string]bool{"cleared": true})
}
