package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
)

type shippingPayload struct {
	Name          string  `json:"name" validate:"required,min=1,max=200"`
	Description   string  `json:"description" validate:"max=1000"`
	Price         float64 `json:"price" validate:"gte=0"`
	EstimatedDays int     `json:"estimated_days" validate:"gte=0"`
}

func registerShippingRoutes() {
	webserver.ApiGET("/shipping-rates", listShippingRates)
	webserver.ApiPOST("/shipping-rates", createShippingRate)
	webserver.ApiPUT("/shipping-rates/:id", updateShippingRate)
	webserver.ApiDELETE("/shipping-rates/:id", deleteShippingRate)
}

func listShippingRates(c echo.Context) error {
	var rows []domain.ShippingRate
	if err := GetDB(c).Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shipping rates", err.Error())
	}
	return ok(c, rows)
}

func bindShipping(c echo.Context) (*shippingPayload, error) {
	var payload shippingPayload
	if err := c.Bind(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse shipping rate", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return nil, handleValidationError(c, err)
	}
	return &payload, nil
}

func createShippingRate(c echo.Context) error {
	payload, err := bindShipping(c)
	if payload == nil {
		return err
	}
	rate := domain.ShippingRate{
		Name:          payload.Name,
		Description:   common.StringPtr(payload.Description),
		Price:         payload.Price,
		EstimatedDays: payload.EstimatedDays,
	}
	if err := GetDB(c).Create(&rate).Error; err != nil {
		return webserver.FailWithToast(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create shipping rate",
			"Impossible d'ajouter le tarif de livraison")
	}
	logOperation(c, "create_shipping_rate", "create shipping rate "+rate.Name)
	return webserver.OKWithToast(c, http.StatusCreated, rate, webserver.InfoToast("Succès", "Tarif de livraison ajouté avec succès."))
}

func updateShippingRate(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid shipping rate ID", nil)
	}
	var rate domain.ShippingRate
	if err := GetDB(c).Where("id = ?", id).First(&rate).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Shipping rate not found", nil)
	}
	payload, err := bindShipping(c)
	if payload == nil {
		return err
	}
	updates := map[string]interface{}{
		"name":           payload.Name,
		"description":    common.StringPtr(payload.Description),
		"price":          payload.Price,
		"estimated_days": payload.EstimatedDays,
	}
	if err := GetDB(c).Model(&rate).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update shipping rate", err.Error())
	}
	GetDB(c).Where("id = ?", id).First(&rate)
	logOperation(c, "update_shipping_rate", fmt.Sprintf("update shipping rate %d", id))
	return ok(c, rate)
}

func deleteShippingRate(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid shipping rate ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.ShippingRate{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete shipping rate", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Shipping rate not found", nil)
	}
	logOperation(c, "delete_shipping_rate", fmt.Sprintf("delete shipping rate %d", id))
	return c.NoContent(http.StatusNoContent)
}
