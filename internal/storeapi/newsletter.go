package storeapi

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type subscribePayload struct {
	Email string `json:"email" validate:"required,email"`
}

func registerNewsletterRoutes() {
	webserver.PubPOST("/store/newsletter", subscribeNewsletter)
	webserver.PubGET("/store/newsletter/unsubscribe/:token", unsubscribeNewsletter)
}

// subscribeNewsletter registers an e-mail, re-activating a previous subscription.
func subscribeNewsletter(c echo.Context) error {
	var payload subscribePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	email := common.NormalizeEmail(payload.Email)
	db := GetDB(c)

	var sub domain.NewsletterSubscriber
	err := db.Where("email = ?", email).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = domain.NewsletterSubscriber{Email: email, Active: true}
		err = db.Create(&sub).Error
	case err == nil && !sub.Active:
		sub.Active = true
		err = db.Model(&sub).Update("active", true).Error
	}
	if err != nil {
		return webserver.FailWithToast(c, http.StatusInternalServerError, "DATABASE_ERROR", "Subscription failed",
			"Impossible de vous inscrire à la newsletter")
	}
	return webserver.OKWithToast(c, http.StatusOK, sub,
		webserver.InfoToast("Inscription confirmée", "Vous êtes inscrit à notre newsletter"))
}

func unsubscribeNewsletter(c echo.Context) error {
	token := c.Param("token")
	if common.IsEmpty(token) {
		return fail(c, http.StatusBadRequest, "INVALID_TOKEN", "Missing token", nil)
	}
	res := GetDB(c).Model(&domain.NewsletterSubscriber{}).Where("token = ?", token).Update("active", false)
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to unsubscribe", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Subscription not found", nil)
	}
	return ok(c, map[string]bool{"unsubscribed": true})
}
