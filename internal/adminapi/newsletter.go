package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/mailer"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

type campaignPayload struct {
	Subject string `json:"subject" validate:"required,max=200"`
	HTML    string `json:"html" validate:"required"`
}

// CampaignResult delivery counters of a newsletter send
type CampaignResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

func registerNewsletterRoutes() {
	webserver.ApiGET("/newsletter", listSubscribers)
	webserver.ApiGET("/newsletter/export", exportSubscribers)
	webserver.ApiPOST("/newsletter/send", sendCampaign)
	webserver.ApiDELETE("/newsletter/:id", deleteSubscriber)
}

func listSubscribers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.NewsletterSubscriber{})
	if c.QueryParam("active") == "true" {
		db = db.Where("active = ?", true)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscribers", err.Error())
	}
	var rows []domain.NewsletterSubscriber
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscribers", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func exportSubscribers(c echo.Context) error {
	var rows []domain.NewsletterSubscriber
	if err := GetDB(c).Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscribers", err.Error())
	}
	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export subscribers", err.Error())
	}
	name := "newsletter-" + time.Now().Format("20060102") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+name)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// sendCampaign mails the active subscribers.
func sendCampaign(c echo.Context) error {
	var payload campaignPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse campaign", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	var emails []string
	if err := GetDB(c).Model(&domain.NewsletterSubscriber{}).Where("active = ?", true).
		Pluck("email", &emails).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscribers", err.Error())
	}

	sent, failed, err := GetAppContext(c).Mailer().SendBulk(c.Request().Context(), emails, payload.Subject, payload.HTML)
	if errors.Is(err, mailer.ErrMailDisabled) {
		return webserver.FailWithToast(c, http.StatusServiceUnavailable, "MAIL_DISABLED", err.Error(),
			"L'envoi d'e-mails n'est pas configuré")
	} else if err != nil {
		zap.L().Error("newsletter campaign interrupted", zap.String("namespace", "adminapi"), zap.Error(err))
	}
	result := CampaignResult{Recipients: len(emails), Sent: sent, Failed: failed}
	logOperation(c, "send_newsletter", fmt.Sprintf("newsletter %q: %d sent, %d failed", payload.Subject, sent, failed))
	return webserver.OKWithToast(c, http.StatusOK, result,
		webserver.InfoToast("Newsletter envoyée", fmt.Sprintf("%d e-mails envoyés", sent)))
}

func deleteSubscriber(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscriber ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.NewsletterSubscriber{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete subscriber", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Subscriber not found", nil)
	}
	logOperation(c, "delete_subscriber", fmt.Sprintf("delete subscriber %d", id))
	return c.NoContent(http.StatusNoContent)
}
