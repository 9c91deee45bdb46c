package adminapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/shop"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

func registerPromotionRoutes() {
	webserver.ApiGET("/promotions", listPromotions)
	webserver.ApiGET("/promotions/:id", getPromotion)
	webserver.ApiPOST("/promotions", createPromotion)
	webserver.ApiPUT("/promotions/:id", updatePromotion)
	webserver.ApiPUT("/promotions/:id/toggle", togglePromotion)
	webserver.ApiDELETE("/promotions/:id", deletePromotion)
}

func withPromotionProduct(db *gorm.DB) *gorm.DB {
	return db.Preload("Product", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name") })
}

func shopLocation(c echo.Context) *time.Location {
	loc, err := time.LoadLocation(GetAppContext(c).Config().System.Location)
	if err != nil {
		return time.Local
	}
	return loc
}

func listPromotions(c echo.Context) error {
	var rows []domain.Promotion
	if err := withPromotionProduct(GetDB(c)).Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query promotions", err.Error())
	}
	return ok(c, rows)
}

func getPromotion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid promotion ID", nil)
	}
	var p domain.Promotion
	if err := withPromotionProduct(GetDB(c)).Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Promotion not found", nil)
	}
	return ok(c, p)
}

// bindPromotion parses and normalizes the promotion form. A nil result means
// the error response was already written.
func bindPromotion(c echo.Context) (*domain.Promotion, error) {
	var in shop.PromotionInput
	if err := c.Bind(&in); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse promotion", err.Error())
	}
	if err := c.Validate(&in); err != nil {
		return nil, handleValidationError(c, err)
	}
	p, err := shop.NormalizeInput(in, shopLocation(c))
	if err != nil {
		return nil, webserver.FailWithToast(c, http.StatusBadRequest, "INVALID_PROMOTION", err.Error(),
			"Impossible d'ajouter la promotion : "+err.Error())
	}
	if p.ProductID.Valid {
		var count int64
		GetDB(c).Model(&domain.Product{}).Where("id = ?", p.ProductID.Int64).Count(&count)
		if count == 0 {
			return nil, fail(c, http.StatusBadRequest, "INVALID_PRODUCT", "Product not found", nil)
		}
	}
	return p, nil
}

func promotionCodeTaken(db *gorm.DB, p *domain.Promotion, exceptID int64) bool {
	if p.Code == nil {
		return false
	}
	var count int64
	db.Model(&domain.Promotion{}).Where("code = ? AND id != ?", *p.Code, exceptID).Count(&count)
	return count > 0
}

func createPromotion(c echo.Context) error {
	p, err := bindPromotion(c)
	if p == nil {
		return err
	}
	if promotionCodeTaken(GetDB(c), p, 0) {
		return webserver.FailWithToast(c, http.StatusConflict, "CODE_EXISTS", "Promotion code already exists",
			"Ce code promo existe déjà")
	}
	if err := GetDB(c).Create(p).Error; err != nil {
		return webserver.FailWithToast(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create promotion",
			"Impossible d'ajouter la promotion : "+err.Error())
	}
	logOperation(c, "create_promotion", fmt.Sprintf("create promotion %s (%d)", p.Name, p.ID))
	return webserver.OKWithToast(c, http.StatusCreated, p, webserver.InfoToast("Succès", "Promotion ajoutée avec succès."))
}

func updatePromotion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid promotion ID", nil)
	}
	var current domain.Promotion
	if err := GetDB(c).Where("id = ?", id).First(&current).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Promotion not found", nil)
	}
	p, err := bindPromotion(c)
	if p == nil {
		return err
	}
	if promotionCodeTaken(GetDB(c), p, id) {
		return webserver.FailWithToast(c, http.StatusConflict, "CODE_EXISTS", "Promotion code already exists",
			"Ce code promo existe déjà")
	}
	p.ID = id
	p.TimesUsed = current.TimesUsed
	p.CreatedAt = current.CreatedAt
	if err := GetDB(c).Save(p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update promotion", err.Error())
	}
	logOperation(c, "update_promotion", fmt.Sprintf("update promotion %s (%d)", p.Name, p.ID))
	return ok(c, p)
}

func togglePromotion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid promotion ID", nil)
	}
	var p domain.Promotion
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		p.Active = !p.Active
		return tx.Model(&p).Update("active", p.Active).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Promotion not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to toggle promotion", err.Error())
	}
	logOperation(c, "toggle_promotion", fmt.Sprintf("promotion %d active=%t", id, p.Active))
	return ok(c, p)
}

func deletePromotion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid promotion ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Promotion{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete promotion", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Promotion not found", nil)
	}
	logOperation(c, "delete_promotion", fmt.Sprintf("delete promotion %d", id))
	return c.NoContent(http.StatusNoContent)
}
