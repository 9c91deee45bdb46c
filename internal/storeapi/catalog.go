package storeapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	searchLimit  = 5
	popularLimit = 10
	newWindow    = 7 * 24 * time.Hour
)

func registerCatalogRoutes() {
	webserver.PubGET("/store/products", listProducts)
	webserver.PubGET("/store/products/tab/:tab", listProductTab)
	webserver.PubGET("/store/products/:id", getProduct)
	webserver.PubGET("/store/search", searchProducts)
	webserver.PubGET("/store/categories", listCategories)
	webserver.PubGET("/store/promotions", listActivePromotions)
	webserver.PubGET("/store/shipping-rates", listShippingRates)
	webserver.PubGET("/store/site", getSiteInfo)
}

func listProducts(c echo.Context) error {
	db := GetDB(c).Model(&domain.Product{})
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("category = ?", category)
	}
	var rows []domain.Product
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return ok(c, rows)
}

// getProduct returns one product and counts the view.
func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	db := GetDB(c)
	var p domain.Product
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	if err := db.Model(&domain.Product{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err == nil {
		p.ViewCount++
	}
	return ok(c, p)
}

func listProductTab(c echo.Context) error {
	db := GetDB(c).Model(&domain.Product{})
	switch c.Param("tab") {
	case "featured":
		db = db.Where("is_featured = ?", true).Order("created_at DESC")
	case "popular":
		db = db.Order("sold_count DESC").Limit(popularLimit)
	case "new":
		db = db.Where("created_at >= ?", time.Now().Add(-newWindow)).Order("created_at DESC")
	default:
		return fail(c, http.StatusBadRequest, "INVALID_TAB", "Tab must be featured, popular or new", nil)
	}
	var rows []domain.Product
	if err := db.Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return ok(c, rows)
}

type searchResult struct {
	ID       int64  `json:"id,string"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// searchProducts backs the search dialog: blank queries return nothing.
func searchProducts(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	rows := []searchResult{}
	if q == "" {
		return ok(c, rows)
	}
	db := GetDB(c).Model(&domain.Product{}).Select("id", "name", "category")
	if strings.EqualFold(db.Name(), "postgres") {
		db = db.Where("name ILIKE ?", "%"+q+"%")
	} else {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if err := db.Limit(searchLimit).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Search failed", err.Error())
	}
	return ok(c, rows)
}

func listCategories(c echo.Context) error {
	var rows []domain.ProductCategory
	if err := GetDB(c).Order("name ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	return ok(c, rows)
}

func listActivePromotions(c echo.Context) error {
	now := time.Now()
	var rows []domain.Promotion
	err := GetDB(c).Preload("Product").
		Where("active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query promotions", err.Error())
	}
	return ok(c, rows)
}

func listShippingRates(c echo.Context) error {
	var rows []domain.ShippingRate
	if err := GetDB(c).Order("price ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shipping rates", err.Error())
	}
	return ok(c, rows)
}

// getSiteInfo exposes the public "site." settings: name, currency, contact.
func getSiteInfo(c echo.Context) error {
	return ok(c, GetAppContext(c).SiteInfo())
}
