package storeapi

import (
	"net/http"
	"strings"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRating = 5

type reviewPayload struct {
	ProductID int64  `json:"product_id,string" validate:"required"`
	Rating    *int   `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

func registerReviewRoutes() {
	webserver.PubGET("/store/reviews", listReviews)
	webserver.PubGET("/store/products/:id/reviews", listProductReviews)
	webserver.UserPOST("/reviews", createReview)
}

// withReviewRelations loads the product and author columns the review cards show.
func withReviewRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Product", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "image_url") }).
		Preload("Profile", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "full_name", "username") })
}

func listReviews(c echo.Context) error {
	var rows []domain.Review
	if err := withReviewRelations(GetDB(c)).Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}
	return ok(c, rows)
}

func listProductReviews(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var rows []domain.Review
	err = withReviewRelations(GetDB(c)).Where("product_id = ?", id).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}
	return ok(c, rows)
}

func createReview(c echo.Context) error {
	var payload reviewPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse review", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	rating := defaultRating
	if payload.Rating != nil {
		rating = *payload.Rating
	}

	db := GetDB(c)
	var count int64
	if err := db.Model(&domain.Product{}).Where("id = ?", payload.ProductID).Count(&count).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	if count == 0 {
		return webserver.FailWithToast(c, http.StatusNotFound, "NOT_FOUND", "Product not found", "Ce produit n'existe pas")
	}

	uid := currentUser(c)
	review := domain.Review{
		ProductID: common.NewNullID(payload.ProductID),
		UserID:    common.NewNullID(uid),
		Rating:    rating,
		Comment:   common.StringPtr(strings.TrimSpace(payload.Comment)),
	}
	if err := db.Create(&review).Error; err != nil {
		zap.L().Error("create review failed", zap.String("namespace", "storeapi"), zap.Error(err))
		return webserver.FailWithToast(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create review",
			"Impossible de publier votre avis")
	}
	return webserver.OKWithToast(c, http.StatusCreated, review,
		webserver.InfoToast("Avis publié", "Merci pour votre avis"))
}
