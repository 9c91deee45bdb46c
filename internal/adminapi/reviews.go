package adminapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

// Review moderation is open to moderators as well as admins.
func registerReviewRoutes() {
	webserver.ModGET("/reviews", listReviews)
	webserver.ModDELETE("/reviews/:id", deleteReview)
}

func listReviews(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Review{})
	if rating := c.QueryParam("rating"); rating != "" {
		db = db.Where("rating = ?", rating)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}
	var rows []domain.Review
	err := db.
		Preload("Product", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name") }).
		Preload("Profile", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "full_name") }).
		Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func deleteReview(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Review{})
	if res.Error != nil {
		return webserver.FailWithToast(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete review",
			"Impossible de supprimer l'avis")
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Review not found", nil)
	}
	logOperation(c, "delete_review", fmt.Sprintf("delete review %d", id))
	return webserver.OKWithToast(c, http.StatusOK, map[string]bool{"deleted": true},
		webserver.InfoToast("Succès", "L'avis a été supprimé."))
}
