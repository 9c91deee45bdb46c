package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
)

type categoryPayload struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiPOST("/categories", createCategory)
	webserver.ApiPUT("/categories/:id", updateCategory)
	webserver.ApiDELETE("/categories/:id", deleteCategory)
}

func listCategories(c echo.Context) error {
	var rows []domain.ProductCategory
	if err := GetDB(c).Order("name ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	return ok(c, rows)
}

func categoryNameTaken(db *gorm.DB, name string, exceptID int64) (bool, error) {
	var count int64
	err := db.Model(&domain.ProductCategory{}).Where("name = ? AND id != ?", name, exceptID).Count(&count).Error
	return count > 0, err
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	taken, err := categoryNameTaken(GetDB(c), payload.Name, 0)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	if taken {
		return webserver.FailWithToast(c, http.StatusConflict, "NAME_EXISTS", "Category name already exists",
			"Cette catégorie existe déjà")
	}
	cat := domain.ProductCategory{Name: payload.Name, Description: common.StringPtr(payload.Description)}
	if err := GetDB(c).Create(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create category", err.Error())
	}
	logOperation(c, "create_category", "create category "+cat.Name)
	return webserver.OKWithToast(c, http.StatusCreated, cat, webserver.InfoToast("Succès", "Catégorie ajoutée avec succès."))
}

// updateCategory renames a category and the products filed under it.
func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var cat domain.ProductCategory
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&cat).Error; err != nil {
			return err
		}
		taken, err := categoryNameTaken(tx, payload.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return errNameTaken
		}
		if cat.Name != payload.Name {
			if err := tx.Model(&domain.Product{}).Where("category = ?", cat.Name).
				Update("category", payload.Name).Error; err != nil {
				return err
			}
		}
		cat.Name = payload.Name
		cat.Description = common.StringPtr(payload.Description)
		return tx.Model(&cat).Updates(map[string]interface{}{"name": cat.Name, "description": cat.Description}).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	case errors.Is(err, errNameTaken):
		return webserver.FailWithToast(c, http.StatusConflict, "NAME_EXISTS", "Category name already exists",
			"Cette catégorie existe déjà")
	case err != nil:
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update category", err.Error())
	}
	logOperation(c, "update_category", fmt.Sprintf("update category %d to %s", id, cat.Name))
	return ok(c, cat)
}

// deleteCategory refuses to remove a category still used by products.
func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	db := GetDB(c)
	var cat domain.ProductCategory
	if err := db.Where("id = ?", id).First(&cat).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	}
	var used int64
	if err := db.Model(&domain.Product{}).Where("category = ?", cat.Name).Count(&used).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	if used > 0 {
		return webserver.FailWithToast(c, http.StatusConflict, "CATEGORY_IN_USE",
			fmt.Sprintf("Category is used by %d products", used),
			"Impossible de supprimer une catégorie utilisée par des produits")
	}
	if err := db.Delete(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete category", err.Error())
	}
	logOperation(c, "delete_category", "delete category "+cat.Name)
	return c.NoContent(http.StatusNoContent)
}
