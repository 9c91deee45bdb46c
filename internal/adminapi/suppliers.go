package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
)

type supplierPayload struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	ContactName string `json:"contact_name" validate:"omitempty,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=50"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
}

type supplierUpdatePayload struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	ContactName *string `json:"contact_name" validate:"omitempty,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// registerSupplierRoutes registers supplier CRUD routes
func registerSupplierRoutes() {
	webserver.ApiGET("/suppliers", listSuppliers)
	webserver.ApiGET("/suppliers/:id", getSupplier)
	webserver.ApiPOST("/suppliers", createSupplier)
	webserver.ApiPUT("/suppliers/:id", updateSupplier)
	webserver.ApiDELETE("/suppliers/:id", deleteSupplier)
}

func listSuppliers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Supplier{})
	db = whereLike(db, strings.TrimSpace(c.QueryParam("q")), "name", "contact_name")
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query suppliers", err.Error())
	}

	var suppliers []domain.Supplier
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&suppliers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query suppliers", err.Error())
	}

	return paged(c, suppliers, total, page, pageSize)
}

func getSupplier(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid supplier ID", nil)
	}

	var s domain.Supplier
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SUPPLIER_NOT_FOUND", "Supplier not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query supplier", err.Error())
	}

	return ok(c, s)
}

func createSupplier(c echo.Context) error {
	var payload supplierPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse supplier", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if payload.Status == "" {
		payload.Status = "active"
	}

	s := domain.Supplier{
		Name:        payload.Name,
		ContactName: common.StringPtr(payload.ContactName),
		Email:       common.StringPtr(payload.Email),
		Phone:       common.StringPtr(payload.Phone),
		Address:     common.StringPtr(payload.Address),
		Status:      payload.Status,
	}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return webserver.FailWithToast(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create supplier",
			"Impossible d'ajouter le fournisseur")
	}
	logOperation(c, "create_supplier", fmt.Sprintf("create supplier %s (%d)", s.Name, s.ID))
	return webserver.OKWithToast(c, http.StatusCreated, s, webserver.InfoToast("Succès", "Fournisseur ajouté avec succès."))
}

func updateSupplier(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid supplier ID", nil)
	}

	var s domain.Supplier
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SUPPLIER_NOT_FOUND", "Supplier not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query supplier", err.Error())
	}

	var payload supplierUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse supplier", err.Error())
	}
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload", map[string]string{"Name": "required"})
		}
		payload.Name = &name
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	updates := map[string]interface{}{}
	if payload.Name != nil {
		updates["name"] = *payload.Name
	}
	if payload.ContactName != nil {
		updates["contact_name"] = common.StringPtr(*payload.ContactName)
	}
	if payload.Email != nil {
		updates["email"] = common.StringPtr(*payload.Email)
	}
	if payload.Phone != nil {
		updates["phone"] = common.StringPtr(*payload.Phone)
	}
	if payload.Address != nil {
		updates["address"] = common.StringPtr(*payload.Address)
	}
	if payload.Status != nil {
		updates["status"] = *payload.Status
	}
	if len(updates) > 0 {
		if err := GetDB(c).Model(&s).Updates(updates).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update supplier", err.Error())
		}
	}
	GetDB(c).Where("id = ?", id).First(&s)
	logOperation(c, "update_supplier", fmt.Sprintf("update supplier %s (%d)", s.Name, s.ID))
	return ok(c, s)
}

func deleteSupplier(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid supplier ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Supplier{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete supplier", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "SUPPLIER_NOT_FOUND", "Supplier not found", nil)
	}
	logOperation(c, "delete_supplier", fmt.Sprintf("delete supplier %d", id))
	return c.NoContent(http.StatusNoContent)
}
