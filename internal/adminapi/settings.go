package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
)

type settingPayload struct {
	Key         string `json:"key" validate:"required,min=1,max=128"`
	Value       string `json:"value" validate:"max=4000"`
	Description string `json:"description" validate:"max=1000"`
}

type settingUpdatePayload struct {
	Value       *string `json:"value" validate:"omitempty,max=4000"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func registerSettingsRoutes() {
	webserver.ApiGET("/settings", listSettings)
	webserver.ApiPOST("/settings", createSetting)
	webserver.ApiPUT("/settings/:id", updateSetting)
	webserver.ApiDELETE("/settings/:id", deleteSetting)
}

func reloadSettings(c echo.Context) {
	if err := GetAppContext(c).ReloadSettings(); err != nil {
		zap.L().Error("reload settings failed", zap.String("namespace", "adminapi"), zap.Error(err))
	}
}

func listSettings(c echo.Context) error {
	var rows []domain.SiteSetting
	if err := GetDB(c).Order("key ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query settings", err.Error())
	}
	return ok(c, rows)
}

func createSetting(c echo.Context) error {
	var payload settingPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse setting", err.Error())
	}
	payload.Key = strings.TrimSpace(payload.Key)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	var count int64
	GetDB(c).Model(&domain.SiteSetting{}).Where("key = ?", payload.Key).Count(&count)
	if count > 0 {
		return webserver.FailWithToast(c, http.StatusConflict, "KEY_EXISTS", "Setting key already exists",
			"Ce paramètre existe déjà")
	}
	s := domain.SiteSetting{Key: payload.Key, Value: payload.Value, Description: common.StringPtr(payload.Description)}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create setting", err.Error())
	}
	reloadSettings(c)
	logOperation(c, "create_setting", "create setting "+s.Key)
	return webserver.OKWithToast(c, http.StatusCreated, s, webserver.InfoToast("Succès", "Paramètre ajouté avec succès."))
}

func updateSetting(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid setting ID", nil)
	}
	var s domain.SiteSetting
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Setting not found", nil)
	}
	var payload settingUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse setting", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	updates := map[string]interface{}{}
	if payload.Value != nil {
		updates["value"] = *payload.Value
	}
	if payload.Description != nil {
		updates["description"] = common.StringPtr(*payload.Description)
	}
	if len(updates) > 0 {
		if err := GetDB(c).Model(&s).Updates(updates).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update setting", err.Error())
		}
	}
	GetDB(c).Where("id = ?", id).First(&s)
	reloadSettings(c)
	logOperation(c, "update_setting", fmt.Sprintf("update setting %s", s.Key))
	return ok(c, s)
}

func deleteSetting(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid setting ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.SiteSetting{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete setting", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Setting not found", nil)
	}
	reloadSettings(c)
	logOperation(c, "delete_setting", fmt.Sprintf("delete setting %d", id))
	return c.NoContent(http.StatusNoContent)
}
