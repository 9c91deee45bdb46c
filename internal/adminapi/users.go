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
)

type rolePayload struct {
	UserID int64  `json:"user_id,string" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=admin moderator user"`
}

type profileRolePayload struct {
	Role string `json:"role" validate:"required,oneof=admin moderator user"`
}

func registerUserRoutes() {
	webserver.ApiGET("/users", listUsers)
	webserver.ApiPUT("/users/:id/role", updateUserRole)
	webserver.ApiGET("/roles", listRoles)
	webserver.ApiPOST("/roles", grantRole)
	webserver.ApiDELETE("/roles/:user_id/:role", revokeRole)
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Profile{})
	db = whereLike(db, strings.TrimSpace(c.QueryParam("q")), "full_name", "username")

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}
	var rows []domain.Profile
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

// updateUserRole sets the legacy role column of a profile.
func updateUserRole(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	var payload profileRolePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	res := GetDB(c).Model(&domain.Profile{}).Where("id = ?", id).Update("role", payload.Role)
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update role", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	}
	GetAppContext(c).Auth().NotifyUserUpdated(id)
	logOperation(c, "update_user_role", fmt.Sprintf("set profile role of %d to %s", id, payload.Role))
	return webserver.OKWithToast(c, http.StatusOK, map[string]string{"role": payload.Role},
		webserver.InfoToast("Succès", "Le rôle de l'utilisateur a été mis à jour."))
}

func listRoles(c echo.Context) error {
	var rows []domain.Profile
	if err := GetDB(c).Preload("Roles").Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query roles", err.Error())
	}
	return ok(c, rows)
}

func grantRole(c echo.Context) error {
	var payload rolePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	db := GetDB(c)
	var profile domain.Profile
	if err := db.Where("id = ?", payload.UserID).First(&profile).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	var count int64
	db.Model(&domain.UserRole{}).Where("user_id = ? AND role = ?", payload.UserID, payload.Role).Count(&count)
	if count > 0 {
		return webserver.FailWithToast(c, http.StatusConflict, "ROLE_EXISTS", "User already has this role",
			"Cet utilisateur a déjà ce rôle")
	}
	role := domain.UserRole{UserID: payload.UserID, Role: payload.Role}
	if err := db.Create(&role).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to grant role", err.Error())
	}
	GetAppContext(c).Auth().NotifyUserUpdated(payload.UserID)
	logOperation(c, "grant_role", fmt.Sprintf("grant %s to %d", payload.Role, payload.UserID))
	return webserver.OKWithToast(c, http.StatusCreated, role, webserver.InfoToast("Succès", "Rôle ajouté avec succès."))
}

func revokeRole(c echo.Context) error {
	uid, err := parseIDParam(c, "user_id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	role := c.Param("role")
	res := GetDB(c).Where("user_id = ? AND role = ?", uid, role).Delete(&domain.UserRole{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to revoke role", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Role not found", nil)
	}
	GetAppContext(c).Auth().NotifyUserUpdated(uid)
	logOperation(c, "revoke_role", fmt.Sprintf("revoke %s from %d", role, uid))
	return c.NoContent(http.StatusNoContent)
}
