package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
)

type schedulerPayload struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	TaskType string `json:"task_type" validate:"required"`
	Interval int    `json:"interval" validate:"required,min=10"`
	Status   string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Config   string `json:"config" validate:"omitempty,max=2000"`
	Remark   string `json:"remark" validate:"omitempty,max=500"`
}

// schedulerUpdatePayload holds the fields to change; the merged scheduler
// goes through the same checks as a new one.
type schedulerUpdatePayload struct {
	Name     *string `json:"name"`
	TaskType *string `json:"task_type"`
	Interval *int    `json:"interval"`
	Status   *string `json:"status"`
	Config   *string `json:"config"`
	Remark   *string `json:"remark"`
}

func (u schedulerUpdatePayload) merge(s domain.ShopScheduler) schedulerPayload {
	p := schedulerPayload{
		Name: s.Name, TaskType: s.TaskType, Interval: s.Interval,
		Status: s.Status, Config: s.Config, Remark: s.Remark,
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.TaskType != nil {
		p.TaskType = *u.TaskType
	}
	if u.Interval != nil {
		p.Interval = *u.Interval
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Config != nil {
		p.Config = *u.Config
	}
	if u.Remark != nil {
		p.Remark = *u.Remark
	}
	return p
}

var schedulerSortColumns = map[string]string{
	"name":        "name",
	"task_type":   "task_type",
	"status":      "status",
	"next_run_at": "next_run_at",
	"created_at":  "created_at",
}

func registerSchedulerRoutes() {
	webserver.ApiGET("/schedulers", listSchedulers)
	webserver.ApiGET("/schedulers/task-types", listTaskTypes)
	webserver.ApiGET("/schedulers/:id", getScheduler)
	webserver.ApiPOST("/schedulers", createScheduler)
	webserver.ApiPUT("/schedulers/:id", updateScheduler)
	webserver.ApiDELETE("/schedulers/:id", deleteScheduler)
	webserver.ApiPOST("/schedulers/:id/run", runScheduler)
}

// checkScheduler validates p and normalizes its task config. It writes the
// error response itself and returns false when p is rejected.
func checkScheduler(c echo.Context, p *schedulerPayload) (bool, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.TaskType = strings.TrimSpace(p.TaskType)
	if err := c.Validate(p); err != nil {
		return false, handleValidationError(c, err)
	}
	if !app.IsTaskType(p.TaskType) {
		return false, fail(c, http.StatusBadRequest, "INVALID_TASK_TYPE", "Unknown task type",
			map[string]interface{}{"task_type": p.TaskType, "allowed": app.TaskTypes})
	}
	params, err := app.ParseTaskParams(p.TaskType, p.Config)
	if err != nil {
		return false, webserver.FailWithToast(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(),
			"Paramètres de tâche invalides : "+err.Error())
	}
	p.Config = ""
	if params != (app.TaskParams{}) {
		raw, err := jsoniter.MarshalToString(params)
		if err != nil {
			return false, fail(c, http.StatusInternalServerError, "INVALID_CONFIG", "Failed to encode config", err.Error())
		}
		p.Config = raw
	}
	return true, nil
}

func schedulerNameTaken(db *gorm.DB, name string, exceptID int64) bool {
	var count int64
	db.Model(&domain.ShopScheduler{}).Where("name = ? AND id != ?", name, exceptID).Count(&count)
	return count > 0
}

func findScheduler(c echo.Context) (*domain.ShopScheduler, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}
	var s domain.ShopScheduler
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query scheduler", err.Error())
	}
	return &s, nil
}

func listTaskTypes(c echo.Context) error {
	return ok(c, app.TaskTypes)
}

func listSchedulers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.ShopScheduler{})
	db = whereLike(db, strings.TrimSpace(c.QueryParam("name")), "name")
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if taskType := strings.TrimSpace(c.QueryParam("task_type")); taskType != "" {
		db = db.Where("task_type = ?", taskType)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedulers", err.Error())
	}
	var rows []domain.ShopScheduler
	err := db.Order(sortOrder(c, schedulerSortColumns, "created_at")).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedulers", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getScheduler(c echo.Context) error {
	s, err := findScheduler(c)
	if s == nil {
		return err
	}
	return ok(c, s)
}

func createScheduler(c echo.Context) error {
	var payload schedulerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scheduler", err.Error())
	}
	if valid, err := checkScheduler(c, &payload); !valid {
		return err
	}
	if schedulerNameTaken(GetDB(c), payload.Name, 0) {
		return fail(c, http.StatusConflict, "NAME_EXISTS", "Scheduler name already exists", nil)
	}
	if payload.Status == "" {
		payload.Status = common.ENABLED
	}

	s := domain.ShopScheduler{
		Name:      payload.Name,
		TaskType:  payload.TaskType,
		Interval:  payload.Interval,
		Status:    payload.Status,
		Config:    payload.Config,
		Remark:    payload.Remark,
		NextRunAt: time.Now().Add(time.Duration(payload.Interval) * time.Second),
	}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create scheduler", err.Error())
	}
	logOperation(c, "create_scheduler", fmt.Sprintf("create scheduler %s (%s)", s.Name, s.TaskType))
	return webserver.OKWithToast(c, http.StatusCreated, s, webserver.InfoToast("Succès", "Tâche planifiée ajoutée."))
}

func updateScheduler(c echo.Context) error {
	s, err := findScheduler(c)
	if s == nil {
		return err
	}
	var payload schedulerUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scheduler", err.Error())
	}
	merged := payload.merge(*s)
	if valid, err := checkScheduler(c, &merged); !valid {
		return err
	}
	if merged.Name != s.Name && schedulerNameTaken(GetDB(c), merged.Name, s.ID) {
		return fail(c, http.StatusConflict, "NAME_EXISTS", "Scheduler name already exists", nil)
	}

	updates := map[string]interface{}{
		"name":      merged.Name,
		"task_type": merged.TaskType,
		"status":    merged.Status,
		"config":    merged.Config,
		"remark":    merged.Remark,
	}
	if merged.Interval != s.Interval {
		updates["interval"] = merged.Interval
		updates["next_run_at"] = time.Now().Add(time.Duration(merged.Interval) * time.Second)
	}
	if err := GetDB(c).Model(s).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update scheduler", err.Error())
	}
	if err := GetDB(c).Where("id = ?", s.ID).First(s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query scheduler", err.Error())
	}
	logOperation(c, "update_scheduler", fmt.Sprintf("update scheduler %s (%d)", s.Name, s.ID))
	return ok(c, s)
}

func deleteScheduler(c echo.Context) error {
	s, err := findScheduler(c)
	if s == nil {
		return err
	}
	if err := GetDB(c).Delete(s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete scheduler", err.Error())
	}
	logOperation(c, "delete_scheduler", fmt.Sprintf("delete scheduler %s (%d)", s.Name, s.ID))
	return c.NoContent(http.StatusNoContent)
}

// runScheduler runs the task now; a task failure is recorded on the
// scheduler and reported with 422.
func runScheduler(c echo.Context) error {
	s, err := findScheduler(c)
	if s == nil {
		return err
	}
	runErr := GetAppContext(c).RunSchedulerNow(s.ID)
	logOperation(c, "run_scheduler", fmt.Sprintf("run scheduler %s (%d)", s.Name, s.ID))
	if err := GetDB(c).Where("id = ?", s.ID).First(s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query scheduler", err.Error())
	}
	if runErr != nil {
		return fail(c, http.StatusUnprocessableEntity, "RUN_FAILED", "Scheduler run failed", s)
	}
	return ok(c, s)
}
