package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/mailer"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/internal/shop"
	"github.com/boutiqueapp/boutique/pkg/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	TaskExpirePromotions = "expire_promotions"
	TaskLowStockAlert    = "low_stock_alert"
	TaskCleanupCarts     = "cleanup_carts"
)

// TaskTypes lists the scheduler task types the runner understands
var TaskTypes = []string{TaskExpirePromotions, TaskLowStockAlert, TaskCleanupCarts}

const (
	maxStockThreshold = 100000
	maxRetentionDays  = 3650
)

// IsTaskType reports whether t is one of TaskTypes.
func IsTaskType(t string) bool {
	for _, v := range TaskTypes {
		if v == t {
			return true
		}
	}
	return false
}

// TaskParams per-scheduler overrides of the shop settings, stored as JSON in
// ShopScheduler.Config. Zero values fall back to the site settings.
type TaskParams struct {
	Threshold     int `json:"threshold,omitempty"`      // low_stock_alert
	RetentionDays int `json:"retention_days,omitempty"` // cleanup_carts
}

var strictJSON = jsoniter.Config{DisallowUnknownFields: true}.Froze()

// ParseTaskParams decodes config and checks that it only carries the
// parameters taskType accepts.
func ParseTaskParams(taskType, config string) (TaskParams, error) {
	var p TaskParams
	if !IsTaskType(taskType) {
		return p, errors.Errorf("unsupported task type %q", taskType)
	}
	if strings.TrimSpace(config) == "" {
		return p, nil
	}
	if err := strictJSON.UnmarshalFromString(config, &p); err != nil {
		return p, errors.Wrap(err, "invalid config")
	}
	switch taskType {
	case TaskExpirePromotions:
		if p != (TaskParams{}) {
			return p, errors.New("expire_promotions takes no parameters")
		}
	case TaskLowStockAlert:
		if p.RetentionDays != 0 {
			return p, errors.New("retention_days does not apply to low_stock_alert")
		}
		if p.Threshold < 0 || p.Threshold > maxStockThreshold {
			return p, errors.Errorf("threshold must be between 0 and %d", maxStockThreshold)
		}
	case TaskCleanupCarts:
		if p.Threshold != 0 {
			return p, errors.New("threshold does not apply to cleanup_carts")
		}
		if p.RetentionDays < 0 || p.RetentionDays > maxRetentionDays {
			return p, errors.Errorf("retention_days must be between 0 and %d", maxRetentionDays)
		}
	}
	return p, nil
}

// StartSchedulerService runs enabled schedulers periodically
func (a *Application) StartSchedulerService(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.runSchedulers(ctx)
			}
		}
	}()
}

// runSchedulers executes enabled schedulers that are due
func (a *Application) runSchedulers(ctx context.Context) {
	var schedulers []domain.ShopScheduler
	if err := a.gormDB.WithContext(ctx).Where("status = ?", common.ENABLED).Find(&schedulers).Error; err != nil {
		zap.L().Error("load schedulers failed", zap.String("namespace", "scheduler"), zap.Error(err))
		return
	}
	now := time.Now()
	for i := range schedulers {
		sched := &schedulers[i]
		if sched.NextRunAt.IsZero() || !now.Before(sched.NextRunAt) {
			a.runScheduler(ctx, sched)
		}
	}
}

// RunSchedulerNow triggers a scheduler execution immediately by ID
func (a *Application) RunSchedulerNow(id int64) error {
	var sched domain.ShopScheduler
	if err := a.gormDB.Where("id = ?", id).First(&sched).Error; err != nil {
		return err
	}
	return a.runScheduler(context.Background(), &sched)
}

func (a *Application) runScheduler(ctx context.Context, sched *domain.ShopScheduler) error {
	var msg string
	params, err := ParseTaskParams(sched.TaskType, sched.Config)
	if err == nil {
		msg, err = a.runTask(ctx, sched.TaskType, params)
	}

	result := "success"
	if err != nil {
		result = "failed"
		msg = err.Error()
		zap.L().Error("scheduler run failed",
			zap.String("namespace", "scheduler"),
			zap.String("name", sched.Name),
			zap.Error(err))
	} else {
		zap.L().Info("scheduler run",
			zap.String("namespace", "scheduler"),
			zap.String("name", sched.Name),
			zap.String("message", msg))
	}

	now := time.Now()
	interval := sched.Interval
	if interval <= 0 {
		interval = 60
	}
	uerr := a.gormDB.Model(&domain.ShopScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at":  now,
		"next_run_at":  now.Add(time.Duration(interval) * time.Second),
		"last_result":  result,
		"last_message": msg,
	}).Error
	if uerr != nil {
		zap.L().Error("scheduler state update failed",
			zap.String("namespace", "scheduler"),
			zap.String("name", sched.Name),
			zap.Error(uerr))
	}
	return err
}

func (a *Application) runTask(ctx context.Context, taskType string, params TaskParams) (string, error) {
	if taskType == TaskExpirePromotions {
		return a.runExpirePromotions(ctx)
	}
	settings, err := a.ShopSettings()
	if err != nil {
		return "", err
	}
	switch taskType {
	case TaskLowStockAlert:
		if params.Threshold > 0 {
			settings.Shop.LowStockThreshold = params.Threshold
		}
		return a.runLowStockAlert(ctx, settings)
	case TaskCleanupCarts:
		if params.RetentionDays > 0 {
			settings.Shop.CartRetentionDays = params.RetentionDays
		}
		return a.runCleanupCarts(ctx, settings)
	}
	return "", errors.Errorf("unsupported task type %q", taskType)
}

// runExpirePromotions deactivates promotions past their end date
func (a *Application) runExpirePromotions(ctx context.Context) (string, error) {
	res := a.gormDB.WithContext(ctx).Model(&domain.Promotion{}).
		Where("active = ? AND end_date < ?", true, time.Now()).
		Update("active", false)
	if res.Error != nil {
		return "", res.Error
	}
	return fmt.Sprintf("%d promotions expired", res.RowsAffected), nil
}

// runLowStockAlert notifies admins once per product below the stock threshold
func (a *Application) runLowStockAlert(ctx context.Context, settings ShopSettings) (string, error) {
	threshold := settings.Shop.LowStockThreshold
	if threshold <= 0 {
		return "low stock alert disabled", nil
	}
	db := a.gormDB.WithContext(ctx)

	var products []domain.Product
	if err := db.Where("stock < ?", threshold).Order("stock ASC").Find(&products).Error; err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "no product below threshold", nil
	}

	var adminIDs []int64
	if err := db.Model(&domain.UserRole{}).Where("role = ?", domain.RoleAdmin).Distinct().Pluck("user_id", &adminIDs).Error; err != nil {
		return "", err
	}
	var legacy []int64
	if err := db.Model(&domain.Profile{}).Where("role = ?", domain.RoleAdmin).Pluck("id", &legacy).Error; err != nil {
		return "", err
	}
	adminIDs = mergeIDs(adminIDs, legacy)

	created := 0
	for _, p := range products {
		title := "Stock faible : " + p.Name
		for _, uid := range adminIDs {
			var count int64
			err := db.Model(&domain.Notification{}).
				Where("user_id = ? AND title = ? AND read = ?", uid, title, false).
				Count(&count).Error
			if err != nil {
				return "", err
			}
			if count > 0 {
				continue
			}
			if err := db.Create(&domain.Notification{
				UserID:  uid,
				Title:   title,
				Message: fmt.Sprintf("Il reste %d unité(s) de %s.", p.Stock, p.Name),
				Type:    "low_stock",
			}).Error; err != nil {
				return "", err
			}
			created++
		}
	}

	if created > 0 && a.mailer.Enabled() && len(adminIDs) > 0 {
		var emails []string
		if err := db.Model(&domain.Account{}).Where("id IN ?", adminIDs).Pluck("email", &emails).Error; err != nil {
			return "", err
		}
		subject, body := mailer.LowStockAlert(mailer.Locale(settings.Site.Locale), settings.Site.Name, settings.Site.Currency, products)
		sent, failed, err := a.mailer.SendBulk(ctx, emails, subject, body)
		if err != nil && !errors.Is(err, mailer.ErrMailDisabled) {
			zap.L().Warn("low stock mail failed", zap.String("namespace", "scheduler"), zap.Error(err))
		}
		zap.L().Info("low stock mail", zap.String("namespace", "scheduler"), zap.Int("sent", sent), zap.Int("failed", failed))
	}
	return fmt.Sprintf("%d products below %d, %d notifications", len(products), threshold, created), nil
}

// runCleanupCarts removes cart rows older than the retention setting
func (a *Application) runCleanupCarts(ctx context.Context, settings ShopSettings) (string, error) {
	days := settings.Shop.CartRetentionDays
	if days <= 0 {
		return "cart cleanup disabled", nil
	}
	var pub realtime.Publisher
	if a.hub != nil {
		pub = a.hub
	}
	n, err := shop.NewGormCartService(a.gormDB, pub).Expire(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d cart rows removed", n), nil
}

func mergeIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, list := range [][]int64{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
