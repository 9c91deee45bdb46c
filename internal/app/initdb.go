package app

import (
	"errors"
	"strings"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SuperEmail           = "admin@boutique.local"
	superDefaultPassword = "boutique"
)

func (a *Application) checkSuper() {
	var account domain.Account
	err := a.gormDB.Where("email = ?", SuperEmail).First(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashed, err := common.HashPassword(superDefaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		account = domain.Account{
			Email:     SuperEmail,
			Password:  hashed,
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}
		name, username, role := "Administrator", "admin", domain.RoleAdmin
		err = a.gormDB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
			if err := tx.Create(&domain.Profile{ID: account.ID, FullName: &name, Username: &username, Role: &role}).Error; err != nil {
				return err
			}
			return tx.Create(&domain.UserRole{UserID: account.ID, Role: domain.RoleAdmin}).Error
		})
		if err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("email", SuperEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(account.Password) == ""
	resetStatus := !strings.EqualFold(account.Status, common.ENABLED)

	var roleCount int64
	a.gormDB.Model(&domain.UserRole{}).Where("user_id = ? AND role = ?", account.ID, domain.RoleAdmin).Count(&roleCount)
	resetRole := roleCount == 0

	if !resetPassword && !resetStatus && !resetRole {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hashed, err := common.HashPassword(superDefaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		updates["password"] = hashed
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}
	if err := a.gormDB.Model(&domain.Account{}).Where("id = ?", account.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}
	if resetRole {
		if err := a.gormDB.Create(&domain.UserRole{UserID: account.ID, Role: domain.RoleAdmin}).Error; err != nil {
			zap.L().Error("failed to restore super admin role", zap.Error(err))
			return
		}
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("email", SuperEmail),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("statusEnabled", resetStatus),
		zap.Bool("roleRestored", resetRole))
}

func (a *Application) checkSettings() {
	schemas, err := LoadConfigSchemas()
	if err != nil {
		zap.L().Error("failed to load config schemas", zap.Error(err))
		return
	}

	for _, schema := range schemas {
		var count int64
		a.gormDB.Model(&domain.SiteSetting{}).Where("key = ?", schema.Key).Count(&count)
		if count > 0 {
			continue
		}
		desc := schema.Description
		if err := a.gormDB.Create(&domain.SiteSetting{
			Key:         schema.Key,
			Value:       schema.Default,
			Description: &desc,
		}).Error; err != nil {
			zap.L().Error("failed to create default setting", zap.String("key", schema.Key), zap.Error(err))
			continue
		}
		zap.L().Info("initialized setting",
			zap.String("key", schema.Key),
			zap.String("default", schema.Default))
	}
}

// checkCategories creates the starter catalog categories on an empty store
func (a *Application) checkCategories() {
	var count int64
	a.gormDB.Model(&domain.ProductCategory{}).Count(&count)
	if count > 0 {
		return
	}
	defaults := []string{"Vêtements", "Chaussures", "Accessoires", "Maison"}
	for _, name := range defaults {
		if err := a.gormDB.Create(&domain.ProductCategory{Name: name}).Error; err != nil {
			zap.L().Error("failed to create default category", zap.String("name", name), zap.Error(err))
		}
	}
	zap.L().Info("initialized default categories", zap.Int("count", len(defaults)))
}

func (a *Application) checkShippingRates() {
	var count int64
	a.gormDB.Model(&domain.ShippingRate{}).Count(&count)
	if count > 0 {
		return
	}
	defaults := []domain.ShippingRate{
		{Name: "Standard", Price: 4.9, EstimatedDays: 5},
		{Name: "Express", Price: 9.9, EstimatedDays: 2},
	}
	for _, r := range defaults {
		r := r
		if err := a.gormDB.Create(&r).Error; err != nil {
			zap.L().Error("failed to create default shipping rate", zap.String("name", r.Name), zap.Error(err))
		}
	}
}

// checkSchedulers initializes default scheduled tasks
func (a *Application) checkSchedulers() {
	defaultSchedulers := []domain.ShopScheduler{
		{
			Name:     "Expire promotions",
			TaskType: TaskExpirePromotions,
			Interval: 600, // 10 minutes
			Status:   common.ENABLED,
			Remark:   "Deactivates promotions whose end date has passed",
		},
		{
			Name:     "Low stock alert",
			TaskType: TaskLowStockAlert,
			Interval: 3600, // 1 hour
			Status:   common.ENABLED,
			Remark:   "Notifies administrators about products running out of stock",
		},
		{
			Name:     "Cleanup carts",
			TaskType: TaskCleanupCarts,
			Interval: 86400, // 1 day
			Status:   common.ENABLED,
			Remark:   "Removes abandoned cart rows",
		},
	}

	for _, sched := range defaultSchedulers {
		var count int64
		a.gormDB.Model(&domain.ShopScheduler{}).
			Where("task_type = ?", sched.TaskType).
			Count(&count)

		if count == 0 {
			sched.NextRunAt = time.Now().Add(time.Duration(sched.Interval) * time.Second)
			if err := a.gormDB.Create(&sched).Error; err != nil {
				zap.L().Error("failed to create default scheduler",
					zap.String("name", sched.Name),
					zap.Error(err))
			} else {
				zap.L().Info("initialized default scheduler",
					zap.String("name", sched.Name),
					zap.String("task_type", sched.TaskType))
			}
		}
	}
}
