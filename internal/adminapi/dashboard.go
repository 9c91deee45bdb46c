package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

// Dashboard counters of the admin home page
type Dashboard struct {
	Products      int64   `json:"products"`
	Orders        int64   `json:"orders"`
	PendingOrders int64   `json:"pending_orders"`
	Users         int64   `json:"users"`
	Reviews       int64   `json:"reviews"`
	Revenue       float64 `json:"revenue"`
}

func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard", getDashboard)
}

func getDashboard(c echo.Context) error {
	var d Dashboard
	db := GetAppContext(c).DB()
	g, ctx := errgroup.WithContext(c.Request().Context())
	count := func(model interface{}, dst *int64, where ...interface{}) {
		g.Go(func() error {
			q := db.WithContext(ctx).Model(model)
			if len(where) > 0 {
				q = q.Where(where[0], where[1:]...)
			}
			return q.Count(dst).Error
		})
	}
	count(&domain.Product{}, &d.Products)
	count(&domain.Order{}, &d.Orders)
	count(&domain.Order{}, &d.PendingOrders, "status = ?", domain.OrderPending)
	count(&domain.Profile{}, &d.Users)
	count(&domain.Review{}, &d.Reviews)
	g.Go(func() error {
		return db.WithContext(ctx).Model(&domain.Order{}).
			Where("status != ?", domain.OrderCancelled).
			Select("COALESCE(SUM(total_amount), 0)").Scan(&d.Revenue).Error
	})
	if err := g.Wait(); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load dashboard", err.Error())
	}
	d.Revenue = round2(d.Revenue)
	return ok(c, d)
}
