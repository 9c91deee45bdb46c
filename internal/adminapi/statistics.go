package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
)

// OrderPoint one order on the sales chart
type OrderPoint struct {
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// StockPoint stock level of one product
type StockPoint struct {
	Category string `json:"category"`
	Stock    int    `json:"stock"`
}

// CategoryStock stock summed by category
type CategoryStock struct {
	Category string `json:"category"`
	Stock    int64  `json:"stock"`
}

// RevenueSummary descriptive statistics over order totals
type RevenueSummary struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// Statistics payload of the statistics page
type Statistics struct {
	Orders     []OrderPoint    `json:"orders"`
	Products   []StockPoint    `json:"products"`
	ByCategory []CategoryStock `json:"stock_by_category"`
	Revenue    RevenueSummary  `json:"revenue"`
}

func registerStatisticsRoutes() {
	webserver.ApiGET("/statistics", getStatistics)
}

// CollectStatistics runs the statistics queries concurrently.
func CollectStatistics(ctx context.Context, db *gorm.DB) (*Statistics, error) {
	st := &Statistics{Orders: []OrderPoint{}, Products: []StockPoint{}, ByCategory: []CategoryStock{}}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.WithContext(ctx).Model(&domain.Order{}).
			Select("total_amount", "created_at").Order("created_at ASC").Find(&st.Orders).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&domain.Product{}).
			Select("category", "stock").Find(&st.Products).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&domain.Product{}).
			Select("category, SUM(stock) AS stock").Group("category").Order("category ASC").
			Scan(&st.ByCategory).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	st.Revenue = summarizeRevenue(st.Orders)
	return st, nil
}

func summarizeRevenue(orders []OrderPoint) RevenueSummary {
	summary := RevenueSummary{Count: len(orders)}
	if len(orders) == 0 {
		return summary
	}
	data := make(stats.Float64Data, 0, len(orders))
	sum := decimal.Zero
	for _, o := range orders {
		data = append(data, o.TotalAmount)
		sum = sum.Add(decimal.NewFromFloat(o.TotalAmount))
	}
	summary.Sum = sum.Round(2).InexactFloat64()
	if v, err := data.Mean(); err == nil {
		summary.Mean = round2(v)
	}
	if v, err := data.Median(); err == nil {
		summary.Median = round2(v)
	}
	if v, err := data.Percentile(90); err == nil {
		summary.P90 = round2(v)
	}
	return summary
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func getStatistics(c echo.Context) error {
	st, err := CollectStatistics(c.Request().Context(), GetAppContext(c).DB())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute statistics", err.Error())
	}
	return ok(c, st)
}
