package shop

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/pkg/common"
)

func intPtr(v int) *int { return &v }

func TestCheckValidity(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	base := func() *domain.Promotion {
		return &domain.Promotion{
			Active:          true,
			StartDate:       now.Add(-24 * time.Hour),
			EndDate:         now.Add(24 * time.Hour),
			MinimumPurchase: 50,
		}
	}
	tests := []struct {
		name     string
		mutate   func(p *domain.Promotion)
		subtotal float64
		valid    bool
	}{
		{name: "valid", mutate: func(*domain.Promotion) {}, subtotal: 60, valid: true},
		{name: "inactive", mutate: func(p *domain.Promotion) { p.Active = false }, subtotal: 60},
		{name: "not started", mutate: func(p *domain.Promotion) { p.StartDate = now.Add(time.Hour) }, subtotal: 60},
		{name: "expired", mutate: func(p *domain.Promotion) { p.EndDate = now.Add(-time.Hour) }, subtotal: 60},
		{name: "usage exhausted", mutate: func(p *domain.Promotion) { p.UsageLimit = intPtr(2); p.TimesUsed = 2 }, subtotal: 60},
		{name: "usage left", mutate: func(p *domain.Promotion) { p.UsageLimit = intPtr(2); p.TimesUsed = 1 }, subtotal: 60, valid: true},
		{name: "below minimum", mutate: func(*domain.Promotion) {}, subtotal: 49.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			p := base()
			tt.mutate(p)
			err := CheckValidity(p, tt.subtotal, now)
			if tt.valid {
				c.Assert(err, qt.IsNil)
			} else {
				c.Assert(errors.Is(err, ErrPromotionInvalid), qt.IsTrue)
			}
		})
	}
}

func TestPrice(t *testing.T) {
	lines := []Line{
		{ProductID: 1, UnitPrice: 10, Quantity: 2},
		{ProductID: 2, UnitPrice: 5.5, Quantity: 1},
	}
	tests := []struct {
		name  string
		promo *domain.Promotion
		want  Pricing
	}{
		{name: "no promotion", want: Pricing{Subtotal: 25.5, Shipping: 4.9, Total: 30.4}},
		{
			name:  "percentage on all lines",
			promo: &domain.Promotion{PromotionType: domain.PromotionPercentage, DiscountPercentage: intPtr(10)},
			want:  Pricing{Subtotal: 25.5, Discount: 2.55, Shipping: 4.9, Total: 27.85},
		},
		{
			name:  "percentage on one product",
			promo: &domain.Promotion{PromotionType: domain.PromotionPercentage, DiscountPercentage: intPtr(50), ProductID: common.NewNullID(2)},
			want:  Pricing{Subtotal: 25.5, Discount: 2.75, Shipping: 4.9, Total: 27.65},
		},
		{
			name:  "fixed capped by eligible amount",
			promo: &domain.Promotion{PromotionType: domain.PromotionFixed, DiscountPercentage: intPtr(8), ProductID: common.NewNullID(2)},
			want:  Pricing{Subtotal: 25.5, Discount: 5.5, Shipping: 4.9, Total: 24.9},
		},
		{
			name:  "free shipping",
			promo: &domain.Promotion{PromotionType: domain.PromotionFreeShipping},
			want:  Pricing{Subtotal: 25.5, Total: 25.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qt.New(t).Assert(Price(tt.promo, lines, 4.9), qt.DeepEquals, tt.want)
		})
	}
}

func TestNormalizeInput(t *testing.T) {
	c := qt.New(t)

	p, err := NormalizeInput(PromotionInput{
		Name:               "Summer",
		PromotionType:      domain.PromotionPercentage,
		DiscountPercentage: "15",
		StartDate:          "2024-06-01",
		EndDate:            "2024-06-30 23:59",
		Code:               "summer24",
		MinimumPurchase:    "0",
		UsageLimit:         "",
		ProductID:          "",
	}, time.UTC)
	c.Assert(err, qt.IsNil)
	c.Assert(*p.DiscountPercentage, qt.Equals, 15)
	c.Assert(p.UsageLimit, qt.IsNil)
	c.Assert(p.ProductID.Valid, qt.IsFalse)
	c.Assert(*p.Code, qt.Equals, "SUMMER24")
	c.Assert(p.Active, qt.IsTrue)
	c.Assert(p.StartDate.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)), qt.IsTrue)

	p, err = NormalizeInput(PromotionInput{
		Name:               "Ship",
		PromotionType:      domain.PromotionFreeShipping,
		DiscountPercentage: "20",
		StartDate:          "2024-06-01",
		EndDate:            "2024-07-01",
		MinimumPurchase:    30.0,
		UsageLimit:         100.0,
		ProductID:          "42",
	}, time.UTC)
	c.Assert(err, qt.IsNil)
	c.Assert(p.DiscountPercentage, qt.IsNil)
	c.Assert(p.Code, qt.IsNil)
	c.Assert(p.MinimumPurchase, qt.Equals, 30.0)
	c.Assert(*p.UsageLimit, qt.Equals, 100)
	c.Assert(p.ProductID, qt.Equals, common.NewNullID(42))

	_, err = NormalizeInput(PromotionInput{
		Name: "Bad", PromotionType: domain.PromotionPercentage,
		StartDate: "2024-06-01", EndDate: "2024-07-01",
	}, time.UTC)
	c.Assert(err, qt.ErrorMatches, "discount_percentage is required")

	_, err = NormalizeInput(PromotionInput{
		Name: "Bad", PromotionType: domain.PromotionFixed, DiscountPercentage: 5,
		StartDate: "2024-07-01", EndDate: "2024-06-01",
	}, time.UTC)
	c.Assert(err, qt.ErrorMatches, "end_date before start_date")
}

func TestNormalizeInputRejectsFractions(t *testing.T) {
	c := qt.New(t)
	base := PromotionInput{
		Name: "Half", PromotionType: domain.PromotionPercentage,
		StartDate: "2024-06-01", EndDate: "2024-07-01",
	}

	for _, v := range []interface{}{12.5, "12.5", "abc"} {
		in := base
		in.DiscountPercentage = v
		_, err := NormalizeInput(in, time.UTC)
		c.Assert(err, qt.ErrorMatches, "invalid discount_percentage: .*", qt.Commentf("%v", v))
	}

	in := base
	in.DiscountPercentage = 12.0
	in.UsageLimit = "2.5"
	_, err := NormalizeInput(in, time.UTC)
	c.Assert(err, qt.ErrorMatches, "invalid usage_limit: .*")

	in.UsageLimit = "3"
	p, err := NormalizeInput(in, time.UTC)
	c.Assert(err, qt.IsNil)
	c.Assert(*p.DiscountPercentage, qt.Equals, 12)
	c.Assert(*p.UsageLimit, qt.Equals, 3)
}
