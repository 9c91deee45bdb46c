package shop

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Line is a priced cart line used for discount computation.
type Line struct {
	ProductID int64
	UnitPrice float64
	Quantity  int
}

// Pricing is the outcome of applying a promotion.
type Pricing struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount_amount"`
	Shipping float64 `json:"shipping_amount"`
	Total    float64 `json:"total_amount"`
}

// CheckValidity reports whether p can be applied to an order of subtotal at now.
func CheckValidity(p *domain.Promotion, subtotal float64, now time.Time) error {
	switch {
	case p == nil:
		return errors.Wrap(ErrPromotionInvalid, "unknown promotion")
	case !p.Active:
		return errors.Wrap(ErrPromotionInvalid, "promotion inactive")
	case now.Before(p.StartDate):
		return errors.Wrap(ErrPromotionInvalid, "promotion not started")
	case now.After(p.EndDate):
		return errors.Wrap(ErrPromotionInvalid, "promotion expired")
	case p.UsageLimit != nil && p.TimesUsed >= *p.UsageLimit:
		return errors.Wrap(ErrPromotionInvalid, "usage limit reached")
	case subtotal < p.MinimumPurchase:
		return errors.Wrapf(ErrPromotionInvalid, "minimum purchase %.2f not reached", p.MinimumPurchase)
	}
	return nil
}

// Price computes subtotal, discount and total for lines. p may be nil.
func Price(p *domain.Promotion, lines []Line, shipping float64) Pricing {
	subtotal := decimal.Zero
	eligible := decimal.Zero
	for _, l := range lines {
		amount := decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(amount)
		if p == nil || !p.ProductID.Valid || p.ProductID.Is(l.ProductID) {
			eligible = eligible.Add(amount)
		}
	}
	ship := decimal.NewFromFloat(shipping)
	discount := decimal.Zero
	if p != nil {
		value := decimal.Zero
		if p.DiscountPercentage != nil {
			value = decimal.NewFromInt(int64(*p.DiscountPercentage))
		}
		switch p.PromotionType {
		case domain.PromotionPercentage:
			discount = eligible.Mul(value).Div(decimal.NewFromInt(100))
		case domain.PromotionFixed:
			discount = decimal.Min(value, eligible)
		case domain.PromotionFreeShipping:
			ship = decimal.Zero
		}
	}
	discount = discount.Round(2)
	total := subtotal.Sub(discount).Add(ship)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Pricing{
		Subtotal: subtotal.Round(2).InexactFloat64(),
		Discount: discount.InexactFloat64(),
		Shipping: ship.Round(2).InexactFloat64(),
		Total:    total.Round(2).InexactFloat64(),
	}
}

// PromotionInput is the admin form payload. Numeric fields arrive either as
// numbers or as form strings where "" means unset.
type PromotionInput struct {
	Name               string      `json:"name" validate:"required,min=2,max=200"`
	Description        string      `json:"description" validate:"omitempty,max=2000"`
	PromotionType      string      `json:"promotion_type" validate:"required,oneof=percentage fixed free_shipping"`
	DiscountPercentage interface{} `json:"discount_percentage"`
	StartDate          string      `json:"start_date" validate:"required"`
	EndDate            string      `json:"end_date" validate:"required"`
	Code               string      `json:"code" validate:"omitempty,max=64"`
	MinimumPurchase    interface{} `json:"minimum_purchase"`
	UsageLimit         interface{} `json:"usage_limit"`
	ProductID          interface{} `json:"product_id"`
	Active             *bool       `json:"active"`
}

// NormalizeInput converts the admin form into a promotion row. The discount
// value is kept for percentage and fixed types only.
func NormalizeInput(in PromotionInput, loc *time.Location) (*domain.Promotion, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := dateparse.ParseIn(strings.TrimSpace(in.StartDate), loc)
	if err != nil {
		return nil, errors.Wrap(err, "invalid start_date")
	}
	end, err := dateparse.ParseIn(strings.TrimSpace(in.EndDate), loc)
	if err != nil {
		return nil, errors.Wrap(err, "invalid end_date")
	}
	if end.Before(start) {
		return nil, errors.New("end_date before start_date")
	}

	p := &domain.Promotion{
		Name:          strings.TrimSpace(in.Name),
		Description:   common.StringPtr(in.Description),
		PromotionType: in.PromotionType,
		StartDate:     start,
		EndDate:       end,
		Code:          common.StringPtr(strings.ToUpper(in.Code)),
		Active:        true,
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	if in.PromotionType == domain.PromotionPercentage || in.PromotionType == domain.PromotionFixed {
		v, set, err := optionalInt(in.DiscountPercentage)
		if err != nil {
			return nil, errors.Wrap(err, "invalid discount_percentage")
		}
		if !set {
			return nil, errors.New("discount_percentage is required")
		}
		if v < 0 || (in.PromotionType == domain.PromotionPercentage && v > 100) {
			return nil, errors.New("discount_percentage out of range")
		}
		p.DiscountPercentage = &v
	}

	if in.MinimumPurchase != nil && cast.ToString(in.MinimumPurchase) != "" {
		p.MinimumPurchase, err = cast.ToFloat64E(in.MinimumPurchase)
		if err != nil || p.MinimumPurchase < 0 {
			return nil, errors.New("invalid minimum_purchase")
		}
	}

	limit, set, err := optionalInt(in.UsageLimit)
	if err != nil {
		return nil, errors.Wrap(err, "invalid usage_limit")
	}
	if set {
		p.UsageLimit = &limit
	}

	if s := strings.TrimSpace(cast.ToString(in.ProductID)); s != "" {
		id, err := cast.ToInt64E(s)
		if err != nil {
			return nil, errors.Wrap(err, "invalid product_id")
		}
		p.ProductID = common.NewNullID(id)
	}
	return p, nil
}

func optionalInt(v interface{}) (int, bool, error) {
	if v == nil {
		return 0, false, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return 0, false, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false, err
	}
	if f != math.Trunc(f) {
		return 0, false, errors.Errorf("%v is not a whole number", v)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false, errors.Errorf("%v is out of range", v)
	}
	return int(f), true, nil
}
