package shop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/pkg/common"
	"github.com/boutiqueapp/boutique/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckoutInput struct {
	ShippingRateID common.NullID `json:"shipping_rate_id"`
	PromoCode      string        `json:"promo_code"`
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	db  *gorm.DB
	pub realtime.Publisher
	// FreeShippingMinimum returns the subtotal from which shipping is free; 0 disables it.
	FreeShippingMinimum func() float64
	now                 func() time.Time
}

func NewCheckoutService(db *gorm.DB, pub realtime.Publisher, freeShippingMinimum func() float64) *CheckoutService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	if freeShippingMinimum == nil {
		freeShippingMinimum = func() float64 { return 0 }
	}
	return &CheckoutService{db: db, pub: pub, FreeShippingMinimum: freeShippingMinimum, now: time.Now}
}

// Checkout creates a pending order from the cart of uid, in a single transaction.
func (s *CheckoutService) Checkout(ctx context.Context, uid int64, in CheckoutInput) (*domain.Order, error) {
	if uid == 0 {
		return nil, ErrLoginRequired
	}
	now := s.now()
	var order *domain.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []domain.CartItem
		if err := tx.Preload("Product").Where("user_id = ?", uid).Order("created_at ASC").Find(&items).Error; err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		lines := make([]Line, 0, len(items))
		orderItems := make([]domain.OrderItem, 0, len(items))
		for _, item := range items {
			if item.Product == nil {
				return errors.Wrapf(ErrNotFound, "product %d", item.ProductID)
			}
			if item.Product.Stock < item.Quantity {
				return errors.Wrapf(ErrOutOfStock, "%s: %d left", item.Product.Name, item.Product.Stock)
			}
			lines = append(lines, Line{ProductID: item.ProductID, UnitPrice: item.Product.Price, Quantity: item.Quantity})
			orderItems = append(orderItems, domain.OrderItem{
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				UnitPrice:   item.Product.Price,
				Quantity:    item.Quantity,
			})
		}

		shipping := 0.0
		if in.ShippingRateID.Valid {
			var rate domain.ShippingRate
			err := tx.Where("id = ?", in.ShippingRateID.Int64).First(&rate).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrapf(ErrNotFound, "shipping rate %d", in.ShippingRateID.Int64)
			} else if err != nil {
				return errors.Wrap(err, "load shipping rate")
			}
			shipping = rate.Price
		}
		base := Price(nil, lines, shipping)
		if threshold := s.FreeShippingMinimum(); threshold > 0 && base.Subtotal >= threshold {
			shipping = 0
		}

		var promo *domain.Promotion
		if code := strings.ToUpper(strings.TrimSpace(in.PromoCode)); code != "" {
			var p domain.Promotion
			err := tx.Where("code = ?", code).First(&p).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrapf(ErrPromotionInvalid, "unknown code %s", code)
			} else if err != nil {
				return errors.Wrap(err, "load promotion")
			}
			if err := CheckValidity(&p, base.Subtotal, now); err != nil {
				return err
			}
			promo = &p
		}
		pricing := Price(promo, lines, shipping)

		order = &domain.Order{
			UserID:         common.NewNullID(uid),
			Status:         domain.OrderPending,
			Subtotal:       pricing.Subtotal,
			DiscountAmount: pricing.Discount,
			ShippingAmount: pricing.Shipping,
			TotalAmount:    pricing.Total,
			ShippingRateID: in.ShippingRateID,
			Items:          orderItems,
		}
		if promo != nil {
			order.PromotionID = common.NewNullID(promo.ID)
		}
		if err := tx.Create(order).Error; err != nil {
			return errors.Wrap(err, "create order")
		}

		for _, l := range lines {
			res := tx.Model(&domain.Product{}).
				Where("id = ? AND stock >= ?", l.ProductID, l.Quantity).
				Updates(map[string]interface{}{
					"stock":      gorm.Expr("stock - ?", l.Quantity),
					"sold_count": gorm.Expr("sold_count + ?", l.Quantity),
				})
			if res.Error != nil {
				return errors.Wrap(res.Error, "update stock")
			}
			if res.RowsAffected == 0 {
				return errors.Wrapf(ErrOutOfStock, "product %d", l.ProductID)
			}
		}

		if promo != nil {
			q := tx.Model(&domain.Promotion{}).Where("id = ?", promo.ID)
			if promo.UsageLimit != nil {
				q = q.Where("times_used < ?", *promo.UsageLimit)
			}
			res := q.Update("times_used", gorm.Expr("times_used + 1"))
			if res.Error != nil {
				return errors.Wrap(res.Error, "update promotion usage")
			}
			if res.RowsAffected == 0 {
				return errors.Wrap(ErrPromotionInvalid, "usage limit reached")
			}
		}

		if err := tx.Where("user_id = ?", uid).Delete(&domain.CartItem{}).Error; err != nil {
			return errors.Wrap(err, "clear cart")
		}

		return tx.Create(&domain.Notification{
			UserID:  uid,
			Title:   "Commande enregistrée",
			Message: fmt.Sprintf("Votre commande de %.2f a bien été enregistrée.", order.TotalAmount),
			Type:    "order",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.Incr(metrics.MetricsOrdersCreated)
	zap.L().Info("order created",
		zap.String("namespace", "shop"),
		zap.Int64("order_id", order.ID),
		zap.Int64("uid", uid),
		zap.Float64("total", order.TotalAmount))
	s.pub.Publish(realtime.CartTopic(uid), realtime.Event{Type: realtime.EventCart, Action: "clear", UserID: uid})
	s.pub.Publish(realtime.TopicOrdersAdmin, realtime.Event{Type: realtime.EventOrder, Action: "created", UserID: uid, Data: strconv.FormatInt(order.ID, 10)})
	return order, nil
}
