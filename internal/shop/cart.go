package shop

import (
	"context"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartSummary totals derived from the cart rows
type CartSummary struct {
	Items      []domain.CartItem `json:"items"`
	CartTotal  float64           `json:"cart_total"`
	ItemsCount int               `json:"cart_items_count"`
}

// CartService manages the cart of the signed-in user. A uid of 0 means anonymous.
type CartService struct {
	carts    CartRepository
	products ProductRepository
	pub      realtime.Publisher
}

func NewCartService(carts CartRepository, products ProductRepository, pub realtime.Publisher) *CartService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &CartService{carts: carts, products: products, pub: pub}
}

// NewGormCartService wires the service on a gorm handle.
func NewGormCartService(db *gorm.DB, pub realtime.Publisher) *CartService {
	return NewCartService(NewGormCartRepository(db), NewGormProductRepository(db), pub)
}

func (s *CartService) List(ctx context.Context, uid int64) ([]domain.CartItem, error) {
	if uid == 0 {
		return []domain.CartItem{}, nil
	}
	items, err := s.carts.ListByUser(ctx, uid)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

// Add puts qty units of productID in the cart, merging with an existing row.
func (s *CartService) Add(ctx context.Context, uid, productID int64, qty int) error {
	if uid == 0 {
		return ErrLoginRequired
	}
	if qty < 1 {
		return ErrInvalidQuantity
	}
	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "check product")
	}
	if !exists {
		return errors.Wrapf(ErrNotFound, "product %d", productID)
	}

	existing, err := s.carts.FindByProduct(ctx, uid, productID)
	if err != nil {
		return errors.Wrap(err, "find cart row")
	}
	if existing != nil {
		if _, err := s.carts.SetQuantity(ctx, uid, existing.ID, existing.Quantity+qty); err != nil {
			return errors.Wrap(err, "update cart row")
		}
	} else {
		item := &domain.CartItem{UserID: uid, ProductID: productID, Quantity: qty}
		if err := s.carts.Create(ctx, item); err != nil {
			return errors.Wrap(err, "insert cart row")
		}
	}
	metrics.Incr(metrics.MetricsCartAdd)
	s.notify(uid, "add")
	return nil
}

// UpdateQuantity sets the quantity of a row. Quantities below 1 are ignored
// and reported as not updated.
func (s *CartService) UpdateQuantity(ctx context.Context, uid, itemID int64, qty int) (bool, error) {
	if uid == 0 {
		return false, ErrLoginRequired
	}
	if qty < 1 {
		return false, nil
	}
	n, err := s.carts.SetQuantity(ctx, uid, itemID, qty)
	if err != nil {
		return false, errors.Wrap(err, "update cart row")
	}
	if n == 0 {
		return false, errors.Wrapf(ErrNotFound, "cart item %d", itemID)
	}
	s.notify(uid, "update")
	return true, nil
}

func (s *CartService) Remove(ctx context.Context, uid, itemID int64) error {
	if uid == 0 {
		return ErrLoginRequired
	}
	n, err := s.carts.Delete(ctx, uid, itemID)
	if err != nil {
		return errors.Wrap(err, "delete cart row")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "cart item %d", itemID)
	}
	s.notify(uid, "remove")
	return nil
}

func (s *CartService) Clear(ctx context.Context, uid int64) error {
	if uid == 0 {
		return ErrLoginRequired
	}
	if err := s.carts.DeleteByUser(ctx, uid); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	s.notify(uid, "clear")
	return nil
}

// Expire removes the rows created before t and notifies each owner.
func (s *CartService) Expire(ctx context.Context, before time.Time) (int64, error) {
	owners, removed, err := s.carts.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, errors.Wrap(err, "expire carts")
	}
	for _, uid := range owners {
		s.notify(uid, "expire")
	}
	return removed, nil
}

func (s *CartService) notify(uid int64, action string) {
	s.pub.Publish(realtime.CartTopic(uid), realtime.Event{
		Type: realtime.EventCart, Action: action, UserID: uid,
	})
}

// Summarize computes cart_total and cart_items_count. Rows without a loaded
// product count towards the item count only.
func Summarize(items []domain.CartItem) CartSummary {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		count += item.Quantity
		if item.Product == nil {
			continue
		}
		line := decimal.NewFromFloat(item.Product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartSummary{
		Items:      items,
		CartTotal:  total.Round(2).InexactFloat64(),
		ItemsCount: count,
	}
}
