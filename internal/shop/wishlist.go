package shop

import (
	"context"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// WishlistService manages saved products of the signed-in user
type WishlistService struct {
	items    WishlistRepository
	products ProductRepository
	pub      realtime.Publisher
}

func NewWishlistService(items WishlistRepository, products ProductRepository, pub realtime.Publisher) *WishlistService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &WishlistService{items: items, products: products, pub: pub}
}

func NewGormWishlistService(db *gorm.DB, pub realtime.Publisher) *WishlistService {
	return NewWishlistService(NewGormWishlistRepository(db), NewGormProductRepository(db), pub)
}

func (s *WishlistService) List(ctx context.Context, uid int64) ([]domain.WishlistItem, error) {
	if uid == 0 {
		return []domain.WishlistItem{}, nil
	}
	items, err := s.items.ListByUser(ctx, uid)
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	if items == nil {
		items = []domain.WishlistItem{}
	}
	return items, nil
}

func (s *WishlistService) Add(ctx context.Context, uid, productID int64) (*domain.WishlistItem, error) {
	if uid == 0 {
		return nil, ErrLoginRequired
	}
	ok, err := s.products.Exists(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "check product")
	}
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "product %d", productID)
	}
	dup, err := s.items.Exists(ctx, uid, productID)
	if err != nil {
		return nil, errors.Wrap(err, "check wishlist")
	}
	if dup {
		return nil, ErrAlreadyInWishlist
	}
	item := &domain.WishlistItem{UserID: uid, ProductID: productID}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, errors.Wrap(err, "insert wishlist row")
	}
	s.notify(uid, "add")
	return item, nil
}

func (s *WishlistService) Remove(ctx context.Context, uid, itemID int64) error {
	if uid == 0 {
		return ErrLoginRequired
	}
	n, err := s.items.Delete(ctx, uid, itemID)
	if err != nil {
		return errors.Wrap(err, "delete wishlist row")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "wishlist item %d", itemID)
	}
	s.notify(uid, "remove")
	return nil
}

func (s *WishlistService) notify(uid int64, action string) {
	s.pub.Publish(realtime.WishlistTopic(uid), realtime.Event{
		Type: realtime.EventWishlist, Action: action, UserID: uid,
	})
}
