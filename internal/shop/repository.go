package shop

import (
	"context"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ProductRepository read access to the catalog
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// CartRepository handles database operations for cart rows
type CartRepository interface {
	// ListByUser returns the rows of uid joined with their product
	ListByUser(ctx context.Context, uid int64) ([]domain.CartItem, error)

	// FindByProduct returns the row of (uid, productID) or nil
	FindByProduct(ctx context.Context, uid, productID int64) (*domain.CartItem, error)

	Create(ctx context.Context, item *domain.CartItem) error

	// SetQuantity updates a row owned by uid, returning the affected count
	SetQuantity(ctx context.Context, uid, id int64, qty int) (int64, error)

	Delete(ctx context.Context, uid, id int64) (int64, error)

	DeleteByUser(ctx context.Context, uid int64) error

	// DeleteOlderThan removes rows created before t, returning the owners of
	// the removed rows and the removed count
	DeleteOlderThan(ctx context.Context, t time.Time) ([]int64, int64, error)
}

// WishlistRepository handles database operations for wishlist rows
type WishlistRepository interface {
	ListByUser(ctx context.Context, uid int64) ([]domain.WishlistItem, error)
	Exists(ctx context.Context, uid, productID int64) (bool, error)
	Create(ctx context.Context, item *domain.WishlistItem) error
	Delete(ctx context.Context, uid, id int64) (int64, error)
}

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// GormCartRepository is the GORM implementation of CartRepository
type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) ListByUser(ctx context.Context, uid int64) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", uid).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *GormCartRepository) FindByProduct(ctx context.Context, uid, productID int64) (*domain.CartItem, error) {
	var items []domain.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", uid, productID).
		Limit(1).Find(&items).Error
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (r *GormCartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *GormCartRepository) SetQuantity(ctx context.Context, uid, id int64, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.CartItem{}).
		Where("id = ? AND user_id = ?", id, uid).
		Update("quantity", qty)
	return res.RowsAffected, res.Error
}

func (r *GormCartRepository) Delete(ctx context.Context, uid, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, uid).Delete(&domain.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *GormCartRepository) DeleteByUser(ctx context.Context, uid int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", uid).Delete(&domain.CartItem{}).Error
}

func (r *GormCartRepository) DeleteOlderThan(ctx context.Context, t time.Time) ([]int64, int64, error) {
	var (
		owners  []int64
		removed int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.CartItem{}).Where("created_at < ?", t).Distinct().Pluck("user_id", &owners).Error
		if err != nil {
			return err
		}
		res := tx.Where("created_at < ?", t).Delete(&domain.CartItem{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, 0, err
	}
	return owners, removed, nil
}

// GormWishlistRepository is the GORM implementation of WishlistRepository
type GormWishlistRepository struct {
	db *gorm.DB
}

func NewGormWishlistRepository(db *gorm.DB) *GormWishlistRepository {
	return &GormWishlistRepository{db: db}
}

func (r *GormWishlistRepository) ListByUser(ctx context.Context, uid int64) ([]domain.WishlistItem, error) {
	var items []domain.WishlistItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *GormWishlistRepository) Exists(ctx context.Context, uid, productID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", uid, productID).Count(&count).Error
	return count > 0, err
}

func (r *GormWishlistRepository) Create(ctx context.Context, item *domain.WishlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *GormWishlistRepository) Delete(ctx context.Context, uid, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, uid).Delete(&domain.WishlistItem{})
	return res.RowsAffected, res.Error
}
