package shop

import "github.com/pkg/errors"

var (
	ErrLoginRequired     = errors.New("login required")
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyInWishlist = errors.New("product already in wishlist")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOutOfStock        = errors.New("insufficient stock")
	ErrPromotionInvalid  = errors.New("promotion is not valid")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)
