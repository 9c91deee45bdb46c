package shop

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/testkit"
)

func TestWishlist(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db := testkit.NewDB(t)
	svc := NewGormWishlistService(db, nil)

	p := &domain.Product{Name: "Lamp", Category: "Home", Price: 30, Stock: 2}
	testkit.Seed(t, db, p)

	_, err := svc.Add(ctx, 0, p.ID)
	c.Assert(errors.Is(err, ErrLoginRequired), qt.IsTrue)

	item, err := svc.Add(ctx, 5, p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(item.ID, qt.Not(qt.Equals), int64(0))

	_, err = svc.Add(ctx, 5, p.ID)
	c.Assert(errors.Is(err, ErrAlreadyInWishlist), qt.IsTrue)

	_, err = svc.Add(ctx, 5, 999)
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)

	items, err := svc.List(ctx, 5)
	c.Assert(err, qt.IsNil)
	c.Assert(items, qt.HasLen, 1)
	c.Assert(items[0].Product.Name, qt.Equals, "Lamp")

	c.Assert(errors.Is(svc.Remove(ctx, 6, item.ID), ErrNotFound), qt.IsTrue)
	c.Assert(svc.Remove(ctx, 5, item.ID), qt.IsNil)
	items, _ = svc.List(ctx, 5)
	c.Assert(items, qt.HasLen, 0)
}
