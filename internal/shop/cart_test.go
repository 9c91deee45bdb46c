package shop

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/internal/testkit"
)

func TestCartAddMergesRows(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db := testkit.NewDB(t)
	hub := realtime.NewHub()
	svc := NewGormCartService(db, hub)

	p := &domain.Product{Name: "Mug", Category: "Kitchen", Price: 12.5, Stock: 10}
	testkit.Seed(t, db, p)

	events, cancel := hub.Subscribe(realtime.CartTopic(1), 8)
	defer cancel()

	c.Assert(svc.Add(ctx, 1, p.ID, 1), qt.IsNil)
	c.Assert(svc.Add(ctx, 1, p.ID, 2), qt.IsNil)

	items, err := svc.List(ctx, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(items, qt.HasLen, 1)
	c.Assert(items[0].Quantity, qt.Equals, 3)
	c.Assert(items[0].Product, qt.IsNotNil)
	c.Assert(items[0].Product.Name, qt.Equals, "Mug")

	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			c.Assert(ev.Type, qt.Equals, realtime.EventCart)
		case <-time.After(time.Second):
			t.Fatal("missing cart event")
		}
	}
}

func TestCartAddRequiresLoginAndProduct(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := NewGormCartService(testkit.NewDB(t), nil)

	c.Assert(errors.Is(svc.Add(ctx, 0, 1, 1), ErrLoginRequired), qt.IsTrue)
	c.Assert(errors.Is(svc.Add(ctx, 1, 12345, 1), ErrNotFound), qt.IsTrue)

	items, err := svc.List(ctx, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(items, qt.HasLen, 0)
}

func TestCartUpdateRemoveClear(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db := testkit.NewDB(t)
	svc := NewGormCartService(db, nil)

	a := &domain.Product{Name: "Plate", Category: "Kitchen", Price: 4, Stock: 5}
	b := &domain.Product{Name: "Bowl", Category: "Kitchen", Price: 3, Stock: 5}
	testkit.Seed(t, db, a, b)
	c.Assert(svc.Add(ctx, 1, a.ID, 1), qt.IsNil)
	c.Assert(svc.Add(ctx, 1, b.ID, 1), qt.IsNil)
	c.Assert(svc.Add(ctx, 2, a.ID, 1), qt.IsNil)

	items, _ := svc.List(ctx, 1)
	c.Assert(items, qt.HasLen, 2)
	first := items[0].ID

	updated, err := svc.UpdateQuantity(ctx, 1, first, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(updated, qt.IsFalse)

	updated, err = svc.UpdateQuantity(ctx, 1, first, 4)
	c.Assert(err, qt.IsNil)
	c.Assert(updated, qt.IsTrue)

	// rows of other users are invisible
	others, _ := svc.List(ctx, 2)
	_, err = svc.UpdateQuantity(ctx, 1, others[0].ID, 2)
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)
	c.Assert(errors.Is(svc.Remove(ctx, 1, others[0].ID), ErrNotFound), qt.IsTrue)

	c.Assert(svc.Remove(ctx, 1, first), qt.IsNil)
	items, _ = svc.List(ctx, 1)
	c.Assert(items, qt.HasLen, 1)

	c.Assert(svc.Clear(ctx, 1), qt.IsNil)
	items, _ = svc.List(ctx, 1)
	c.Assert(items, qt.HasLen, 0)
	others, _ = svc.List(ctx, 2)
	c.Assert(others, qt.HasLen, 1)
}

func TestSummarize(t *testing.T) {
	c := qt.New(t)
	items := []domain.CartItem{
		{Quantity: 3, Product: &domain.Product{Price: 0.1}},
		{Quantity: 2, Product: &domain.Product{Price: 19.99}},
		{Quantity: 1},
	}
	sum := Summarize(items)
	c.Assert(sum.CartTotal, qt.Equals, 40.28)
	c.Assert(sum.ItemsCount, qt.Equals, 6)

	empty := Summarize(nil)
	c.Assert(empty.CartTotal, qt.Equals, 0.0)
	c.Assert(empty.Items, qt.HasLen, 0)
}

func TestCartExpireNotifiesOwners(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db := testkit.NewDB(t)
	hub := realtime.NewHub()
	svc := NewGormCartService(db, hub)
	now := time.Now()

	testkit.Seed(t, db,
		&domain.CartItem{UserID: 1, ProductID: 10, Quantity: 1, CreatedAt: now.AddDate(0, 0, -40)},
		&domain.CartItem{UserID: 1, ProductID: 11, Quantity: 2, CreatedAt: now.AddDate(0, 0, -35)},
		&domain.CartItem{UserID: 2, ProductID: 10, Quantity: 1},
	)
	stale, cancel := hub.Subscribe(realtime.CartTopic(1), 8)
	defer cancel()
	fresh, cancelFresh := hub.Subscribe(realtime.CartTopic(2), 8)
	defer cancelFresh()

	n, err := svc.Expire(ctx, now.AddDate(0, 0, -30))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(2))

	select {
	case ev := <-stale:
		c.Assert(ev.Action, qt.Equals, "expire")
		c.Assert(ev.UserID, qt.Equals, int64(1))
	case <-time.After(time.Second):
		t.Fatal("missing cart event")
	}
	select {
	case ev := <-fresh:
		t.Fatalf("unexpected event for user 2: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	var left int64
	db.Model(&domain.CartItem{}).Count(&left)
	c.Assert(left, qt.Equals, int64(1))
}
