package storeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	qt "github.com/frankban/quicktest"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/config"
	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/boutiqueapp/boutique/internal/auth"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/testkit"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
)

func newTestServer(t *testing.T) (*webserver.WebServer, *app.Application) {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	a := app.NewApplication(&cfg)
	a.OverrideDB(testkit.NewDB(t))
	if err := a.Setup(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Release)
	s := webserver.Init(a)
	Init()
	return s, a
}

func signUpUser(t *testing.T, a *app.Application, email string) (string, int64) {
	t.Helper()
	sess, err := a.Auth().SignUp(context.Background(), auth.SignUpInput{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	return sess.AccessToken, sess.User.ID
}

func do(s *webserver.WebServer, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestCatalog(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	now := time.Now()
	old := &domain.Product{Name: "Vieux Pull", Category: "Vêtements", Price: 30, Stock: 3, SoldCount: 1, CreatedAt: now.Add(-30 * 24 * time.Hour)}
	star := &domain.Product{Name: "Basket Star", Category: "Chaussures", Price: 80, Stock: 10, SoldCount: 40, IsFeatured: true, CreatedAt: now.Add(-time.Hour)}
	bag := &domain.Product{Name: "Sac cuir", Category: "Accessoires", Price: 120, Stock: 2, SoldCount: 5, CreatedAt: now}
	testkit.Seed(t, a.DB(), old, star, bag)

	var list struct {
		Data []domain.Product `json:"data"`
	}
	rec := do(s, http.MethodGet, "/api/v1/store/products", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	decode(t, rec, &list)
	c.Assert(list.Data, qt.HasLen, 3)
	c.Assert(list.Data[0].Name, qt.Equals, "Sac cuir")
	c.Assert(list.Data[2].Name, qt.Equals, "Vieux Pull")

	var detail struct {
		Data domain.Product `json:"data"`
	}
	rec = do(s, http.MethodGet, "/api/v1/store/products/"+id(star.ID), "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	decode(t, rec, &detail)
	c.Assert(detail.Data.ViewCount, qt.Equals, 1)
	c.Assert(do(s, http.MethodGet, "/api/v1/store/products/42", "", "").Code, qt.Equals, http.StatusNotFound)

	rec = do(s, http.MethodGet, "/api/v1/store/products/tab/popular", "", "")
	decode(t, rec, &list)
	c.Assert(list.Data[0].Name, qt.Equals, "Basket Star")
	rec = do(s, http.MethodGet, "/api/v1/store/products/tab/featured", "", "")
	decode(t, rec, &list)
	c.Assert(list.Data, qt.HasLen, 1)
	rec = do(s, http.MethodGet, "/api/v1/store/products/tab/new", "", "")
	decode(t, rec, &list)
	c.Assert(list.Data, qt.HasLen, 2)
	c.Assert(do(s, http.MethodGet, "/api/v1/store/products/tab/cheap", "", "").Code, qt.Equals, http.StatusBadRequest)

	var found struct {
		Data []searchResult `json:"data"`
	}
	rec = do(s, http.MethodGet, "/api/v1/store/search?q=BASKET", "", "")
	decode(t, rec, &found)
	c.Assert(found.Data, qt.HasLen, 1)
	c.Assert(found.Data[0].Category, qt.Equals, "Chaussures")
	rec = do(s, http.MethodGet, "/api/v1/store/search?q=", "", "")
	decode(t, rec, &found)
	c.Assert(found.Data, qt.HasLen, 0)

	var categories struct {
		Data []domain.ProductCategory `json:"data"`
	}
	rec = do(s, http.MethodGet, "/api/v1/store/categories", "", "")
	decode(t, rec, &categories)
	c.Assert(categories.Data, qt.HasLen, 4)
	c.Assert(categories.Data[0].Name, qt.Equals, "Accessoires")
}

func TestActivePromotions(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	now := time.Now()
	pct := 10
	testkit.Seed(t, a.DB(),
		&domain.Promotion{Name: "Soldes", PromotionType: domain.PromotionPercentage, DiscountPercentage: &pct,
			StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Active: true},
		&domain.Promotion{Name: "Passée", PromotionType: domain.PromotionPercentage, DiscountPercentage: &pct,
			StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour), Active: true},
		&domain.Promotion{Name: "Off", PromotionType: domain.PromotionPercentage, DiscountPercentage: &pct,
			StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Active: false},
	)

	var promos struct {
		Data []domain.Promotion `json:"data"`
	}
	rec := do(s, http.MethodGet, "/api/v1/store/promotions", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	decode(t, rec, &promos)
	c.Assert(promos.Data, qt.HasLen, 1)
	c.Assert(promos.Data[0].Name, qt.Equals, "Soldes")
}

func TestCartRoutes(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	p := &domain.Product{Name: "Chemise", Category: "Vêtements", Price: 19.99, Stock: 10}
	testkit.Seed(t, a.DB(), p)

	rec := do(s, http.MethodPost, "/api/v1/me/cart", "", `{"product_id":"`+id(p.ID)+`"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	token, _ := signUpUser(t, a, "buyer@example.com")
	rec = do(s, http.MethodPost, "/api/v1/me/cart", token, `{"product_id":"`+id(p.ID)+`","quantity":2}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, "Produit ajouté")
	rec = do(s, http.MethodPost, "/api/v1/me/cart", token, `{"product_id":"`+id(p.ID)+`"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	var cart struct {
		Data struct {
			Items      []domain.CartItem `json:"items"`
			CartTotal  float64           `json:"cart_total"`
			ItemsCount int               `json:"cart_items_count"`
		} `json:"data"`
	}
	rec = do(s, http.MethodGet, "/api/v1/me/cart", token, "")
	decode(t, rec, &cart)
	c.Assert(cart.Data.Items, qt.HasLen, 1)
	c.Assert(cart.Data.ItemsCount, qt.Equals, 3)
	c.Assert(cart.Data.CartTotal, qt.Equals, 59.97)

	itemPath := "/api/v1/me/cart/" + id(cart.Data.Items[0].ID)
	rec = do(s, http.MethodPut, itemPath, token, `{"quantity":0}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, `"updated":false`)
	rec = do(s, http.MethodPut, itemPath, token, `{"quantity":1}`)
	c.Assert(rec.Body.String(), qt.Contains, `"updated":true`)

	rec = do(s, http.MethodPost, "/api/v1/me/cart", token, `{"product_id":"42"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
	c.Assert(rec.Body.String(), qt.Contains, "Impossible d'ajouter le produit au panier")

	rec = do(s, http.MethodDelete, itemPath, token, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, "Produit retiré")
	c.Assert(do(s, http.MethodDelete, itemPath, token, "").Code, qt.Equals, http.StatusNotFound)
}

func TestWishlistDuplicate(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	p := &domain.Product{Name: "Lampe", Category: "Maison", Price: 45, Stock: 4}
	testkit.Seed(t, a.DB(), p)
	token, _ := signUpUser(t, a, "fan@example.com")

	body := `{"product_id":"` + id(p.ID) + `"}`
	c.Assert(do(s, http.MethodPost, "/api/v1/me/wishlist", token, body).Code, qt.Equals, http.StatusCreated)
	rec := do(s, http.MethodPost, "/api/v1/me/wishlist", token, body)
	c.Assert(rec.Code, qt.Equals, http.StatusConflict)
	c.Assert(rec.Body.String(), qt.Contains, `"variant":"destructive"`)

	var list struct {
		Data []domain.WishlistItem `json:"data"`
	}
	decode(t, do(s, http.MethodGet, "/api/v1/me/wishlist", token, ""), &list)
	c.Assert(list.Data, qt.HasLen, 1)
	rec = do(s, http.MethodDelete, "/api/v1/me/wishlist/"+id(list.Data[0].ID), token, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
}

func TestCheckoutAndOrders(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	p := &domain.Product{Name: "Montre", Category: "Accessoires", Price: 100, Stock: 5}
	testkit.Seed(t, a.DB(), p)
	token, uid := signUpUser(t, a, "client@example.com")

	rec := do(s, http.MethodPost, "/api/v1/me/checkout", token, `{}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Body.String(), qt.Contains, "EMPTY_CART")

	do(s, http.MethodPost, "/api/v1/me/cart", token, `{"product_id":"`+id(p.ID)+`","quantity":2}`)
	rec = do(s, http.MethodPost, "/api/v1/me/checkout", token, `{}`)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	var created struct {
		Data domain.Order `json:"data"`
	}
	c.Assert(rec.Body.String(), qt.Contains, `"shipping_rate_id":null`)
	c.Assert(rec.Body.String(), qt.Contains, `"promotion_id":null`)
	c.Assert(rec.Body.String(), qt.Contains, `"user_id":"`+id(uid)+`"`)
	decode(t, rec, &created)
	c.Assert(created.Data.TotalAmount, qt.Equals, 200.0)
	c.Assert(created.Data.UserID, qt.Equals, common.NewNullID(uid))
	c.Assert(created.Data.PromotionID.Valid, qt.IsFalse)

	var stored domain.Product
	c.Assert(a.DB().First(&stored, p.ID).Error, qt.IsNil)
	c.Assert(stored.Stock, qt.Equals, 3)

	var orders struct {
		Data []domain.Order     `json:"data"`
		Meta webserver.PageMeta `json:"meta"`
	}
	decode(t, do(s, http.MethodGet, "/api/v1/me/orders", token, ""), &orders)
	c.Assert(orders.Meta.Total, qt.Equals, int64(1))
	c.Assert(orders.Data[0].Items, qt.HasLen, 1)
	c.Assert(orders.Data[0].ShippingRateID.Valid, qt.IsFalse)

	c.Assert(do(s, http.MethodGet, "/api/v1/me/orders/"+id(created.Data.ID), token, "").Code, qt.Equals, http.StatusOK)
	other, _ := signUpUser(t, a, "other@example.com")
	c.Assert(do(s, http.MethodGet, "/api/v1/me/orders/"+id(created.Data.ID), other, "").Code, qt.Equals, http.StatusNotFound)

	var notes struct {
		Data []domain.Notification `json:"data"`
	}
	decode(t, do(s, http.MethodGet, "/api/v1/me/notifications", token, ""), &notes)
	c.Assert(notes.Data, qt.HasLen, 1)
	c.Assert(notes.Data[0].UserID, qt.Equals, uid)
	rec = do(s, http.MethodPut, "/api/v1/me/notifications/"+id(notes.Data[0].ID)+"/read", token, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	decode(t, do(s, http.MethodGet, "/api/v1/me/notifications?unread=true", token, ""), &notes)
	c.Assert(notes.Data, qt.HasLen, 0)
}

func TestSiteInfo(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestServer(t)

	var info struct {
		Data map[string]string `json:"data"`
	}
	rec := do(s, http.MethodGet, "/api/v1/store/site", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	decode(t, rec, &info)
	c.Assert(info.Data["currency"], qt.Equals, "EUR")
	c.Assert(info.Data["name"], qt.Equals, "Boutique")
	_, leaked := info.Data["shop.low_stock_threshold"]
	c.Assert(leaked, qt.IsFalse)
}

func TestCheckoutFreeShippingSetting(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	p := &domain.Product{Name: "Montre", Category: "Accessoires", Price: 60, Stock: 5}
	rate := &domain.ShippingRate{Name: "Colissimo", Price: 4.9, EstimatedDays: 2}
	testkit.Seed(t, a.DB(), p, rate)
	c.Assert(a.DB().Model(&domain.SiteSetting{}).Where("key = ?", "shop.free_shipping_minimum").Update("value", "50").Error, qt.IsNil)
	c.Assert(a.ReloadSettings(), qt.IsNil)
	token, _ := signUpUser(t, a, "client@example.com")

	do(s, http.MethodPost, "/api/v1/me/cart", token, `{"product_id":"`+id(p.ID)+`","quantity":1}`)
	rec := do(s, http.MethodPost, "/api/v1/me/checkout", token, `{"shipping_rate_id":"`+id(rate.ID)+`"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	var created struct {
		Data domain.Order `json:"data"`
	}
	decode(t, rec, &created)
	c.Assert(created.Data.ShippingRateID, qt.Equals, common.NewNullID(rate.ID))
	c.Assert(created.Data.ShippingAmount, qt.Equals, 0.0)
	c.Assert(created.Data.TotalAmount, qt.Equals, 60.0)
}

func TestReviews(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	p := &domain.Product{Name: "Bottes", Category: "Chaussures", Price: 150, Stock: 1}
	testkit.Seed(t, a.DB(), p)
	token, _ := signUpUser(t, a, "critic@example.com")

	rec := do(s, http.MethodPost, "/api/v1/me/reviews", token, `{"product_id":"`+id(p.ID)+`","rating":6}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	rec = do(s, http.MethodPost, "/api/v1/me/reviews", token, `{"product_id":"`+id(p.ID)+`","comment":"Superbes"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)

	var reviews struct {
		Data []domain.Review `json:"data"`
	}
	decode(t, do(s, http.MethodGet, "/api/v1/store/products/"+id(p.ID)+"/reviews", "", ""), &reviews)
	c.Assert(reviews.Data, qt.HasLen, 1)
	c.Assert(reviews.Data[0].Rating, qt.Equals, 5)
	c.Assert(reviews.Data[0].Product, qt.IsNotNil)
	c.Assert(reviews.Data[0].Product.Name, qt.Equals, "Bottes")
	c.Assert(reviews.Data[0].Profile, qt.IsNotNil)
}

func TestNewsletter(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/v1/store/newsletter", "", `{"email":"Reader@Example.com"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(do(s, http.MethodPost, "/api/v1/store/newsletter", "", `{"email":"nope"}`).Code, qt.Equals, http.StatusBadRequest)

	var sub domain.NewsletterSubscriber
	c.Assert(a.DB().Where("email = ?", "reader@example.com").First(&sub).Error, qt.IsNil)
	c.Assert(sub.Active, qt.IsTrue)

	rec = do(s, http.MethodGet, "/api/v1/store/newsletter/unsubscribe/"+sub.Token, "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(a.DB().First(&sub, sub.ID).Error, qt.IsNil)
	c.Assert(sub.Active, qt.IsFalse)

	do(s, http.MethodPost, "/api/v1/store/newsletter", "", `{"email":"reader@example.com"}`)
	c.Assert(a.DB().First(&sub, sub.ID).Error, qt.IsNil)
	c.Assert(sub.Active, qt.IsTrue)
	c.Assert(do(s, http.MethodGet, "/api/v1/store/newsletter/unsubscribe/unknown", "", "").Code, qt.Equals, http.StatusNotFound)
}

func TestAuthRoutes(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/v1/auth/signup", "", `{"email":"new@example.com","password":"secret1","full_name":"Jeanne"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	c.Assert(do(s, http.MethodPost, "/api/v1/auth/signup", "", `{"email":"new@example.com","password":"secret1"}`).Code,
		qt.Equals, http.StatusConflict)

	rec = do(s, http.MethodPost, "/api/v1/auth/signin", "", `{"email":"new@example.com","password":"wrong"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	var session struct {
		Data auth.Session `json:"data"`
	}
	rec = do(s, http.MethodPost, "/api/v1/auth/signin", "", `{"email":"new@example.com","password":"secret1"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	decode(t, rec, &session)
	token := session.Data.AccessToken

	rec = do(s, http.MethodGet, "/api/v1/auth/session", token, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, "new@example.com")

	c.Assert(do(s, http.MethodPost, "/api/v1/auth/signout", token, "").Code, qt.Equals, http.StatusOK)
	c.Assert(do(s, http.MethodGet, "/api/v1/auth/session", token, "").Code, qt.Equals, http.StatusUnauthorized)
}

func TestSearchUsesILikeOnPostgres(t *testing.T) {
	c := qt.New(t)
	sqlDB, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	c.Assert(err, qt.IsNil)

	cfg := *config.DefaultAppConfig
	a := app.NewApplication(&cfg)
	a.OverrideDB(db)
	s := webserver.Init(a)
	Init()

	mock.ExpectQuery(regexp.QuoteMeta(`name ILIKE $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category"}).AddRow(7, "Robe", "Vêtements"))

	rec := do(s, http.MethodGet, "/api/v1/store/search?q=rob", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, `"name":"Robe"`)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}
