package webserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/labstack/echo/v4"

	"github.com/boutiqueapp/boutique/config"
	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/boutiqueapp/boutique/internal/auth"
	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/testkit"
)

func newTestServer(t *testing.T) (*WebServer, *app.Application) {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	a := app.NewApplication(&cfg)
	a.OverrideDB(testkit.NewDB(t))
	if err := a.Setup(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Release)
	return Init(a), a
}

func signIn(t *testing.T, a *app.Application, email string, roles ...string) string {
	t.Helper()
	sess, err := a.Auth().SignUp(context.Background(), auth.SignUpInput{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	for _, role := range roles {
		testkit.Seed(t, a.DB(), &domain.UserRole{UserID: sess.User.ID, Role: role})
	}
	return sess.AccessToken
}

func do(s *WebServer, method, path, token string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestRouteGuards(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)

	PubGET("/ping", func(c echo.Context) error { return OK(c, "pong") })
	UserGET("/whoami", func(c echo.Context) error { return OK(c, CurrentUserID(c)) })
	ApiGET("/secret", func(c echo.Context) error { return OK(c, "admin") })
	ModGET("/queue", func(c echo.Context) error { return OK(c, "mod") })

	rec := do(s, http.MethodGet, "/api/v1/ping", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, `"data":"pong"`)

	rec = do(s, http.MethodGet, "/api/v1/me/whoami", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(rec.Body.String(), qt.Contains, `"variant":"destructive"`)

	user := signIn(t, a, "user@example.com")
	moderator := signIn(t, a, "mod@example.com", domain.RoleModerator)
	admin := signIn(t, a, "boss@example.com", domain.RoleAdmin)

	rec = do(s, http.MethodGet, "/api/v1/me/whoami", user, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	c.Assert(do(s, http.MethodGet, "/api/v1/admin/secret", user, "").Code, qt.Equals, http.StatusForbidden)
	c.Assert(do(s, http.MethodGet, "/api/v1/admin/secret", moderator, "").Code, qt.Equals, http.StatusForbidden)
	c.Assert(do(s, http.MethodGet, "/api/v1/admin/secret", admin, "").Code, qt.Equals, http.StatusOK)
	c.Assert(do(s, http.MethodGet, "/api/v1/admin/queue", moderator, "").Code, qt.Equals, http.StatusOK)
	c.Assert(do(s, http.MethodGet, "/api/v1/admin/queue", user, "").Code, qt.Equals, http.StatusForbidden)

	// revoked tokens are refused
	claims, err := a.Tokens().Parse(user)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Tokens().Revoke(claims), qt.IsNil)
	c.Assert(do(s, http.MethodGet, "/api/v1/me/whoami", user, "").Code, qt.Equals, http.StatusUnauthorized)
}

func TestToastFlashRoundTrip(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestServer(t)

	PubPOST("/boom", func(c echo.Context) error {
		return FailWithToast(c, http.StatusBadRequest, "BOOM", "boom", "Impossible de continuer")
	})
	PubGET("/toasts", func(c echo.Context) error { return OK(c, PopToasts(c)) })

	rec := do(s, http.MethodPost, "/api/v1/boom", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	cookies := rec.Result().Cookies()
	c.Assert(cookies, qt.Not(qt.HasLen), 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/toasts", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, "Impossible de continuer")
	c.Assert(rec.Body.String(), qt.Contains, `"title":"Erreur"`)
}

func TestUnknownRouteEnvelope(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestServer(t)
	rec := do(s, http.MethodGet, "/api/v1/nothing-here", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
	c.Assert(rec.Body.String(), qt.Contains, `"error":"NOT_FOUND"`)
}

func TestCORSAllowedOrigins(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestServer(t)
	PubGET("/ping", func(c echo.Context) error { return OK(c, "pong") })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
		req.Header.Set(echo.HeaderOrigin, origin)
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	c.Assert(rec.Header().Get(echo.HeaderAccessControlAllowOrigin), qt.Equals, "http://localhost:5173")
	c.Assert(rec.Header().Get(echo.HeaderAccessControlAllowCredentials), qt.Equals, "true")

	rec = preflight("https://evil.example")
	c.Assert(rec.Header().Get(echo.HeaderAccessControlAllowOrigin), qt.Equals, "")
	c.Assert(rec.Header().Get(echo.HeaderAccessControlAllowCredentials), qt.Equals, "")
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	c := qt.New(t)
	c.Assert(corsConfig([]string{"*"}).AllowCredentials, qt.IsFalse)
	c.Assert(corsConfig([]string{"https://shop.example", " * "}).AllowCredentials, qt.IsFalse)
	c.Assert(corsConfig(nil).AllowCredentials, qt.IsFalse)
	c.Assert(corsConfig([]string{"https://shop.example"}).AllowCredentials, qt.IsTrue)
}

func TestQueryTokenOnlyOnWebSocketRoutes(t *testing.T) {
	c := qt.New(t)
	s, a := newTestServer(t)
	UserGET("/profile", func(c echo.Context) error { return OK(c, CurrentUserID(c)) })
	UserWS("/feed", func(c echo.Context) error { return OK(c, CurrentUserID(c)) })
	token := signIn(t, a, "ws@example.com")

	rec := do(s, http.MethodGet, "/api/v1/me/profile?access_token="+token, "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(do(s, http.MethodGet, "/api/v1/me/profile", token, "").Code, qt.Equals, http.StatusOK)

	rec = do(s, http.MethodGet, "/api/v1/me/feed?access_token="+token, "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(do(s, http.MethodGet, "/api/v1/me/feed", "", "").Code, qt.Equals, http.StatusUnauthorized)
}
