package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/realtime"
	"github.com/boutiqueapp/boutique/internal/testkit"
	"github.com/pkg/errors"
)

func newStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "data", "revoked.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newService(t *testing.T) (*Service, *realtime.Hub) {
	t.Helper()
	hub := realtime.NewHub()
	tokens := NewTokenManager("test-secret", time.Hour, newStore(t))
	return NewService(testkit.NewDB(t), tokens, hub), hub
}

func TestBoltStore(t *testing.T) {
	c := qt.New(t)
	store := newStore(t)
	now := time.Now()

	c.Assert(store.Revoke("old", now.Add(-time.Minute)), qt.IsNil)
	c.Assert(store.Revoke("live", now.Add(time.Hour)), qt.IsNil)

	revoked, err := store.IsRevoked("live")
	c.Assert(err, qt.IsNil)
	c.Assert(revoked, qt.IsTrue)

	removed, err := store.Purge(now)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.Equals, 1)

	revoked, _ = store.IsRevoked("old")
	c.Assert(revoked, qt.IsFalse)
	revoked, _ = store.IsRevoked("live")
	c.Assert(revoked, qt.IsTrue)
}

func TestTokenRoundTrip(t *testing.T) {
	c := qt.New(t)
	m := NewTokenManager("secret", time.Hour, newStore(t))

	raw, exp, err := m.Issue(99, "alice", []string{"user", "admin"})
	c.Assert(err, qt.IsNil)
	c.Assert(exp.After(time.Now()), qt.IsTrue)

	claims, err := m.Parse(raw)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.UID, qt.Equals, int64(99))
	c.Assert(claims.HasRole("admin"), qt.IsTrue)
	c.Assert(claims.HasRole("moderator"), qt.IsFalse)

	c.Assert(m.Revoke(claims), qt.IsNil)
	_, err = m.Parse(raw)
	c.Assert(errors.Is(err, ErrTokenRevoked), qt.IsTrue)
}

func TestTokenRejectsForeignSignature(t *testing.T) {
	c := qt.New(t)
	raw, _, err := NewTokenManager("one", time.Hour, nil).Issue(1, "a", nil)
	c.Assert(err, qt.IsNil)

	_, err = NewTokenManager("two", time.Hour, nil).Parse(raw)
	c.Assert(errors.Is(err, ErrInvalidToken), qt.IsTrue)
}

func TestSignUpSignIn(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, hub := newService(t)

	sess, err := svc.SignUp(ctx, SignUpInput{Email: " Alice@Example.com ", Password: "secret1", FullName: "Alice", Username: "alice"})
	c.Assert(err, qt.IsNil)
	c.Assert(sess.TokenType, qt.Equals, "bearer")
	c.Assert(sess.User.Email, qt.Equals, "alice@example.com")
	c.Assert(sess.User.Roles, qt.DeepEquals, []string{"user"})
	c.Assert(*sess.User.FullName, qt.Equals, "Alice")

	_, err = svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "another"})
	c.Assert(errors.Is(err, ErrEmailTaken), qt.IsTrue)

	_, err = svc.SignUp(ctx, SignUpInput{Email: "bob@example.com", Password: "123"})
	c.Assert(errors.Is(err, ErrWeakPassword), qt.IsTrue)

	_, err = svc.SignIn(ctx, "alice@example.com", "wrong")
	c.Assert(errors.Is(err, ErrInvalidCredentials), qt.IsTrue)
	_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	c.Assert(errors.Is(err, ErrInvalidCredentials), qt.IsTrue)

	events, cancel := hub.Subscribe(realtime.AuthTopic(sess.User.ID), 4)
	defer cancel()

	sess, err = svc.SignIn(ctx, "ALICE@example.com", "secret1")
	c.Assert(err, qt.IsNil)
	ev := <-events
	c.Assert(ev.Action, qt.Equals, "signed_in")

	claims, err := svc.Tokens().Parse(sess.AccessToken)
	c.Assert(err, qt.IsNil)
	c.Assert(svc.SignOut(ctx, claims), qt.IsNil)
	ev = <-events
	c.Assert(ev.Action, qt.Equals, "signed_out")

	_, err = svc.Tokens().Parse(sess.AccessToken)
	c.Assert(errors.Is(err, ErrTokenRevoked), qt.IsTrue)
}

func TestSignInDisabledAccount(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc, _ := newService(t)

	sess, err := svc.SignUp(ctx, SignUpInput{Email: "carl@example.com", Password: "secret1"})
	c.Assert(err, qt.IsNil)
	c.Assert(svc.db.Model(&domain.Account{}).Where("id = ?", sess.User.ID).Update("status", "disabled").Error, qt.IsNil)

	_, err = svc.SignIn(ctx, "carl@example.com", "secret1")
	c.Assert(errors.Is(err, ErrAccountDisabled), qt.IsTrue)
}

func TestHasRole(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db := testkit.NewDB(t)

	admin := domain.RoleAdmin
	testkit.Seed(t, db,
		&domain.Profile{ID: 1},
		&domain.UserRole{UserID: 1, Role: domain.RoleModerator},
		&domain.Profile{ID: 2, Role: &admin},
	)

	ok, err := HasRole(ctx, db, 1, domain.RoleModerator)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ok, _ = HasRole(ctx, db, 1, domain.RoleAdmin)
	c.Assert(ok, qt.IsFalse)

	// legacy profile role still grants admin
	ok, _ = HasRole(ctx, db, 2, domain.RoleAdmin)
	c.Assert(ok, qt.IsTrue)

	roles, err := UserRoles(ctx, db, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(roles, qt.DeepEquals, []string{"admin"})
}

func TestSignInLogsLastLoginFailure(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db := testkit.NewDB(t)
	svc := NewService(db, NewTokenManager("test-secret", time.Hour, newStore(t)), realtime.NewHub())
	_, err := svc.SignUp(ctx, SignUpInput{Email: "late@example.com", Password: "secret1"})
	c.Assert(err, qt.IsNil)

	core, logs := observer.New(zap.WarnLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	err = db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		tx.AddError(errors.New("disk full"))
	})
	c.Assert(err, qt.IsNil)

	sess, err := svc.SignIn(ctx, "late@example.com", "secret1")
	c.Assert(err, qt.IsNil)
	c.Assert(sess.AccessToken, qt.Not(qt.Equals), "")
	entries := logs.FilterMessage("update last login failed").All()
	c.Assert(entries, qt.HasLen, 1)
	c.Assert(entries[0].ContextMap()["error"], qt.Equals, "disk full")
}
