package auth

import (
	"context"
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

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUserNotFound       = errors.New("user not found")
)

const MinPasswordLength = 6

// Session is returned by sign-up and sign-in.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}

type SessionUser struct {
	ID       int64    `json:"id,string"`
	Email    string   `json:"email"`
	FullName *string  `json:"full_name"`
	Username *string  `json:"username"`
	Roles    []string `json:"roles"`
}

type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Username string
}

// Service handles account lifecycle and sessions.
type Service struct {
	db     *gorm.DB
	tokens *TokenManager
	pub    realtime.Publisher
}

func NewService(db *gorm.DB, tokens *TokenManager, pub realtime.Publisher) *Service {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &Service{db: db, tokens: tokens, pub: pub}
}

func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// SignUp creates the account, its profile and the default "user" role.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email := common.NormalizeEmail(in.Email)
	if email == "" {
		return nil, errors.Wrap(ErrInvalidCredentials, "email required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := common.HashPassword(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	account := domain.Account{
		Email:     email,
		Password:  hash,
		Status:    common.ENABLED,
		LastLogin: time.Now(),
	}
	role := domain.RoleUser
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		profile := domain.Profile{
			ID:       account.ID,
			FullName: common.StringPtr(in.FullName),
			Username: common.StringPtr(in.Username),
			Role:     &role,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		return tx.Create(&domain.UserRole{UserID: account.ID, Role: domain.RoleUser}).Error
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create account")
	}
	zap.L().Info("account registered", zap.String("namespace", "auth"), zap.Int64("uid", account.ID))
	return s.newSession(ctx, account.ID, "signed_in")
}

// SignIn checks credentials and issues a fresh token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).Where("email = ?", common.NormalizeEmail(email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.Incr(metrics.MetricsSigninFail)
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, errors.Wrap(err, "query account")
	}
	if !common.CheckPassword(account.Password, password) {
		metrics.Incr(metrics.MetricsSigninFail)
		return nil, ErrInvalidCredentials
	}
	if account.Status != common.ENABLED {
		return nil, ErrAccountDisabled
	}
	if err := s.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", account.ID).
		Update("last_login", time.Now()).Error; err != nil {
		zap.L().Warn("update last login failed", zap.String("namespace", "auth"), zap.Int64("uid", account.ID), zap.Error(err))
	}
	metrics.Incr(metrics.MetricsSigninOk)
	return s.newSession(ctx, account.ID, "signed_in")
}

// SignOut revokes the presented token.
func (s *Service) SignOut(ctx context.Context, claims *Claims) error {
	if err := s.tokens.Revoke(claims); err != nil {
		return errors.Wrap(err, "revoke token")
	}
	s.pub.Publish(realtime.AuthTopic(claims.UID), realtime.Event{
		Type: realtime.EventAuth, Action: "signed_out", UserID: claims.UID,
	})
	return nil
}

// GetSession loads the current user with its roles.
func (s *Service) GetSession(ctx context.Context, uid int64) (*SessionUser, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).Where("id = ?", uid).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "query account")
	}
	var profile domain.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", uid).Limit(1).Find(&profile).Error; err != nil {
		return nil, errors.Wrap(err, "query profile")
	}
	roles, err := UserRoles(ctx, s.db, uid)
	if err != nil {
		return nil, err
	}
	return &SessionUser{
		ID:       account.ID,
		Email:    account.Email,
		FullName: profile.FullName,
		Username: profile.Username,
		Roles:    roles,
	}, nil
}

// NotifyUserUpdated tells the user's clients to refresh their session.
func (s *Service) NotifyUserUpdated(uid int64) {
	s.pub.Publish(realtime.AuthTopic(uid), realtime.Event{
		Type: realtime.EventAuth, Action: "user_updated", UserID: uid,
	})
}

func (s *Service) newSession(ctx context.Context, uid int64, action string) (*Session, error) {
	user, err := s.GetSession(ctx, uid)
	if err != nil {
		return nil, err
	}
	username := user.Email
	if user.Username != nil {
		username = *user.Username
	}
	token, exp, err := s.tokens.Issue(uid, username, user.Roles)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(realtime.AuthTopic(uid), realtime.Event{
		Type: realtime.EventAuth, Action: action, UserID: uid,
	})
	return &Session{AccessToken: token, TokenType: "bearer", ExpiresAt: exp, User: *user}, nil
}

// UserRoles lists the roles of uid; the legacy profile role is merged in.
func UserRoles(ctx context.Context, db *gorm.DB, uid int64) ([]string, error) {
	var roles []string
	if err := db.WithContext(ctx).Model(&domain.UserRole{}).
		Where("user_id = ?", uid).Order("role").Pluck("role", &roles).Error; err != nil {
		return nil, errors.Wrap(err, "query roles")
	}
	var profile domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", uid).Limit(1).Find(&profile).Error; err != nil {
		return nil, errors.Wrap(err, "query profile")
	}
	if profile.Role != nil && strings.EqualFold(*profile.Role, domain.RoleAdmin) && !contains(roles, domain.RoleAdmin) {
		roles = append(roles, domain.RoleAdmin)
	}
	return roles, nil
}

// HasRole reports whether uid holds role, checking user_roles and, for admin,
// the legacy profiles.role column.
func HasRole(ctx context.Context, db *gorm.DB, uid int64, role string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.UserRole{}).
		Where("user_id = ? AND role = ?", uid, role).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "query user role")
	}
	if count > 0 {
		return true, nil
	}
	if role != domain.RoleAdmin {
		return false, nil
	}
	if err := db.WithContext(ctx).Model(&domain.Profile{}).
		Where("id = ? AND role = ?", uid, domain.RoleAdmin).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "query profile role")
	}
	return count > 0, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
