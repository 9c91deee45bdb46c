package storeapi

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/auth"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type signUpPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	FullName string `json:"full_name" validate:"omitempty,max=200"`
	Username string `json:"username" validate:"omitempty,min=2,max=100"`
}

type signInPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/auth/signup", signUp)
	webserver.PubPOST("/auth/signin", signIn)
	webserver.PubPOST("/auth/signout", signOut, webserver.Authenticated())
	webserver.PubGET("/auth/session", getSession, webserver.Authenticated())
}

func signUp(c echo.Context) error {
	var payload signUpPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	session, err := GetAppContext(c).Auth().SignUp(c.Request().Context(), auth.SignUpInput{
		Email:    payload.Email,
		Password: payload.Password,
		FullName: payload.FullName,
		Username: payload.Username,
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return webserver.FailWithToast(c, http.StatusConflict, "EMAIL_TAKEN", err.Error(), "Cette adresse e-mail est déjà utilisée")
	case errors.Is(err, auth.ErrWeakPassword):
		return webserver.FailWithToast(c, http.StatusBadRequest, "WEAK_PASSWORD", err.Error(), "Le mot de passe doit contenir au moins 6 caractères")
	case err != nil:
		zap.L().Error("sign up failed", zap.String("namespace", "auth"), zap.Error(err))
		return webserver.FailWithToast(c, http.StatusInternalServerError, "SIGNUP_FAILED", "Sign up failed", "Impossible de créer le compte")
	}
	return webserver.OKWithToast(c, http.StatusCreated, session,
		webserver.InfoToast("Inscription réussie", "Bienvenue !"))
}

func signIn(c echo.Context) error {
	var payload signInPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	session, err := GetAppContext(c).Auth().SignIn(c.Request().Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return webserver.FailWithToast(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), "Email ou mot de passe incorrect")
	case errors.Is(err, auth.ErrAccountDisabled):
		return webserver.FailWithToast(c, http.StatusForbidden, "ACCOUNT_DISABLED", err.Error(), "Ce compte est désactivé")
	case err != nil:
		zap.L().Error("sign in failed", zap.String("namespace", "auth"), zap.Error(err))
		return webserver.FailWithToast(c, http.StatusInternalServerError, "SIGNIN_FAILED", "Sign in failed", "Connexion impossible")
	}
	return ok(c, session)
}

func signOut(c echo.Context) error {
	claims := webserver.CurrentClaims(c)
	if err := GetAppContext(c).Auth().SignOut(c.Request().Context(), claims); err != nil {
		zap.L().Error("sign out failed", zap.String("namespace", "auth"), zap.Error(err))
		return webserver.FailWithToast(c, http.StatusInternalServerError, "SIGNOUT_FAILED", "Sign out failed", "Déconnexion impossible")
	}
	return webserver.OKWithToast(c, http.StatusOK, map[string]bool{"signed_out": true},
		webserver.InfoToast("Déconnexion", "Vous avez été déconnecté"))
}

func getSession(c echo.Context) error {
	user, err := GetAppContext(c).Auth().GetSession(c.Request().Context(), currentUser(c))
	if errors.Is(err, auth.ErrUserNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load session", err.Error())
	}
	return ok(c, user)
}
