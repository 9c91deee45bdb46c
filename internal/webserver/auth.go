package webserver

import (
	"net/http"

	"github.com/boutiqueapp/boutique/internal/auth"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const claimsKey = "user"

// JWTMiddleware validates bearer tokens and stores the claims in the context.
func JWTMiddleware(tokens *auth.TokenManager) echo.MiddlewareFunc {
	return jwtWithLookup(tokens, "header:Authorization:Bearer ")
}

// WebSocketJWTMiddleware also accepts ?access_token= since browsers cannot
// set headers on a websocket handshake. Only websocket routes use it.
func WebSocketJWTMiddleware(tokens *auth.TokenManager) echo.MiddlewareFunc {
	return jwtWithLookup(tokens, "header:Authorization:Bearer ,query:access_token")
}

func jwtWithLookup(tokens *auth.TokenManager, lookup string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: lookup,
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return tokens.Parse(raw)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return FailWithToast(c, http.StatusUnauthorized, "LOGIN_REQUIRED",
				"Authentication required", "Veuillez vous connecter pour continuer")
		},
	})
}

// CurrentClaims returns the verified claims of the request, or nil.
func CurrentClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey).(*auth.Claims)
	return claims
}

// CurrentUserID returns the signed-in user id, 0 when anonymous.
func CurrentUserID(c echo.Context) int64 {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UID
	}
	return 0
}

// RequireRole lets the request through when the user holds one of roles.
// Roles are read from the database so grants apply without a new token.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := CurrentUserID(c)
			if uid == 0 {
				return FailWithToast(c, http.StatusUnauthorized, "LOGIN_REQUIRED",
					"Authentication required", "Veuillez vous connecter pour continuer")
			}
			for _, role := range roles {
				ok, err := auth.HasRole(c.Request().Context(), GetAppContext(c).DB(), uid, role)
				if err != nil {
					zap.L().Error("role check failed", zap.String("namespace", "webserver"), zap.Error(err))
					return Fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Role check failed", nil)
				}
				if ok {
					return next(c)
				}
			}
			return FailWithToast(c, http.StatusForbidden, "FORBIDDEN",
				"Insufficient role", "Vous n'avez pas les droits nécessaires")
		}
	}
}
