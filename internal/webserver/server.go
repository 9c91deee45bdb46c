package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/boutiqueapp/boutique/internal/app"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ApiPrefix     = "/api/v1"
	appContextKey = "appctx"
)

// WebServer holds the echo instance and its route groups
type WebServer struct {
	root   *echo.Echo
	jwt    echo.MiddlewareFunc
	wsJWT  echo.MiddlewareFunc
	pub    *echo.Group
	user   *echo.Group
	admin  *echo.Group
	mod    *echo.Group
	appCtx app.AppContext
}

var server *WebServer

// Init builds the echo server; route packages register on it afterwards.
func Init(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = JSONSerializer{}
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(corsConfig(cfg.Web.CorsOrigins)))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/ws")
		},
	}))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.SessionSecret))))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	})

	jwtMiddleware := JWTMiddleware(appCtx.Tokens())
	s := &WebServer{
		root:   e,
		jwt:    jwtMiddleware,
		wsJWT:  WebSocketJWTMiddleware(appCtx.Tokens()),
		pub:    e.Group(ApiPrefix),
		user:   e.Group(ApiPrefix+"/me", jwtMiddleware),
		admin:  e.Group(ApiPrefix+"/admin", jwtMiddleware, RequireRole("admin")),
		mod:    e.Group(ApiPrefix+"/admin", jwtMiddleware, RequireRole("admin", "moderator")),
		appCtx: appCtx,
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	server = s
	return s
}

// Echo returns the echo instance of the current server
func Echo() *echo.Echo {
	return server.root
}

func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

// Start serves HTTP until the server is shut down.
func (s *WebServer) Start() error {
	cfg := s.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.L().Info("starting web server", zap.String("namespace", "webserver"), zap.String("addr", addr))
	err := s.root.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *WebServer) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.root.Shutdown(ctx)
}

// Public routes, relative to /api/v1
func PubGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.pub.GET(path, h, m...) }
func PubPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.pub.POST(path, h, m...) }

// Signed-in user routes, relative to /api/v1/me
func UserGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.user.GET(path, h, m...) }
func UserPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.user.POST(path, h, m...) }
func UserPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.user.PUT(path, h, m...) }
func UserDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.user.DELETE(path, h, m...) }

// UserWS registers a websocket route under /api/v1/me. It sits outside the
// user group so the token may also come from the query string.
func UserWS(path string, h echo.HandlerFunc) {
	server.root.GET(ApiPrefix+"/me"+path, h, server.wsJWT)
}

// Admin routes, relative to /api/v1/admin
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.admin.GET(path, h, m...) }
func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.admin.POST(path, h, m...) }
func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.admin.PUT(path, h, m...) }
func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.admin.DELETE(path, h, m...) }

// Moderation routes, relative to /api/v1/admin, open to admins and moderators
func ModGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.mod.GET(path, h, m...) }
func ModDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) { server.mod.DELETE(path, h, m...) }

// Authenticated returns the token check used by the /me group, for public
// routes that still need a signed-in user.
func Authenticated() echo.MiddlewareFunc {
	return server.jwt
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appContextKey).(app.AppContext)
}

// GetDB returns the request scoped database handle
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

// corsConfig allows credentials only for an explicit origin list; a "*"
// entry opens the API to any origin without cookies.
func corsConfig(origins []string) middleware.CORSConfig {
	credentials := len(origins) > 0
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			credentials = false
		}
	}
	return middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: credentials,
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "http"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				zap.L().Warn("request", append(fields, zap.Error(v.Error))...)
			} else {
				zap.L().Debug("request", fields...)
			}
			return nil
		},
	})
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := http.StatusText(status)
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		zap.L().Error("unhandled error", zap.String("namespace", "http"), zap.Error(err))
	}
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, FailResp{Error: code, Message: message})
}
