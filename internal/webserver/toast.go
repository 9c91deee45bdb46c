package webserver

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	sessionName = "boutique"
	toastFlash  = "toasts"
)

// Toast transient notification rendered by the client
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

func ErrorToast(description string) Toast {
	return Toast{Title: "Erreur", Description: description, Variant: "destructive"}
}

func InfoToast(title, description string) Toast {
	return Toast{Title: title, Description: description}
}

// AddToast stores t as a session flash until the next PopToasts.
func AddToast(c echo.Context, t Toast) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		zap.L().Debug("session unavailable", zap.Error(err))
		return
	}
	bs, err := jsoniter.MarshalToString(t)
	if err != nil {
		return
	}
	sess.AddFlash(bs, toastFlash)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Debug("session save failed", zap.Error(err))
	}
}

// PopToasts drains the queued toasts.
func PopToasts(c echo.Context) []Toast {
	toasts := []Toast{}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return toasts
	}
	flashes := sess.Flashes(toastFlash)
	if len(flashes) == 0 {
		return toasts
	}
	for _, f := range flashes {
		s, ok := f.(string)
		if !ok {
			continue
		}
		var t Toast
		if err := jsoniter.UnmarshalFromString(s, &t); err == nil {
			toasts = append(toasts, t)
		}
	}
	_ = sess.Save(c.Request(), c.Response())
	return toasts
}
