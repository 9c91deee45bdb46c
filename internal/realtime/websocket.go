package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams events of the given topics as JSON
// text frames until the client goes away.
func (h *Hub) ServeWS(c echo.Context, topics ...string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	merged := make(chan Event, 32)
	var cancels []func()
	for _, topic := range topics {
		ch, cancel := h.Subscribe(topic, 16)
		cancels = append(cancels, cancel)
		go func(ch <-chan Event) {
			for ev := range ch {
				select {
				case merged <- ev:
				default:
				}
			}
		}(ch)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	// reader loop: only used to detect close and keep pong deadlines
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case ev := <-merged:
			bs, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(ev)
			if err != nil {
				zap.L().Error("realtime encode event", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, bs); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
