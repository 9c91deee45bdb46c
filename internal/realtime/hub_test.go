package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestHubPublishSubscribe(t *testing.T) {
	c := qt.New(t)
	h := NewHub()

	a, cancelA := h.Subscribe(CartTopic(1), 4)
	b, cancelB := h.Subscribe(CartTopic(1), 4)
	other, cancelOther := h.Subscribe(CartTopic(2), 4)
	defer cancelOther()
	c.Assert(h.Subscribers(CartTopic(1)), qt.Equals, 2)

	h.Publish(CartTopic(1), Event{Type: EventCart, Action: "add", UserID: 1})

	ev := recv(t, a)
	c.Assert(ev.Type, qt.Equals, EventCart)
	c.Assert(ev.Topic, qt.Equals, "cart:1")
	c.Assert(ev.At.IsZero(), qt.IsFalse)
	c.Assert(recv(t, b).Action, qt.Equals, "add")

	select {
	case <-other:
		t.Fatal("event leaked to another topic")
	default:
	}

	cancelA()
	cancelA()
	_, open := <-a
	c.Assert(open, qt.IsFalse)
	c.Assert(h.Subscribers(CartTopic(1)), qt.Equals, 1)

	h.Publish(CartTopic(1), Event{Type: EventCart})
	c.Assert(recv(t, b).Type, qt.Equals, EventCart)

	cancelB()
	c.Assert(h.Subscribers(CartTopic(1)), qt.Equals, 0)
	// no subscriber left: publish is a no-op
	h.Publish(CartTopic(1), Event{Type: EventCart})
}

func TestHubResubscribeAfterLastCancel(t *testing.T) {
	c := qt.New(t)
	h := NewHub()

	_, cancel := h.Subscribe(AuthTopic(7), 1)
	cancel()

	ch, cancel := h.Subscribe(AuthTopic(7), 1)
	defer cancel()
	h.Publish(AuthTopic(7), Event{Type: EventAuth, Action: "signed_out"})
	c.Assert(recv(t, ch).Action, qt.Equals, "signed_out")
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	c := qt.New(t)
	h := NewHub()
	ch, cancel := h.Subscribe(TopicOrdersAdmin, 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(TopicOrdersAdmin, Event{Type: EventOrder})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked")
	}
	c.Assert(len(ch), qt.Equals, 1)
}

func TestServeWS(t *testing.T) {
	c := qt.New(t)
	h := NewHub()
	e := echo.New()
	e.GET("/ws", func(ctx echo.Context) error {
		return h.ServeWS(ctx, UserTopics(42)...)
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	c.Assert(err, qt.IsNil)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers(CartTopic(42)) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	c.Assert(h.Subscribers(CartTopic(42)), qt.Equals, 1)

	h.Publish(CartTopic(42), Event{Type: EventCart, Action: "update", UserID: 42})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	c.Assert(conn.ReadJSON(&ev), qt.IsNil)
	c.Assert(ev.Type, qt.Equals, EventCart)
	c.Assert(ev.UserID, qt.Equals, int64(42))
	c.Assert(ev.Topic, qt.Equals, "cart:42")
}
